package job

import (
	"joblauncher/internal/apperrors"
	"sort"
	"sync"
	"time"
)

// Registry holds the latest status of every job seen by this process.
// The launcher writes to it; the admin API reads from it concurrently.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]Status
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]Status),
	}
}

// Declare records a job as pending unless it is already known.
func (r *Registry) Declare(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[jobID]; exists {
		return
	}
	now := time.Now()
	r.jobs[jobID] = Status{ID: jobID, State: StatePending, StartedAt: now, UpdatedAt: now}
}

// Track stores s as the job's latest status. StartedAt is preserved from
// the previous status of the same run.
func (r *Registry) Track(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if prev, exists := r.jobs[s.ID]; exists && (prev.RunID == s.RunID || prev.RunID == "") && !prev.StartedAt.IsZero() {
		s.StartedAt = prev.StartedAt
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = now
	}
	s.UpdatedAt = now
	r.jobs[s.ID] = s
}

// Get returns a job's status.
func (r *Registry) Get(jobID string) (Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.jobs[jobID]
	if !exists {
		return Status{}, apperrors.NotFound("job", jobID)
	}
	return s, nil
}

// List returns all statuses ordered by start time.
func (r *Registry) List() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Status, 0, len(r.jobs))
	for _, s := range r.jobs {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result
}
