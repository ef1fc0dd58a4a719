// Package job defines job status types, the in-process status registry and
// lifecycle event construction.
package job

import "time"

// State constants
const (
	StatePending    = "pending"
	StateSubmitting = "submitting"
	StateRunning    = "running"
	StateResolving  = "resolving"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// Status represents the current status of a job
type Status struct {
	ID        string    `json:"id"`
	RunID     string    `json:"runId,omitempty"`
	State     string    `json:"status"`
	Outcome   string    `json:"outcome,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	ExitCode  *int      `json:"exitCode,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Terminal reports whether the status will not change again.
func (s Status) Terminal() bool {
	return s.State == StateCompleted || s.State == StateFailed
}

// ListResponse represents the response for listing jobs
type ListResponse struct {
	Jobs []Status `json:"jobs"`
}
