package job

import (
	"joblauncher/pkg/cloudevent"
	"slices"

	"github.com/google/uuid"
)

// Event types for job lifecycle callbacks
const (
	EventTypeSubmitted = "joblauncher.job.submitted"
	EventTypeExit      = "joblauncher.job.exit"
)

// FilteredEvents returns true if the event type should be sent based on the filter.
// If the filter is empty, all events are allowed.
func FilteredEvents(eventType string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	return slices.Contains(filter, eventType)
}

// EventBuilder builds CloudEvents for job lifecycle events.
type EventBuilder struct {
	source string
	meta   map[string]string
}

// NewEventBuilder creates a new EventBuilder.
func NewEventBuilder(source string, meta map[string]string) *EventBuilder {
	return &EventBuilder{
		source: source,
		meta:   meta,
	}
}

// Build creates a new CloudEvent with the given type and data.
func (b *EventBuilder) Build(eventType, jobID string, data map[string]any) *cloudevent.CloudEvent {
	if b.meta != nil {
		data["meta"] = b.meta
	}
	return cloudevent.New(eventType, b.source, jobID, uuid.NewString(), data)
}

// BuildSubmittedEvent creates a job submitted event.
func (b *EventBuilder) BuildSubmittedEvent(jobID, runID, command string, attempts int) *cloudevent.CloudEvent {
	data := map[string]any{
		"jobId":    jobID,
		"runId":    runID,
		"command":  command,
		"attempts": attempts,
	}
	return b.Build(EventTypeSubmitted, jobID, data)
}

// BuildExitEvent creates an exit event.
func (b *EventBuilder) BuildExitEvent(jobID, runID, outcome string, exitCode int, err error) *cloudevent.CloudEvent {
	data := map[string]any{
		"jobId":    jobID,
		"runId":    runID,
		"outcome":  outcome,
		"exitCode": exitCode,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	return b.Build(EventTypeExit, jobID, data)
}
