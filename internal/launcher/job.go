package launcher

import (
	"fmt"
	"joblauncher/internal/apperrors"
	"time"
)

// Job is one invocation of the launcher.
type Job struct {
	ID string

	// BaseCommand describes the job in logs.
	BaseCommand string

	// SubmitCommand is what actually gets executed. It differs from
	// BaseCommand when wrapped by a batch-scheduler submission call.
	// Empty means BaseCommand.
	SubmitCommand string

	// WorkDir holds the exit-status channel. It must exist and be writable.
	WorkDir string

	// MaxDuration bounds polling when deadline enforcement is on. Zero means
	// unbounded.
	MaxDuration time.Duration

	// ErrorFile is dumped for the operator when the job fails. Optional.
	ErrorFile string

	// Repeat is the submission attempt budget. Zero means one attempt.
	Repeat int
}

// normalized returns a copy with defaults applied, or a validation error.
func (j *Job) normalized() (*Job, error) {
	if j == nil {
		return nil, apperrors.Validation("job", "job is required")
	}
	out := *j
	if out.ID == "" {
		return nil, apperrors.Validation("id", "job ID is required")
	}
	if out.SubmitCommand == "" {
		out.SubmitCommand = out.BaseCommand
	}
	if out.BaseCommand == "" {
		out.BaseCommand = out.SubmitCommand
	}
	if out.SubmitCommand == "" {
		return nil, apperrors.Validation("command", "submission command is required")
	}
	if out.WorkDir == "" {
		return nil, apperrors.Validation("workDir", "working directory is required")
	}
	if out.Repeat == 0 {
		out.Repeat = 1
	}
	if out.Repeat < 0 {
		return nil, apperrors.Validation("repeat", fmt.Sprintf("repeat must be positive, got %d", out.Repeat))
	}
	if out.MaxDuration < 0 {
		return nil, apperrors.Validation("maxDuration", "max duration cannot be negative")
	}
	return &out, nil
}
