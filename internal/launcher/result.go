package launcher

import (
	"joblauncher/internal/apperrors"
	"time"
)

// Outcome is the final classification of a launch.
type Outcome string

const (
	OutcomeSucceeded           Outcome = "succeeded"
	OutcomeSubmissionExhausted Outcome = "submission_exhausted"
	OutcomeJobFailed           Outcome = "job_failed"
	OutcomeTimedOut            Outcome = "timed_out"
	OutcomeCancelled           Outcome = "cancelled"
)

// UnknownExitCode is reported when the job never produced a parsable status.
const UnknownExitCode = -1

// Result describes how a launch ended. Callers decide whether to terminate,
// retry the whole job, or aggregate results.
type Result struct {
	RunID   string
	JobID   string
	Outcome Outcome

	// ExitCode is the job's own exit code, or UnknownExitCode when it was
	// never resolved.
	ExitCode int

	// RawStatus is the last channel content the resolver saw.
	RawStatus string

	// Attempts counts submission attempts made.
	Attempts int

	Duration time.Duration

	// FailureRecord holds the error file content dumped on failure.
	FailureRecord string

	err error
}

// Succeeded reports whether the job was confirmed successful.
func (r *Result) Succeeded() bool {
	return r.Outcome == OutcomeSucceeded
}

// Err returns the classified error for a failed launch, nil on success.
func (r *Result) Err() error {
	if r.Succeeded() {
		return nil
	}
	return r.err
}

// ProcessExitCode is the status the orchestrating process should exit with.
func (r *Result) ProcessExitCode() int {
	return apperrors.ExitCode(r.Err())
}
