// Package apperrors provides the launcher's error taxonomy and its mapping
// to process exit statuses.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrSubmissionExhausted = errors.New("submission attempts exhausted")
	ErrJobFailed           = errors.New("job failed")
	ErrTimedOut            = errors.New("job exceeded max duration")
	ErrCancelled           = errors.New("launch cancelled")
	ErrTransientStatus     = errors.New("transient exit status read")
	ErrDiagnosticDump      = errors.New("diagnostic dump failed")
	ErrInternal            = errors.New("internal error")
)

// Error provides structured error with context.
type Error struct {
	Sentinel error  // Wrapped sentinel for errors.Is() classification
	Message  string // Human-readable message
	Field    string // For validation errors (e.g., "id", "repeat")
	JobID    string // Job the error belongs to, if any
	Op       string // Operation that failed (e.g., "statusfile.reset")
	Cause    error  // Underlying error
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause so errors.Is and errors.As
// see through to either.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Cause}
}

// Validation creates a validation error for a specific field.
func Validation(field, message string) error {
	return &Error{
		Sentinel: ErrValidation,
		Message:  message,
		Field:    field,
	}
}

// NotFound creates a not found error for a resource.
func NotFound(resource, id string) error {
	return &Error{
		Sentinel: ErrNotFound,
		Message:  fmt.Sprintf("%s %s not found", resource, id),
		JobID:    id,
	}
}

// SubmissionExhausted reports that every submission attempt exited nonzero.
func SubmissionExhausted(jobID string, attempts int, cause error) error {
	return &Error{
		Sentinel: ErrSubmissionExhausted,
		Message:  fmt.Sprintf("job %s: submission failed after %d attempt(s)", jobID, attempts),
		JobID:    jobID,
		Cause:    cause,
	}
}

// JobFailed reports a job whose resolved exit status is not zero.
func JobFailed(jobID, status string) error {
	return &Error{
		Sentinel: ErrJobFailed,
		Message:  fmt.Sprintf("job %s: exited with status %q", jobID, status),
		JobID:    jobID,
	}
}

// TimedOut reports a job still unfinished when its max duration elapsed.
func TimedOut(jobID string, cause error) error {
	return &Error{
		Sentinel: ErrTimedOut,
		Message:  fmt.Sprintf("job %s: max duration exceeded", jobID),
		JobID:    jobID,
		Cause:    cause,
	}
}

// Cancelled reports a launch abandoned because its context ended.
func Cancelled(jobID string, cause error) error {
	return &Error{
		Sentinel: ErrCancelled,
		Message:  fmt.Sprintf("job %s: launch cancelled", jobID),
		JobID:    jobID,
		Cause:    cause,
	}
}

// TransientStatus wraps a channel read that could not yet be trusted.
func TransientStatus(raw string, cause error) error {
	msg := fmt.Sprintf("exit status %q not readable yet", raw)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{
		Sentinel: ErrTransientStatus,
		Message:  msg,
		Cause:    cause,
	}
}

// DiagnosticDump wraps a failure to print the job's error file.
func DiagnosticDump(path string, cause error) error {
	return &Error{
		Sentinel: ErrDiagnosticDump,
		Message:  fmt.Sprintf("failed to print file %s: %v", path, cause),
		Op:       "report.dump",
		Cause:    cause,
	}
}

// Internal creates an internal error wrapping an underlying cause.
func Internal(op string, cause error) error {
	return &Error{
		Sentinel: ErrInternal,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
	}
}
