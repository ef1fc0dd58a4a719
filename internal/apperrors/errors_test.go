package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"testing"
)

func TestValidation(t *testing.T) {
	t.Parallel()
	err := Validation("id", "job ID is required")

	if !errors.Is(err, ErrValidation) {
		t.Error("expected error to match ErrValidation")
	}
	if err.Error() != "job ID is required" {
		t.Errorf("expected message 'job ID is required', got %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Field != "id" {
		t.Errorf("expected field 'id', got %q", appErr.Field)
	}
}

func TestSubmissionExhausted(t *testing.T) {
	t.Parallel()
	cause := &exec.ExitError{}
	err := SubmissionExhausted("compile", 3, cause)

	if !errors.Is(err, ErrSubmissionExhausted) {
		t.Error("expected error to match ErrSubmissionExhausted")
	}
	if err.Error() != "job compile: submission failed after 3 attempt(s)" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Error("expected cause to be reachable via errors.As")
	}
}

func TestJobFailed(t *testing.T) {
	t.Parallel()
	err := JobFailed("run", "7")

	if !errors.Is(err, ErrJobFailed) {
		t.Error("expected error to match ErrJobFailed")
	}
	if errors.Is(err, ErrSubmissionExhausted) {
		t.Error("job failure should not match ErrSubmissionExhausted")
	}
	if err.Error() != `job run: exited with status "7"` {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestTimedOutAndCancelled(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf("deadline")

	timedOut := TimedOut("run", cause)
	if !errors.Is(timedOut, ErrTimedOut) || !errors.Is(timedOut, cause) {
		t.Error("expected timeout to match ErrTimedOut and its cause")
	}

	cancelled := Cancelled("run", cause)
	if !errors.Is(cancelled, ErrCancelled) {
		t.Error("expected cancellation to match ErrCancelled")
	}
}

func TestTransientStatus(t *testing.T) {
	t.Parallel()

	err := TransientStatus("", nil)
	if !errors.Is(err, ErrTransientStatus) {
		t.Error("expected error to match ErrTransientStatus")
	}
	if err.Error() != `exit status "" not readable yet` {
		t.Errorf("unexpected message: %q", err.Error())
	}

	withCause := TransientStatus("4x", fmt.Errorf("bad digit"))
	if withCause.Error() != `exit status "4x" not readable yet: bad digit` {
		t.Errorf("unexpected message: %q", withCause.Error())
	}
}

func TestDiagnosticDump(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf("no such file")
	err := DiagnosticDump("/tmp/errors.txt", cause)

	if !errors.Is(err, ErrDiagnosticDump) {
		t.Error("expected error to match ErrDiagnosticDump")
	}
	if err.Error() != "failed to print file /tmp/errors.txt: no such file" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestInternal(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf("permission denied")
	err := Internal("statusfile.reset", cause)

	if !errors.Is(err, ErrInternal) {
		t.Error("expected error to match ErrInternal")
	}
	if err.Error() != "statusfile.reset: permission denied" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Op != "statusfile.reset" {
		t.Errorf("expected op 'statusfile.reset', got %q", appErr.Op)
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"submission exhausted", SubmissionExhausted("a", 1, nil), 2},
		{"job failed", JobFailed("a", "1"), 2},
		{"timed out", TimedOut("a", nil), 2},
		{"validation", Validation("id", "bad"), 2},
		{"plain", fmt.Errorf("boom"), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	t.Parallel()
	err := NotFound("job", "abc123")

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected error to match ErrNotFound")
	}
	if err.Error() != "job abc123 not found" {
		t.Errorf("expected message 'job abc123 not found', got %q", err.Error())
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("id", "bad"), http.StatusBadRequest},
		{"not found", NotFound("job", "x"), http.StatusNotFound},
		{"job failed", JobFailed("x", "1"), http.StatusInternalServerError},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
