// Package wrapper runs a job's command in the foreground and publishes its
// exit code into the exit-status channel when it ends, however it ends.
package wrapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"joblauncher/internal/statusfile"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Exit codes published when the command did not report one itself.
const (
	ExitCannotExecute = 126
	ExitNotFound      = 127
	exitSignalBase    = 128
)

// Runner runs one command and publishes its exit code.
type Runner struct {
	config  *Config
	channel *statusfile.Channel
	stdout  io.Writer
	stderr  io.Writer
}

// NewRunner creates a new wrapper runner.
func NewRunner(cfg *Config) (*Runner, error) {
	if cfg.StatusFile == "" {
		return nil, fmt.Errorf("status file is required")
	}
	return &Runner{
		config:  cfg,
		channel: statusfile.At(cfg.StatusFile),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}, nil
}

// Run executes argv and publishes its exit code. The returned code is the
// one published; the error is non-nil only when publishing failed.
//
// Cancelling ctx sends SIGTERM to the command, then SIGKILL after the
// grace period.
func (r *Runner) Run(ctx context.Context, argv []string) (int, error) {
	logger := slog.With("jobId", r.config.JobID, "statusFile", r.config.StatusFile)

	code := r.execute(ctx, logger, argv)
	if err := r.channel.Publish(code); err != nil {
		logger.Error("Failed to publish exit status", "exitCode", code, "error", err)
		return code, err
	}
	logger.Info("Published exit status", "exitCode", code)
	return code, nil
}

func (r *Runner) execute(ctx context.Context, logger *slog.Logger, argv []string) int {
	if len(argv) == 0 {
		logger.Error("No command given")
		return ExitNotFound
	}

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.config.GracePeriod

	start := time.Now()
	err := cmd.Run()
	code := exitCode(err)
	logger.Info("Command finished", "command", argv[0], "exitCode", code, "duration", time.Since(start))
	if ctx.Err() != nil {
		logger.Warn("Command interrupted", "reason", ctx.Err())
	}
	return code
}

// exitCode maps the result of exec.Cmd.Run to a shell-style exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return exitSignalBase + int(status.Signal())
		}
		return exitErr.ExitCode()
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return ExitNotFound
	}
	return ExitCannotExecute
}
