// Package submit provides the backends that hand a job's command off for
// execution: a local shell and a detached Docker container.
package submit

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// DefaultShell is the interpreter used for submission commands.
const DefaultShell = "/bin/sh"

// Shell runs submission commands through a local shell and waits for them
// to exit. For a scheduler wrapper (sbatch, qsub) that is the submission
// step; for a plain command it is the whole job.
type Shell struct {
	path   string
	env    []string
	stdout io.Writer
	stderr io.Writer
}

// ShellOption customizes a Shell.
type ShellOption func(*Shell)

// WithShellPath overrides the interpreter (default /bin/sh).
func WithShellPath(path string) ShellOption {
	return func(s *Shell) { s.path = path }
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) ShellOption {
	return func(s *Shell) { s.env = append(s.env, env...) }
}

// WithOutput sets where the command's stdout and stderr go
// (default: this process's own).
func WithOutput(stdout, stderr io.Writer) ShellOption {
	return func(s *Shell) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// NewShell creates a shell submitter.
func NewShell(opts ...ShellOption) *Shell {
	s := &Shell{
		path:   DefaultShell,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs command in workDir. A nonzero exit is returned as an error
// wrapping *exec.ExitError.
func (s *Shell) Submit(ctx context.Context, command, workDir string) error {
	cmd := exec.CommandContext(ctx, s.path, "-c", command)
	cmd.Dir = workDir
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	if len(s.env) > 0 {
		cmd.Env = append(os.Environ(), s.env...)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("submission command failed: %w", err)
	}
	return nil
}

// Ready checks that the interpreter can be found.
func (s *Shell) Ready(ctx context.Context) error {
	if _, err := exec.LookPath(s.path); err != nil {
		return fmt.Errorf("shell not available: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *Shell) Close() error {
	return nil
}
