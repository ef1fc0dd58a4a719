// Package machine builds the shell commands used to compile, clean and run
// the simulation code on the current host, and runs them fail-loud.
package machine

import (
	"context"
	"fmt"
	"joblauncher/internal/apperrors"
	"joblauncher/internal/config"
	"joblauncher/internal/submit"
	"log/slog"
	"strconv"
	"strings"
)

// Paths locates build outputs and the simulation binary.
type Paths struct {
	// Root is where make runs and shell commands start.
	Root string

	CompileOut    string
	CompileErrors string

	// WorkDirs is prepended verbatim to the binary name, so it must end
	// with a separator when set.
	WorkDirs string

	OutputFile string
	Binary     string
}

func (p Paths) withDefaults() Paths {
	if p.CompileOut == "" {
		p.CompileOut = "compilation_out"
	}
	if p.CompileErrors == "" {
		p.CompileErrors = "compilation_errors"
	}
	if p.OutputFile == "" {
		p.OutputFile = "smilei_exe.out"
	}
	if p.Binary == "" {
		p.Binary = "smilei"
	}
	return p
}

// Options are the per-host execution parameters.
type Options struct {
	MPI         int    // MPI ranks
	OMP         int    // OpenMP threads per rank
	CompileMode string // make config=...; empty for the default build
}

// LoadOptionsFromEnv loads machine options from environment variables.
func LoadOptionsFromEnv() Options {
	return Options{
		MPI:         config.GetIntEnv("LAUNCHER_MPI", 1),
		OMP:         config.GetIntEnv("LAUNCHER_OMP", 1),
		CompileMode: config.GetEnv("LAUNCHER_COMPILE_MODE", ""),
	}
}

// Executor runs a shell command in a directory.
type Executor interface {
	Submit(ctx context.Context, command, workDir string) error
}

// Machine renders and runs commands for one host.
type Machine struct {
	paths  Paths
	opts   Options
	flavor Flavor
	exec   Executor
	logger *slog.Logger
}

// Option customizes a Machine.
type Option func(*Machine)

// WithExecutor replaces the shell used by Shell, Compile, Run and Clean.
func WithExecutor(e Executor) Option {
	return func(m *Machine) { m.exec = e }
}

// New creates a Machine.
func New(paths Paths, opts Options, flavor Flavor, options ...Option) (*Machine, error) {
	if opts.MPI < 1 {
		return nil, apperrors.Validation("mpi", fmt.Sprintf("MPI ranks must be at least 1, got %d", opts.MPI))
	}
	if opts.OMP < 1 {
		return nil, apperrors.Validation("omp", fmt.Sprintf("OpenMP threads must be at least 1, got %d", opts.OMP))
	}

	m := &Machine{
		paths:  paths.withDefaults(),
		opts:   opts,
		flavor: flavor,
		exec:   submit.NewShell(),
		logger: slog.With("component", "machine", "mpi", flavor.Name),
	}
	for _, o := range options {
		o(m)
	}
	return m, nil
}

func (m *Machine) makeCommand() string {
	if m.opts.CompileMode == "" {
		return "make"
	}
	return "make config=" + m.opts.CompileMode
}

// CompileCommand builds the code, capturing compiler output.
func (m *Machine) CompileCommand() string {
	return fmt.Sprintf("%s -j 4 > %s 2>%s", m.makeCommand(), m.paths.CompileOut, m.paths.CompileErrors)
}

// CleanCommand removes build products quietly.
func (m *Machine) CleanCommand() string {
	return "make clean > /dev/null 2>&1"
}

// RunCommand launches the binary under MPI with arguments, redirecting its
// output to the configured file.
func (m *Machine) RunCommand(arguments string) string {
	var b strings.Builder
	b.WriteString("export OMP_NUM_THREADS=")
	b.WriteString(strconv.Itoa(m.opts.OMP))
	b.WriteString("; ")
	b.WriteString(m.flavor.Launcher(m.opts.MPI, m.opts.OMP))
	b.WriteString(" ")
	b.WriteString(m.paths.WorkDirs)
	b.WriteString(m.paths.Binary)
	b.WriteString(" ")
	b.WriteString(arguments)
	b.WriteString(" > ")
	b.WriteString(m.paths.OutputFile)
	return b.String()
}

// Shell runs command in the machine's root and fails on a nonzero exit.
func (m *Machine) Shell(ctx context.Context, command string) error {
	m.logger.Debug("Trying command", "command", command)
	if err := m.exec.Submit(ctx, command, m.paths.Root); err != nil {
		m.logger.Debug("Execution failed for command", "command", command, "error", err)
		return &apperrors.Error{
			Sentinel: apperrors.ErrJobFailed,
			Message:  fmt.Sprintf("command failed: %s", command),
			Op:       "machine.shell",
			Cause:    err,
		}
	}
	return nil
}

// Compile builds the code.
func (m *Machine) Compile(ctx context.Context) error {
	return m.Shell(ctx, m.CompileCommand())
}

// Clean removes build products. Failures are logged and ignored.
func (m *Machine) Clean(ctx context.Context) {
	if err := m.exec.Submit(ctx, m.CleanCommand(), m.paths.Root); err != nil {
		m.logger.Debug("Clean failed, ignoring", "error", err)
	}
}

// WithExitStatus wraps command so that its exit code is written to path
// once it finishes, for jobs that cannot run job-wrapper.
func WithExitStatus(command, path string) string {
	return fmt.Sprintf("(%s); echo $? > %s", command, shellQuote(path))
}

// shellQuote single-quotes s for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
