// Package plan loads the YAML job plan run by cmd/joblauncher.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"joblauncher/internal/apperrors"
	"joblauncher/internal/machine"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Kind selects how a plan job is executed.
type Kind string

const (
	KindCommand Kind = "command" // launched detached, completion read from the channel
	KindRun     Kind = "run"     // like command, with the machine's MPI run template
	KindCompile Kind = "compile" // synchronous build on the machine, fail-loud
	KindClean   Kind = "clean"   // synchronous make clean, failures ignored
)

// Plan is a sequence of jobs sharing a working directory and host setup.
type Plan struct {
	WorkDir string       `yaml:"workDir"`
	Machine *MachineSpec `yaml:"machine,omitempty"`
	Jobs    []Job        `yaml:"jobs"`
}

// MachineSpec overrides host settings otherwise taken from the environment.
type MachineSpec struct {
	Root          string `yaml:"root,omitempty"`
	CompileOut    string `yaml:"compileOut,omitempty"`
	CompileErrors string `yaml:"compileErrors,omitempty"`
	WorkDirs      string `yaml:"workDirs,omitempty"`
	OutputFile    string `yaml:"outputFile,omitempty"`
	Binary        string `yaml:"binary,omitempty"`
	MPI           int    `yaml:"mpi,omitempty"`
	OMP           int    `yaml:"omp,omitempty"`
	CompileMode   string `yaml:"compileMode,omitempty"`
}

// Job is one step of a plan.
type Job struct {
	ID      string `yaml:"id"`
	Kind    Kind   `yaml:"kind,omitempty"`
	Command string `yaml:"command,omitempty"`
	Args    string `yaml:"args,omitempty"`

	// Submit wraps the command for a batch scheduler. "{command}" is
	// replaced by the job's command; without it Submit runs as given.
	Submit string `yaml:"submit,omitempty"`

	// WorkDir overrides the plan's working directory.
	WorkDir string `yaml:"workDir,omitempty"`

	MaxDurationSeconds int    `yaml:"maxDurationSeconds,omitempty"`
	ErrorFile          string `yaml:"errorFile,omitempty"`
	Repeat             int    `yaml:"repeat,omitempty"`

	// WriteExitStatus appends a shell suffix that publishes the command's
	// exit code into the channel.
	WriteExitStatus bool `yaml:"writeExitStatus,omitempty"`
}

// Launched reports whether the job goes through submit, poll and resolve.
func (j Job) Launched() bool {
	return j.Kind == KindCommand || j.Kind == KindRun
}

// Load reads and validates a plan file. Relative working directories are
// resolved against the plan file's directory.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, err
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan directory: %w", err)
	}
	p.resolvePaths(base)
	return p, nil
}

// Parse decodes and validates a plan. Unknown fields are rejected.
func Parse(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.Validation("jobs", "plan is empty")
		}
		return nil, &apperrors.Error{
			Sentinel: apperrors.ErrValidation,
			Message:  fmt.Sprintf("invalid plan: %v", err),
			Cause:    err,
		}
	}

	applyDefaults(&p)
	if err := validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Has reports whether any job is of kind k.
func (p *Plan) Has(k Kind) bool {
	for _, j := range p.Jobs {
		if j.Kind == k {
			return true
		}
	}
	return false
}

// NeedsMachine reports whether any job uses the machine's templates.
func (p *Plan) NeedsMachine() bool {
	return p.Has(KindRun) || p.Has(KindCompile) || p.Has(KindClean)
}

// MachineOptions overlays the plan's machine section on base.
func (p *Plan) MachineOptions(base machine.Options) machine.Options {
	if p.Machine == nil {
		return base
	}
	if p.Machine.MPI > 0 {
		base.MPI = p.Machine.MPI
	}
	if p.Machine.OMP > 0 {
		base.OMP = p.Machine.OMP
	}
	if p.Machine.CompileMode != "" {
		base.CompileMode = p.Machine.CompileMode
	}
	return base
}

// MachinePaths returns the machine's paths; Root defaults to the plan's
// working directory.
func (p *Plan) MachinePaths() machine.Paths {
	paths := machine.Paths{Root: p.WorkDir}
	if m := p.Machine; m != nil {
		if m.Root != "" {
			paths.Root = m.Root
		}
		paths.CompileOut = m.CompileOut
		paths.CompileErrors = m.CompileErrors
		paths.WorkDirs = m.WorkDirs
		paths.OutputFile = m.OutputFile
		paths.Binary = m.Binary
	}
	return paths
}

func (p *Plan) resolvePaths(base string) {
	abs := func(path string) string {
		if path == "" || filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(base, path)
	}

	p.WorkDir = abs(p.WorkDir)
	if p.Machine != nil {
		p.Machine.Root = abs(p.Machine.Root)
	}
	for i := range p.Jobs {
		p.Jobs[i].WorkDir = abs(p.Jobs[i].WorkDir)
	}
}
