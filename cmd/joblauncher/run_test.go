package main

import (
	"context"
	"errors"
	"joblauncher/internal/apperrors"
	"joblauncher/internal/job"
	"joblauncher/internal/launcher"
	"joblauncher/internal/machine"
	"joblauncher/internal/plan"
	"joblauncher/internal/submit"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLauncher() *launcher.Launcher {
	return launcher.New(launcher.Config{TimeUnit: time.Millisecond, EnforceDeadline: true},
		submit.NewShell(submit.WithOutput(os.Stdout, os.Stderr)))
}

func loadPlan(t *testing.T, dir, yaml string) *plan.Plan {
	t.Helper()
	path := filepath.Join(dir, "jobs.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("Failed to write plan: %v", err)
	}
	p, err := plan.Load(path)
	if err != nil {
		t.Fatalf("plan.Load() error = %v", err)
	}
	return p
}

func TestRunPlan_AllSucceed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := loadPlan(t, dir, `
workDir: .
jobs:
  - id: first
    command: echo one > first.txt
    writeExitStatus: true
  - id: second
    command: test -f first.txt
    writeExitStatus: true
`)

	registry := job.NewRegistry()
	if err := runPlan(context.Background(), p, testLauncher(), nil, registry); err != nil {
		t.Fatalf("runPlan() error = %v", err)
	}

	for _, id := range []string{"first", "second"} {
		s, err := registry.Get(id)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", id, err)
		}
		if s.State != job.StateCompleted {
			t.Errorf("%s state = %s, want completed", id, s.State)
		}
	}
}

func TestRunPlan_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := loadPlan(t, dir, `
workDir: .
jobs:
  - id: ok
    command: "true"
    writeExitStatus: true
  - id: broken
    command: echo "rank 0 crashed" > err.log; exit 9
    writeExitStatus: true
    errorFile: err.log
  - id: never
    command: touch never.txt
    writeExitStatus: true
`)

	registry := job.NewRegistry()
	err := runPlan(context.Background(), p, testLauncher(), nil, registry)
	if !errors.Is(err, apperrors.ErrJobFailed) {
		t.Fatalf("runPlan() error = %v, want ErrJobFailed", err)
	}
	if apperrors.ExitCode(err) != 2 {
		t.Errorf("ExitCode = %d, want 2", apperrors.ExitCode(err))
	}

	broken, _ := registry.Get("broken")
	if broken.State != job.StateFailed || broken.ExitCode == nil || *broken.ExitCode != 9 {
		t.Errorf("broken = %+v, want failed with exit code 9", broken)
	}
	never, _ := registry.Get("never")
	if never.State != job.StatePending {
		t.Errorf("never state = %s, want pending", never.State)
	}
	if _, err := os.Stat(filepath.Join(dir, "never.txt")); !os.IsNotExist(err) {
		t.Error("job after the failure should not run")
	}
}

func TestRunPlan_SubmissionExhausted(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := loadPlan(t, dir, `
workDir: .
jobs:
  - id: unsubmittable
    command: ./job.sh
    submit: exit 1
    repeat: 2
`)

	err := runPlan(context.Background(), p, testLauncher(), nil, job.NewRegistry())
	if !errors.Is(err, apperrors.ErrSubmissionExhausted) {
		t.Fatalf("runPlan() error = %v, want ErrSubmissionExhausted", err)
	}
}

type recordingExecutor struct {
	commands []string
	fail     bool
}

func (r *recordingExecutor) Submit(_ context.Context, command, _ string) error {
	r.commands = append(r.commands, command)
	if r.fail {
		return errors.New("exit status 2")
	}
	return nil
}

func TestRunPlan_MachineSteps(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := loadPlan(t, dir, `
workDir: .
jobs:
  - id: clean
    kind: clean
  - id: build
    kind: compile
  - id: sim
    command: "true"
    writeExitStatus: true
`)

	exec := &recordingExecutor{}
	m, err := machine.New(p.MachinePaths(), machine.Options{MPI: 1, OMP: 1}, machine.Flavor{}, machine.WithExecutor(exec))
	if err != nil {
		t.Fatalf("machine.New() error = %v", err)
	}

	registry := job.NewRegistry()
	if err := runPlan(context.Background(), p, testLauncher(), m, registry); err != nil {
		t.Fatalf("runPlan() error = %v", err)
	}
	if len(exec.commands) != 2 || exec.commands[0] != m.CleanCommand() || exec.commands[1] != m.CompileCommand() {
		t.Errorf("machine commands = %v", exec.commands)
	}
	if s, _ := registry.Get("build"); s.State != job.StateCompleted {
		t.Errorf("build state = %s", s.State)
	}
}

func TestRunPlan_CompileFailureStops(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := loadPlan(t, dir, `
workDir: .
jobs:
  - id: build
    kind: compile
  - id: sim
    command: touch sim.txt
    writeExitStatus: true
`)

	m, err := machine.New(p.MachinePaths(), machine.Options{MPI: 1, OMP: 1}, machine.Flavor{}, machine.WithExecutor(&recordingExecutor{fail: true}))
	if err != nil {
		t.Fatalf("machine.New() error = %v", err)
	}

	registry := job.NewRegistry()
	err = runPlan(context.Background(), p, testLauncher(), m, registry)
	if apperrors.ExitCode(err) != 2 {
		t.Fatalf("runPlan() error = %v, want exit code 2", err)
	}
	if s, _ := registry.Get("build"); s.State != job.StateFailed {
		t.Errorf("build state = %s, want failed", s.State)
	}
	if _, err := os.Stat(filepath.Join(dir, "sim.txt")); !os.IsNotExist(err) {
		t.Error("sim should not run after a failed compile")
	}
}

func TestNewBackend(t *testing.T) {
	t.Parallel()
	b, err := newBackend("shell")
	if err != nil {
		t.Fatalf("newBackend(shell) error = %v", err)
	}
	defer b.Close()

	if _, err := newBackend("slurm"); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("newBackend(slurm) error = %v, want ErrValidation", err)
	}
}
