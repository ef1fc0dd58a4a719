package machine

import (
	"context"
	"errors"
	"joblauncher/internal/apperrors"
	"joblauncher/internal/statusfile"
	"joblauncher/internal/submit"
	"os"
	"path/filepath"
	"testing"
)

type recordingExecutor struct {
	commands []string
	dirs     []string
	err      error
}

func (r *recordingExecutor) Submit(_ context.Context, command, workDir string) error {
	r.commands = append(r.commands, command)
	r.dirs = append(r.dirs, workDir)
	return r.err
}

func newTestMachine(t *testing.T, opts Options, exec Executor) *Machine {
	t.Helper()
	m, err := New(Paths{
		Root:          "/src/smilei",
		CompileOut:    "/tmp/compile.out",
		CompileErrors: "/tmp/compile.err",
		WorkDirs:      "/runs/",
		OutputFile:    "smilei_exe.out",
	}, opts, Flavor{Name: FlavorOpenMPI, Version: "4.1.5"}, WithExecutor(exec))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestMachine_Commands(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, Options{MPI: 4, OMP: 2}, &recordingExecutor{})
	if got, want := m.CompileCommand(), "make -j 4 > /tmp/compile.out 2>/tmp/compile.err"; got != want {
		t.Errorf("CompileCommand() = %q, want %q", got, want)
	}
	if got, want := m.CleanCommand(), "make clean > /dev/null 2>&1"; got != want {
		t.Errorf("CleanCommand() = %q, want %q", got, want)
	}
	want := "export OMP_NUM_THREADS=2; mpirun --oversubscribe -np 4 --map-by ppr:4:socket:pe=2 /runs/smilei tst1d.py > smilei_exe.out"
	if got := m.RunCommand("tst1d.py"); got != want {
		t.Errorf("RunCommand() = %q, want %q", got, want)
	}

	withMode := newTestMachine(t, Options{MPI: 1, OMP: 1, CompileMode: "debug"}, &recordingExecutor{})
	if got, want := withMode.CompileCommand(), "make config=debug -j 4 > /tmp/compile.out 2>/tmp/compile.err"; got != want {
		t.Errorf("CompileCommand() = %q, want %q", got, want)
	}
}

func TestMachine_RunCommandKeepsPercentSigns(t *testing.T) {
	t.Parallel()
	m := newTestMachine(t, Options{MPI: 1, OMP: 1}, &recordingExecutor{})
	got := m.RunCommand(`in.py "x=5%"`)
	want := `export OMP_NUM_THREADS=1; mpirun --oversubscribe -np 1 --map-by ppr:1:socket:pe=1 /runs/smilei in.py "x=5%" > smilei_exe.out`
	if got != want {
		t.Errorf("RunCommand() = %q, want %q", got, want)
	}
}

func TestNew_ValidatesOptions(t *testing.T) {
	t.Parallel()
	for _, opts := range []Options{{MPI: 0, OMP: 1}, {MPI: 1, OMP: 0}} {
		_, err := New(Paths{}, opts, Flavor{})
		if !errors.Is(err, apperrors.ErrValidation) {
			t.Errorf("New(%+v) error = %v, want ErrValidation", opts, err)
		}
	}
}

func TestMachine_ShellFailsLoud(t *testing.T) {
	t.Parallel()
	exec := &recordingExecutor{err: errors.New("exit status 2")}
	m := newTestMachine(t, Options{MPI: 1, OMP: 1}, exec)

	err := m.Compile(context.Background())
	if !errors.Is(err, apperrors.ErrJobFailed) {
		t.Fatalf("Compile() error = %v, want ErrJobFailed", err)
	}
	if apperrors.ExitCode(err) != 2 {
		t.Errorf("ExitCode = %d, want 2", apperrors.ExitCode(err))
	}
	if len(exec.dirs) != 1 || exec.dirs[0] != "/src/smilei" {
		t.Errorf("commands ran in %v, want /src/smilei", exec.dirs)
	}
}

func TestMachine_CleanIgnoresFailure(t *testing.T) {
	t.Parallel()
	exec := &recordingExecutor{err: errors.New("no makefile")}
	m := newTestMachine(t, Options{MPI: 1, OMP: 1}, exec)

	m.Clean(context.Background())
	if len(exec.commands) != 1 || exec.commands[0] != m.CleanCommand() {
		t.Errorf("commands = %v", exec.commands)
	}
}

func TestWithExitStatus(t *testing.T) {
	t.Parallel()

	if got, want := WithExitStatus("./run.sh a b", "/w/exit_status_file"), "(./run.sh a b); echo $? > '/w/exit_status_file'"; got != want {
		t.Errorf("WithExitStatus() = %q, want %q", got, want)
	}
	if got, want := WithExitStatus("true", "/w/it's"), `(true); echo $? > '/w/it'\''s'`; got != want {
		t.Errorf("WithExitStatus() = %q, want %q", got, want)
	}
}

func TestWithExitStatus_PublishesCode(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ch := statusfile.New(dir)
	if err := ch.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	shell := submit.NewShell(submit.WithOutput(os.Stdout, os.Stderr))
	if err := shell.Submit(context.Background(), WithExitStatus("exit 5", ch.Path()), dir); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	raw, err := ch.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if raw != "5" {
		t.Errorf("channel = %q, want 5", raw)
	}
	if _, err := os.Stat(filepath.Join(dir, statusfile.FileName)); err != nil {
		t.Errorf("channel file missing: %v", err)
	}
}

func TestLoadOptionsFromEnv(t *testing.T) {
	t.Setenv("LAUNCHER_MPI", "8")
	t.Setenv("LAUNCHER_OMP", "4")
	t.Setenv("LAUNCHER_COMPILE_MODE", "release")

	opts := LoadOptionsFromEnv()
	if opts.MPI != 8 || opts.OMP != 4 || opts.CompileMode != "release" {
		t.Errorf("LoadOptionsFromEnv() = %+v", opts)
	}
}
