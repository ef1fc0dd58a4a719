package machine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Flavor names.
const (
	FlavorOpenMPI = "openmpi"
	FlavorMPIRun  = "mpirun"
	FlavorSlurm   = "slurm"
)

// ErrUnsupportedMPI is returned when the installed MPI cannot be driven.
var ErrUnsupportedMPI = errors.New("unsupported MPI installation")

var (
	openMPIPattern = regexp.MustCompile(`(?i)open mpi`)
	versionPattern = regexp.MustCompile(`\d\d?\.\d\d?\.\d\d?`)
	slurmPattern   = regexp.MustCompile(`(?i)mpiexec\.slurm -n 4`)
)

// Flavor is the MPI launcher found on this host.
type Flavor struct {
	Name    string
	Version string
}

// Launcher renders the MPI launch prefix for the given rank and thread counts.
func (f Flavor) Launcher(ranks, threads int) string {
	switch f.Name {
	case FlavorOpenMPI:
		return fmt.Sprintf("mpirun --oversubscribe -np %d --map-by ppr:%d:socket:pe=%d", ranks, ranks, threads)
	case FlavorSlurm:
		return fmt.Sprintf("mpiexec -n %d", ranks)
	default:
		return fmt.Sprintf("mpirun -np %d --map-by ppr:%d:socket:pe=%d", ranks, ranks, threads)
	}
}

// Runner executes a probe command and returns its standard output.
type Runner func(ctx context.Context, command string) ([]byte, error)

// ExecRunner runs probes through /bin/sh.
func ExecRunner(ctx context.Context, command string) ([]byte, error) {
	return exec.CommandContext(ctx, "/bin/sh", "-c", command).Output()
}

// Detect probes `mpirun --version`, falling back to `mpiexec -help` when
// mpirun is missing or fails.
func Detect(ctx context.Context, run Runner) (Flavor, error) {
	if run == nil {
		run = ExecRunner
	}

	out, err := run(ctx, "mpirun --version")
	if err == nil {
		return classifyMPIRun(string(out))
	}

	help, helpErr := run(ctx, "mpiexec -help")
	if helpErr == nil && slurmPattern.Match(help) {
		return Flavor{Name: FlavorSlurm}, nil
	}
	return Flavor{}, fmt.Errorf("%w: mpirun --version: %v", ErrUnsupportedMPI, err)
}

func classifyMPIRun(version string) (Flavor, error) {
	if !openMPIPattern.MatchString(version) {
		return Flavor{Name: FlavorMPIRun}, nil
	}

	full := versionPattern.FindString(version)
	if full == "" {
		return Flavor{}, fmt.Errorf("%w: cannot read Open MPI version from %q", ErrUnsupportedMPI, strings.TrimSpace(version))
	}
	major, err := strconv.Atoi(strings.SplitN(full, ".", 2)[0])
	if err != nil {
		return Flavor{}, fmt.Errorf("%w: %v", ErrUnsupportedMPI, err)
	}
	if major <= 1 {
		return Flavor{}, fmt.Errorf("%w: Open MPI version > 1 required, found %s", ErrUnsupportedMPI, full)
	}
	return Flavor{Name: FlavorOpenMPI, Version: full}, nil
}
