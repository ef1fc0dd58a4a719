package plan

import (
	"fmt"
	"joblauncher/internal/apperrors"
	"regexp"
)

// Validation limits
const (
	maxJobIDLength  = 128
	maxDurationSecs = 86400 // 24 hours
	maxRepeat       = 100
	maxJobs         = 1000
)

// jobIDPattern allows alphanumeric, hyphens, and underscores
var jobIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// applyDefaults sets default values for unspecified job fields. An omitted
// maxDurationSeconds stays 0, which leaves the job unbounded.
func applyDefaults(p *Plan) {
	for i := range p.Jobs {
		j := &p.Jobs[i]
		if j.Kind == "" {
			j.Kind = KindCommand
		}
		if j.Repeat == 0 {
			j.Repeat = 1
		}
		if j.WorkDir == "" {
			j.WorkDir = p.WorkDir
		}
	}
}

// validate validates a plan after defaults. Does not modify the plan.
func validate(p *Plan) error {
	if len(p.Jobs) == 0 {
		return apperrors.Validation("jobs", "plan has no jobs")
	}
	if len(p.Jobs) > maxJobs {
		return apperrors.Validation("jobs", fmt.Sprintf("plan exceeds maximum of %d jobs", maxJobs))
	}
	if m := p.Machine; m != nil {
		if m.MPI < 0 {
			return apperrors.Validation("machine.mpi", "MPI ranks cannot be negative")
		}
		if m.OMP < 0 {
			return apperrors.Validation("machine.omp", "OpenMP threads cannot be negative")
		}
	}

	seen := make(map[string]struct{}, len(p.Jobs))
	for i := range p.Jobs {
		j := &p.Jobs[i]
		if err := validateJob(j); err != nil {
			return err
		}
		if _, dup := seen[j.ID]; dup {
			return apperrors.Validation("id", fmt.Sprintf("duplicate job ID %q", j.ID))
		}
		seen[j.ID] = struct{}{}
	}
	return nil
}

func validateJob(j *Job) error {
	if j.ID == "" {
		return apperrors.Validation("id", "job ID is required")
	}
	if len(j.ID) > maxJobIDLength {
		return apperrors.Validation("id", fmt.Sprintf("job ID exceeds maximum length of %d", maxJobIDLength))
	}
	if !jobIDPattern.MatchString(j.ID) {
		return apperrors.Validation("id", "job ID must be alphanumeric (hyphens and underscores allowed, cannot start with hyphen/underscore)")
	}

	field := func(name string) string { return j.ID + "." + name }

	switch j.Kind {
	case KindCommand:
		if j.Command == "" {
			return apperrors.Validation(field("command"), "command is required")
		}
	case KindRun:
		if j.Command != "" {
			return apperrors.Validation(field("command"), "run jobs take args, not a command")
		}
	case KindCompile, KindClean:
		if j.Command != "" || j.Args != "" || j.Submit != "" {
			return apperrors.Validation(field("kind"), fmt.Sprintf("%s jobs take no command, args or submit", j.Kind))
		}
		return nil
	default:
		return apperrors.Validation(field("kind"), fmt.Sprintf("unknown kind %q", j.Kind))
	}

	if j.WorkDir == "" {
		return apperrors.Validation(field("workDir"), "working directory is required")
	}
	if j.MaxDurationSeconds < 0 {
		return apperrors.Validation(field("maxDurationSeconds"), "maxDurationSeconds cannot be negative")
	}
	if j.MaxDurationSeconds > maxDurationSecs {
		return apperrors.Validation(field("maxDurationSeconds"), fmt.Sprintf("maxDurationSeconds exceeds maximum of %d seconds", maxDurationSecs))
	}
	if j.Repeat < 0 {
		return apperrors.Validation(field("repeat"), "repeat cannot be negative")
	}
	if j.Repeat > maxRepeat {
		return apperrors.Validation(field("repeat"), fmt.Sprintf("repeat exceeds maximum of %d", maxRepeat))
	}
	return nil
}
