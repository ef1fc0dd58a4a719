package main

import (
	"context"
	"joblauncher/internal/job"
	"joblauncher/internal/launcher"
	"joblauncher/internal/machine"
	"joblauncher/internal/plan"
	"log/slog"
	"time"
)

// runPlan executes the plan's jobs in order and stops at the first failure.
// m may be nil when no job needs it.
func runPlan(ctx context.Context, p *plan.Plan, l *launcher.Launcher, m *machine.Machine, registry *job.Registry) error {
	for _, j := range p.Jobs {
		registry.Declare(j.ID)
	}

	var templater plan.RunTemplater
	if m != nil {
		templater = m
	}

	start := time.Now()
	for i, j := range p.Jobs {
		logger := slog.With("jobId", j.ID, "kind", j.Kind, "step", i+1, "of", len(p.Jobs))

		if !j.Launched() {
			if err := runOnMachine(ctx, logger, j, m, registry); err != nil {
				return err
			}
			continue
		}

		lj, err := plan.LauncherJob(j, templater)
		if err != nil {
			return err
		}
		res, err := l.Launch(ctx, lj)
		if err != nil {
			return err
		}
		if !res.Succeeded() {
			logger.Error("Stopping plan", "outcome", res.Outcome, "exitCode", res.ExitCode)
			return res.Err()
		}
	}

	slog.Info("All jobs succeeded", "jobs", len(p.Jobs), "duration", time.Since(start))
	return nil
}

// runOnMachine runs compile and clean steps synchronously.
func runOnMachine(ctx context.Context, logger *slog.Logger, j plan.Job, m *machine.Machine, registry *job.Registry) error {
	registry.Track(job.Status{ID: j.ID, State: job.StateRunning})

	switch j.Kind {
	case plan.KindClean:
		m.Clean(ctx)
	case plan.KindCompile:
		logger.Info("Compiling")
		if err := m.Compile(ctx); err != nil {
			logger.Error("Compilation failed", "error", err)
			registry.Track(job.Status{ID: j.ID, State: job.StateFailed, Error: err.Error()})
			return err
		}
	}

	registry.Track(job.Status{ID: j.ID, State: job.StateCompleted})
	return nil
}
