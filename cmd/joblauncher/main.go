// joblauncher runs a plan of batch jobs in order: each job is submitted,
// waited on through its exit-status file, and resolved to an outcome.
// The process exits 0 when every job succeeded and 2 otherwise.
package main

import (
	"context"
	"errors"
	"fmt"
	"joblauncher/internal/api"
	"joblauncher/internal/apperrors"
	"joblauncher/internal/config"
	"joblauncher/internal/health"
	"joblauncher/internal/job"
	"joblauncher/internal/launcher"
	"joblauncher/internal/machine"
	"joblauncher/internal/notify"
	"joblauncher/internal/observability"
	"joblauncher/internal/plan"
	"joblauncher/internal/submit"
	"joblauncher/pkg/circuitbreaker"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// backend is what the launcher needs from a submit backend.
type backend interface {
	launcher.Submitter
	health.ReadinessChecker
	Close() error
}

func main() {
	svcCfg := config.LoadServiceConfig()

	level := slog.LevelInfo
	if svcCfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if len(os.Args) > 1 {
		svcCfg.PlanPath = os.Args[1]
	}

	if err := run(svcCfg); err != nil {
		slog.Error("Launcher failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(svcCfg *config.ServiceConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := plan.Load(svcCfg.PlanPath)
	if err != nil {
		return err
	}
	slog.Info("Loaded job plan", "path", svcCfg.PlanPath, "jobs", len(p.Jobs), "workDir", p.WorkDir)

	m, err := newMachine(ctx, p)
	if err != nil {
		return err
	}

	submitter, err := newBackend(svcCfg.Backend)
	if err != nil {
		return err
	}
	defer submitter.Close()

	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return apperrors.Internal("observability.init", err)
	}

	registry := job.NewRegistry()

	notifier := notify.New(notify.Config{
		URL:        svcCfg.CallbackURL,
		Events:     svcCfg.CallbackEvents,
		SigningKey: svcCfg.CallbackKey,
		Timeout:    svcCfg.CallbackTimeout,
		Metrics:    metrics,
		Breaker: circuitbreaker.Config{
			Threshold: svcCfg.CallbackBreakerThreshold,
			Cooldown:  svcCfg.CallbackBreakerCooldown,
		},
	})

	opts := []launcher.Option{
		launcher.WithMetrics(metrics),
		launcher.WithTracker(registry),
	}
	if notifier.Enabled() {
		opts = append(opts, launcher.WithNotifier(notifier))
		slog.Info("Lifecycle callbacks enabled", "events", svcCfg.CallbackEvents)
	}
	l := launcher.New(launcher.LoadConfigFromEnv(), submitter, opts...)

	var checks []health.Option
	if p.WorkDir != "" {
		checks = append(checks, health.WithCheck("workdir", health.DirWritable(p.WorkDir), true))
	}
	healthChecker := health.NewChecker(submitter, checks...)

	if svcCfg.MetricsPort != "" {
		server := startAdminServer(svcCfg, api.NewRouter(api.RouterConfig{
			Jobs:           registry,
			Metrics:        metrics,
			MetricsHandler: metricsHandler,
			HealthChecker:  healthChecker,
			APIKey:         svcCfg.APIKey,
		}))
		defer func() {
			healthChecker.SetShuttingDown()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Admin server shutdown error", "error", err)
			}
		}()
	}

	return runPlan(ctx, p, l, m, registry)
}

// newMachine builds the host command templates when the plan uses them.
// MPI is only probed for plans with run jobs.
func newMachine(ctx context.Context, p *plan.Plan) (*machine.Machine, error) {
	if !p.NeedsMachine() {
		return nil, nil
	}

	var flavor machine.Flavor
	if p.Has(plan.KindRun) {
		var err error
		flavor, err = machine.Detect(ctx, machine.ExecRunner)
		if err != nil {
			return nil, &apperrors.Error{
				Sentinel: apperrors.ErrValidation,
				Message:  fmt.Sprintf("cannot drive MPI on this host: %v", err),
				Field:    "machine",
				Cause:    err,
			}
		}
		slog.Info("Detected MPI launcher", "flavor", flavor.Name, "version", flavor.Version)
	}

	return machine.New(p.MachinePaths(), p.MachineOptions(machine.LoadOptionsFromEnv()), flavor)
}

func newBackend(name string) (backend, error) {
	switch name {
	case config.BackendShell:
		return submit.NewShell(), nil
	case config.BackendDocker:
		d, err := submit.NewDocker(submit.LoadDockerConfigFromEnv())
		if err != nil {
			return nil, apperrors.Internal("submit.docker", err)
		}
		return d, nil
	default:
		return nil, apperrors.Validation("backend", fmt.Sprintf("unknown backend %q (want %s or %s)", name, config.BackendShell, config.BackendDocker))
	}
}

func startAdminServer(svcCfg *config.ServiceConfig, handler http.Handler) *http.Server {
	server := &http.Server{
		Addr:         ":" + svcCfg.MetricsPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if svcCfg.APIKey == "" {
		slog.Warn("Admin authentication disabled - no ADMIN_API_KEY_FILE configured")
	}

	go func() {
		slog.Info("Starting admin server", "port", svcCfg.MetricsPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Admin server failed", "error", err)
		}
	}()
	return server
}
