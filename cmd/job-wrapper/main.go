// job-wrapper runs a job's command and writes its exit code into the
// exit-status file the launcher polls, so jobs that do not report their own
// status still complete the protocol.
//
// Usage: job-wrapper [-status-file PATH] [-timeout DURATION] -- command [args...]
package main

import (
	"context"
	"flag"
	"fmt"
	"joblauncher/internal/wrapper"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := wrapper.LoadConfigFromEnv()

	fs := flag.NewFlagSet("job-wrapper", flag.ContinueOnError)
	fs.StringVar(&cfg.StatusFile, "status-file", cfg.StatusFile, "exit-status file to publish into")
	fs.StringVar(&cfg.JobID, "job-id", cfg.JobID, "job ID for logs")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "terminate the command after this long (0 = no limit)")
	fs.DurationVar(&cfg.GracePeriod, "grace-period", cfg.GracePeriod, "wait after SIGTERM before killing the command")
	if err := fs.Parse(args); err != nil {
		return wrapper.ExitCannotExecute
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: job-wrapper [flags] -- command [args...]")
		return wrapper.ExitCannotExecute
	}

	runner, err := wrapper.NewRunner(cfg)
	if err != nil {
		slog.Error("Wrapper failed", "error", err)
		return wrapper.ExitCannotExecute
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A publish failure is logged by the runner; the command's own code is
	// still the right process status.
	code, _ := runner.Run(ctx, fs.Args())
	return code
}
