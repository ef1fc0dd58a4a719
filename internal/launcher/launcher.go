// Package launcher drives the submit, wait and resolve protocol for a job
// that runs detached from this process.
//
// A job is handed off by executing a submission command. Its completion is
// then observed only through the exit-status channel in its working
// directory: the launcher resets the channel to a sentinel before
// submission, polls until the sentinel changes, and reads the final status
// with a short tolerance window for filesystems that publish writes late.
package launcher

import (
	"context"
	"errors"
	"io"
	"joblauncher/internal/apperrors"
	"joblauncher/internal/job"
	"joblauncher/internal/statusfile"
	"joblauncher/pkg/cloudevent"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Submitter hands a command off for execution. A nil error means the
// submission step itself exited zero, not that the job succeeded.
type Submitter interface {
	Submit(ctx context.Context, command, workDir string) error
}

// Channel is the exit-status mailbox of one working directory.
type Channel interface {
	Reset() error
	Read() (string, error)
}

// ChannelFactory opens the channel for a working directory.
type ChannelFactory func(workDir string) Channel

// MetricsRecorder is an optional interface for recording launch metrics.
type MetricsRecorder interface {
	RecordSubmission(ctx context.Context, success bool)
	RecordStatusRead(ctx context.Context, transient bool)
	RecordJobStarted(ctx context.Context)
	RecordJobFinished(ctx context.Context, outcome string, durationSeconds float64)
}

// Tracker receives job status transitions.
type Tracker interface {
	Track(s job.Status)
}

// Notifier delivers lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, event *cloudevent.CloudEvent) error
}

// Launcher runs jobs one at a time. Concurrent Launch calls are serialized.
type Launcher struct {
	cfg        Config
	submitter  Submitter
	newChannel ChannelFactory
	metrics    MetricsRecorder
	tracker    Tracker
	notifier   Notifier
	events     *job.EventBuilder
	reportOut  io.Writer
	logger     *slog.Logger

	mu sync.Mutex
}

// Option customizes a Launcher.
type Option func(*Launcher)

// WithChannelFactory replaces the file-backed exit-status channel.
func WithChannelFactory(f ChannelFactory) Option {
	return func(l *Launcher) { l.newChannel = f }
}

// WithMetrics records launch metrics.
func WithMetrics(m MetricsRecorder) Option {
	return func(l *Launcher) { l.metrics = m }
}

// WithTracker publishes status transitions.
func WithTracker(t Tracker) Option {
	return func(l *Launcher) { l.tracker = t }
}

// WithNotifier sends lifecycle events.
func WithNotifier(n Notifier) Option {
	return func(l *Launcher) { l.notifier = n }
}

// WithReportWriter sets where failed jobs' error files are dumped
// (default: os.Stderr).
func WithReportWriter(w io.Writer) Option {
	return func(l *Launcher) { l.reportOut = w }
}

// New creates a Launcher.
func New(cfg Config, submitter Submitter, opts ...Option) *Launcher {
	l := &Launcher{
		cfg:       cfg.withDefaults(),
		submitter: submitter,
		newChannel: func(workDir string) Channel {
			return statusfile.New(workDir)
		},
		events:    job.NewEventBuilder("joblauncher/launcher", nil),
		reportOut: os.Stderr,
		logger:    slog.With("component", "launcher"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch submits j and blocks until its outcome is known.
//
// The returned error is non-nil only when the launch could not be set up
// (invalid job, channel not writable). Every other ending is described by
// the Result, whose Err and ProcessExitCode classify failures.
func (l *Launcher) Launch(ctx context.Context, j *Job) (*Result, error) {
	j, err := j.normalized()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	res := &Result{
		RunID:    uuid.NewString(),
		JobID:    j.ID,
		ExitCode: UnknownExitCode,
	}
	logger := l.logger.With("jobId", j.ID, "runId", res.RunID)

	ch := l.newChannel(j.WorkDir)
	if err := ch.Reset(); err != nil {
		logger.Error("Failed to initialize exit status channel", "workDir", j.WorkDir, "error", err)
		return nil, apperrors.Internal("statusfile.reset", err)
	}

	start := time.Now()
	if l.metrics != nil {
		l.metrics.RecordJobStarted(ctx)
	}
	l.track(res, job.StateSubmitting)

	attempts, err := l.submit(ctx, logger, j)
	res.Attempts = attempts
	if err != nil {
		if errors.Is(err, apperrors.ErrSubmissionExhausted) {
			logger.Error("Submission failed, giving up", "command", j.SubmitCommand, "attempts", attempts)
			return l.finish(ctx, res, start, OutcomeSubmissionExhausted, err), nil
		}
		return l.finish(ctx, res, start, OutcomeCancelled, apperrors.Cancelled(j.ID, err)), nil
	}

	logger.Debug("Submitted job with command", "command", j.BaseCommand, "maxDuration", j.MaxDuration)
	l.notify(ctx, logger, l.events.BuildSubmittedEvent(j.ID, res.RunID, j.BaseCommand, attempts))
	l.track(res, job.StateRunning)

	pollCtx := ctx
	if l.cfg.EnforceDeadline && j.MaxDuration > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, j.MaxDuration)
		defer cancel()
	}
	if err := l.poll(pollCtx, logger, ch); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			logger.Error("Max time exceeded for command", "command", j.BaseCommand, "maxDuration", j.MaxDuration)
			return l.finish(ctx, res, start, OutcomeTimedOut, apperrors.TimedOut(j.ID, err)), nil
		}
		return l.finish(ctx, res, start, OutcomeCancelled, apperrors.Cancelled(j.ID, err)), nil
	}

	l.track(res, job.StateResolving)
	status, err := l.resolve(ctx, logger, ch)
	res.RawStatus = status.raw
	if err != nil {
		return l.finish(ctx, res, start, OutcomeCancelled, apperrors.Cancelled(j.ID, err)), nil
	}
	if status.parsed {
		res.ExitCode = status.code
	}
	if status.parsed && status.code == 0 {
		return l.finish(ctx, res, start, OutcomeSucceeded, nil), nil
	}

	logger.Error("Execution failed for command", "command", j.BaseCommand, "status", status.raw)
	res.FailureRecord = l.report(logger, j.ErrorFile)
	return l.finish(ctx, res, start, OutcomeJobFailed, apperrors.JobFailed(j.ID, status.raw)), nil
}

// finish stamps the outcome and publishes it to metrics, tracker and notifier.
func (l *Launcher) finish(ctx context.Context, res *Result, start time.Time, outcome Outcome, err error) *Result {
	res.Outcome = outcome
	res.Duration = time.Since(start)
	res.err = err

	if l.metrics != nil {
		l.metrics.RecordJobFinished(context.WithoutCancel(ctx), string(outcome), res.Duration.Seconds())
	}

	state := job.StateCompleted
	if outcome != OutcomeSucceeded {
		state = job.StateFailed
	}
	l.track(res, state)

	logger := l.logger.With("jobId", res.JobID, "runId", res.RunID)
	l.notify(context.WithoutCancel(ctx), logger, l.events.BuildExitEvent(res.JobID, res.RunID, string(outcome), res.ExitCode, err))

	if outcome == OutcomeSucceeded {
		logger.Info("Job succeeded", "duration", res.Duration, "attempts", res.Attempts)
	} else {
		logger.Warn("Job did not succeed", "outcome", outcome, "exitCode", res.ExitCode, "error", err)
	}
	return res
}

func (l *Launcher) track(res *Result, state string) {
	if l.tracker == nil {
		return
	}
	s := job.Status{
		ID:       res.JobID,
		RunID:    res.RunID,
		State:    state,
		Outcome:  string(res.Outcome),
		Attempts: res.Attempts,
	}
	if state == job.StateCompleted || state == job.StateFailed {
		if res.ExitCode != UnknownExitCode {
			code := res.ExitCode
			s.ExitCode = &code
		}
		if res.err != nil {
			s.Error = res.err.Error()
		}
	}
	l.tracker.Track(s)
}

func (l *Launcher) notify(ctx context.Context, logger *slog.Logger, event *cloudevent.CloudEvent) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Notify(ctx, event); err != nil {
		logger.Warn("Failed to send lifecycle event", "type", event.Type, "callbackError", err)
	}
}
