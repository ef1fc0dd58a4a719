package launcher

import (
	"context"
	"joblauncher/internal/apperrors"
	"joblauncher/pkg/backoff"
	"log/slog"
)

// submit executes the job's submission command up to Repeat times. A
// nonzero exit from the submission step is treated as transient. It returns
// the number of attempts made.
//
// The exit-status channel is reset once by the caller before the first
// attempt; retries reuse it.
func (l *Launcher) submit(ctx context.Context, logger *slog.Logger, j *Job) (int, error) {
	var lastErr error
	for attempt := range j.Repeat {
		logger.Debug("Trying command", "command", j.SubmitCommand, "attempt", attempt+1)

		err := l.submitter.Submit(ctx, j.SubmitCommand, j.WorkDir)
		if l.metrics != nil {
			l.metrics.RecordSubmission(ctx, err == nil)
		}
		if err == nil {
			return attempt + 1, nil
		}
		if ctx.Err() != nil {
			return attempt + 1, ctx.Err()
		}

		lastErr = err
		logger.Warn("Command failed", "attempt", attempt+1, "command", j.SubmitCommand, "error", err)
		if attempt+1 == j.Repeat {
			break
		}

		logger.Debug("Wait and retry", "delay", l.cfg.SubmitBackoff.Delay(attempt))
		if err := backoff.Sleep(ctx, l.cfg.SubmitBackoff.Delay(attempt)); err != nil {
			return attempt + 1, err
		}
	}
	return j.Repeat, apperrors.SubmissionExhausted(j.ID, j.Repeat, lastErr)
}
