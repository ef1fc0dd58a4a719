package launcher

import (
	"context"
	"joblauncher/internal/apperrors"
	"joblauncher/internal/statusfile"
	"joblauncher/pkg/backoff"
	"log/slog"
)

// resolution is what the resolver concluded from the channel.
type resolution struct {
	code   int
	raw    string
	parsed bool
}

// resolve turns the channel content into an exit code. Each attempt i
// waits ResolveBackoff.Delay(i) and re-reads the channel. Zero returns
// immediately. Unreadable or unparsable reads are transient and retried.
// A nonzero code is remembered but re-read until the attempts run out, so
// a job is never judged failed while its last write may still be
// propagating.
//
// The only error returned is ctx's.
func (l *Launcher) resolve(ctx context.Context, logger *slog.Logger, ch Channel) (resolution, error) {
	var last resolution
	for attempt := range l.cfg.ResolveAttempts {
		if err := backoff.Sleep(ctx, l.cfg.ResolveBackoff.Delay(attempt)); err != nil {
			return last, err
		}

		raw, err := ch.Read()
		if err != nil {
			l.recordStatusRead(ctx, true)
			logger.Debug("Retrying status read", "attempt", attempt+1, "error", apperrors.TransientStatus("", err))
			continue
		}
		logger.Info("Exited with", "status", raw, "attempt", attempt+1)

		code, err := statusfile.ParseCode(raw)
		if err != nil {
			l.recordStatusRead(ctx, true)
			if !last.parsed {
				last.raw = raw
			}
			logger.Debug("Retrying status read", "attempt", attempt+1, "error", apperrors.TransientStatus(raw, err))
			continue
		}
		l.recordStatusRead(ctx, false)

		last = resolution{code: code, raw: raw, parsed: true}
		if code == 0 {
			return last, nil
		}
	}
	return last, nil
}

func (l *Launcher) recordStatusRead(ctx context.Context, transient bool) {
	if l.metrics != nil {
		l.metrics.RecordStatusRead(ctx, transient)
	}
}
