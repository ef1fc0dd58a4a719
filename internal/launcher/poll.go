package launcher

import (
	"context"
	"joblauncher/internal/statusfile"
	"joblauncher/pkg/backoff"
	"log/slog"
)

// poll blocks until the channel holds anything other than the sentinel.
// Comparison is textual: a malformed value ends polling too. A failed read
// counts as "unchanged". Only ctx ends polling early.
func (l *Launcher) poll(ctx context.Context, logger *slog.Logger, ch Channel) error {
	for {
		if err := backoff.Sleep(ctx, l.cfg.PollInterval); err != nil {
			return err
		}

		raw, err := ch.Read()
		if err != nil {
			logger.Debug("Exit status channel unreadable, still waiting", "error", err)
			continue
		}
		if raw != statusfile.Sentinel {
			return nil
		}
	}
}
