// Package notify delivers job lifecycle events to a callback URL.
//
// Delivery is synchronous and best-effort: the launcher runs one job at a
// time, so a short bounded retry is preferable to a background queue that
// could outlive the process.
package notify

import (
	"context"
	"fmt"
	"joblauncher/internal/job"
	"joblauncher/pkg/backoff"
	"joblauncher/pkg/circuitbreaker"
	"joblauncher/pkg/cloudevent"
	"log/slog"
	"time"
)

const defaultMaxRetries = 3

// Config holds callback settings.
type Config struct {
	URL        string
	Events     []string // empty = all events
	SigningKey string
	Timeout    time.Duration  // per-request timeout (default: 10s)
	MaxRetries int            // retries after the first attempt (default: 3)
	Backoff    backoff.Policy // default: exponential 100ms..5s
	Metrics    Recorder       // optional

	// Breaker stops delivery to an endpoint that keeps failing, so a dead
	// callback receiver does not add retry latency to every job.
	Breaker circuitbreaker.Config
}

// Recorder is an optional interface for recording delivery metrics.
type Recorder interface {
	RecordNotification(ctx context.Context, delivered bool, durationSeconds float64)
}

// Notifier sends lifecycle events. A Notifier with no URL is a no-op.
type Notifier struct {
	cfg     Config
	sender  *cloudevent.Sender
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

// New creates a Notifier.
func New(cfg Config) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Backoff == nil {
		cfg.Backoff = backoff.Config{}
	}
	return &Notifier{
		cfg:     cfg,
		sender:  cloudevent.NewSender(cfg.Timeout),
		breaker: circuitbreaker.New(cfg.Breaker),
		logger:  slog.With("component", "notify"),
	}
}

// Enabled reports whether a callback URL is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.cfg.URL != ""
}

// Notify delivers event, retrying transient failures. Events filtered out by
// Config.Events are skipped without error.
func (n *Notifier) Notify(ctx context.Context, event *cloudevent.CloudEvent) error {
	if !n.Enabled() {
		return nil
	}
	if !job.FilteredEvents(event.Type, n.cfg.Events) {
		return nil
	}

	start := time.Now()
	if !n.breaker.Allow() {
		n.logger.Debug("Callback endpoint unhealthy, skipping event", "type", event.Type, "subject", event.Subject)
		n.record(ctx, false, start)
		return fmt.Errorf("failed to deliver %s: %w", event.Type, circuitbreaker.ErrOpen)
	}

	err := n.deliver(ctx, event)
	n.record(ctx, err == nil, start)
	if err == nil || cloudevent.IsClientError(err) {
		// A 4xx still proves the receiver is up.
		n.breaker.RecordSuccess()
	} else {
		n.breaker.RecordFailure()
	}
	if err != nil {
		return fmt.Errorf("failed to deliver %s: %w", event.Type, err)
	}
	return nil
}

func (n *Notifier) deliver(ctx context.Context, event *cloudevent.CloudEvent) error {
	opts := cloudevent.SendOptions{SigningKey: n.cfg.SigningKey}

	var lastErr error
	for attempt := range n.cfg.MaxRetries + 1 {
		if attempt > 0 {
			if err := backoff.Sleep(ctx, n.cfg.Backoff.Delay(attempt)); err != nil {
				return err
			}
		}

		lastErr = n.sender.Send(ctx, n.cfg.URL, event, opts)
		if lastErr == nil {
			n.logger.Debug("Event delivered", "type", event.Type, "subject", event.Subject, "attempt", attempt+1)
			return nil
		}
		if cloudevent.IsClientError(lastErr) {
			break
		}
	}
	return lastErr
}

func (n *Notifier) record(ctx context.Context, delivered bool, start time.Time) {
	if n.cfg.Metrics != nil {
		n.cfg.Metrics.RecordNotification(ctx, delivered, time.Since(start).Seconds())
	}
}
