// Package health provides health check functionality for liveness and readiness probes.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// ReadinessChecker is the interface for readiness checks.
// Implemented by submitters to verify they can hand off work.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// CheckFunc adapts a function to ReadinessChecker.
type CheckFunc func(ctx context.Context) error

// Ready calls f.
func (f CheckFunc) Ready(ctx context.Context) error {
	return f(ctx)
}

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult contains the result of a health check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response is the health check response.
type Response struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type namedCheck struct {
	name     string
	checker  ReadinessChecker
	required bool
}

// Checker performs health checks on dependencies.
type Checker struct {
	submitter ReadinessChecker
	extra     []namedCheck
	timeout   time.Duration

	mu           sync.RWMutex
	lastCheck    time.Time
	cachedReady  *Response
	shuttingDown bool
}

// Option customizes a Checker.
type Option func(*Checker)

// WithCheck adds a readiness check. A failing required check makes the
// service unhealthy; an optional one only degrades it.
func WithCheck(name string, checker ReadinessChecker, required bool) Option {
	return func(c *Checker) {
		c.extra = append(c.extra, namedCheck{name: name, checker: checker, required: required})
	}
}

// NewChecker creates a new health checker.
func NewChecker(submitter ReadinessChecker, opts ...Option) *Checker {
	c := &Checker{
		submitter: submitter,
		timeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Liveness returns true if the service is alive.
// This should be a lightweight check that doesn't depend on external services.
func (c *Checker) Liveness(ctx context.Context) *Response {
	return &Response{
		Status: StatusHealthy,
	}
}

// Readiness checks whether jobs can be submitted: the submit backend and
// any extra checks.
func (c *Checker) Readiness(ctx context.Context) *Response {
	c.mu.RLock()
	// Return unhealthy immediately if shutting down
	if c.shuttingDown {
		c.mu.RUnlock()
		return &Response{
			Status: StatusUnhealthy,
			Checks: map[string]CheckResult{
				"shutdown": {Status: StatusUnhealthy, Message: "service is shutting down"},
			},
		}
	}

	// Use cached result if recent (avoid hammering the Docker daemon)
	if c.cachedReady != nil && time.Since(c.lastCheck) < time.Second {
		cached := c.cachedReady
		c.mu.RUnlock()
		return cached
	}
	c.mu.RUnlock()

	checks := make(map[string]CheckResult)
	overallStatus := StatusHealthy

	submitterCheck := c.check(ctx, c.submitter, "submitter not configured")
	checks["submitter"] = submitterCheck
	if submitterCheck.Status != StatusHealthy {
		overallStatus = StatusUnhealthy
	}

	for _, nc := range c.extra {
		result := c.check(ctx, nc.checker, nc.name+" not configured")
		checks[nc.name] = result
		if result.Status == StatusHealthy {
			continue
		}
		if nc.required {
			overallStatus = StatusUnhealthy
		} else if overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	response := &Response{
		Status: overallStatus,
		Checks: checks,
	}

	// Cache the result
	c.mu.Lock()
	c.cachedReady = response
	c.lastCheck = time.Now()
	c.mu.Unlock()

	return response
}

func (c *Checker) check(ctx context.Context, checker ReadinessChecker, missing string) CheckResult {
	if checker == nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: missing,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := checker.Ready(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: err.Error(),
		}
	}

	return CheckResult{
		Status: StatusHealthy,
	}
}

// IsHealthy returns true if the overall status is healthy.
func (r *Response) IsHealthy() bool {
	return r.Status == StatusHealthy
}

// SetShuttingDown marks the service as shutting down.
// This causes readiness checks to return unhealthy.
func (c *Checker) SetShuttingDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shuttingDown = true
	c.cachedReady = nil // Clear cache to ensure immediate effect
}

// DirWritable checks that dir exists and a file can be created in it, which
// is what resetting an exit-status channel needs.
func DirWritable(dir string) CheckFunc {
	return func(ctx context.Context) error {
		f, err := os.CreateTemp(dir, ".joblauncher-ready-*")
		if err != nil {
			return fmt.Errorf("work dir not writable: %w", err)
		}
		name := f.Name()
		f.Close()
		return os.Remove(name)
	}
}
