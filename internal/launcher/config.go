package launcher

import (
	"joblauncher/internal/config"
	"joblauncher/pkg/backoff"
	"time"
)

// Protocol defaults, in time units.
const (
	defaultSubmitBackoffUnits = 10
	defaultPollIntervalUnits  = 1
	defaultResolveAttempts    = 5
)

// Config controls launcher timing. It is passed by value and never mutated
// after New.
type Config struct {
	// TimeUnit is the length of one protocol time unit (default 1s).
	TimeUnit time.Duration

	// SubmitBackoff is the wait between failed submission attempts
	// (default: fixed 10 units).
	SubmitBackoff backoff.Policy

	// PollInterval is the wait before each completion poll (default 1 unit).
	PollInterval time.Duration

	// ResolveAttempts bounds the status resolver's reads (default 5).
	ResolveAttempts int

	// ResolveBackoff is the wait before each resolver read
	// (default: linear, attempt i waits i units).
	ResolveBackoff backoff.Policy

	// EnforceDeadline bounds polling by the job's MaxDuration when set.
	EnforceDeadline bool
}

// DefaultConfig returns the launcher's standard timing with one-second units.
func DefaultConfig() Config {
	return Config{TimeUnit: time.Second, EnforceDeadline: true}.withDefaults()
}

// LoadConfigFromEnv loads launcher configuration from environment variables.
func LoadConfigFromEnv() Config {
	unit := config.GetDurationEnv("LAUNCHER_TIME_UNIT", time.Second)
	if unit <= 0 {
		unit = time.Second
	}
	cfg := Config{
		TimeUnit:        unit,
		SubmitBackoff:   backoff.Fixed(time.Duration(config.GetIntEnv("LAUNCHER_SUBMIT_BACKOFF_UNITS", defaultSubmitBackoffUnits)) * unit),
		ResolveAttempts: config.GetIntEnv("LAUNCHER_RESOLVE_ATTEMPTS", defaultResolveAttempts),
		EnforceDeadline: config.GetBoolEnv("LAUNCHER_ENFORCE_DEADLINE", true),
	}
	return cfg.withDefaults()
}

// withDefaults fills in zero values with defaults derived from TimeUnit.
func (c Config) withDefaults() Config {
	if c.TimeUnit <= 0 {
		c.TimeUnit = time.Second
	}
	if c.SubmitBackoff == nil {
		c.SubmitBackoff = backoff.Fixed(defaultSubmitBackoffUnits * c.TimeUnit)
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollIntervalUnits * c.TimeUnit
	}
	if c.ResolveAttempts <= 0 {
		c.ResolveAttempts = defaultResolveAttempts
	}
	if c.ResolveBackoff == nil {
		c.ResolveBackoff = backoff.Linear(c.TimeUnit)
	}
	return c
}
