// Package config provides configuration loading from environment variables.
package config

import (
	"time"
)

// Backend names accepted in LAUNCHER_BACKEND.
const (
	BackendShell  = "shell"
	BackendDocker = "docker"
)

// ServiceConfig holds process-level configuration for cmd/joblauncher.
type ServiceConfig struct {
	PlanPath        string
	Backend         string
	Verbose         bool
	MetricsPort     string // empty disables the admin server
	APIKey          string // bearer token for /v1/jobs; empty disables auth
	CallbackURL     string
	CallbackEvents  []string
	CallbackKey     string
	CallbackTimeout time.Duration

	// Consecutive delivery failures before callbacks are skipped, and for
	// how long.
	CallbackBreakerThreshold int
	CallbackBreakerCooldown  time.Duration
}

// LoadServiceConfig loads service configuration from environment variables.
func LoadServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		PlanPath:        GetEnv("LAUNCHER_PLAN", "jobs.yaml"),
		Backend:         GetEnv("LAUNCHER_BACKEND", BackendShell),
		Verbose:         GetBoolEnv("LAUNCHER_VERBOSE", false),
		MetricsPort:     GetEnv("METRICS_PORT", ""),
		APIKey:          GetSecretFile(GetEnv("ADMIN_API_KEY_FILE", "")),
		CallbackURL:     GetEnv("CALLBACK_URL", ""),
		CallbackEvents:  GetListEnv("CALLBACK_EVENTS"),
		CallbackKey:     GetSecretFile(GetEnv("CALLBACK_KEY_FILE", "")),
		CallbackTimeout: GetDurationEnv("CALLBACK_TIMEOUT", 10*time.Second),

		CallbackBreakerThreshold: GetIntEnv("CALLBACK_BREAKER_THRESHOLD", 5),
		CallbackBreakerCooldown:  GetDurationEnv("CALLBACK_BREAKER_COOLDOWN", 30*time.Second),
	}
}
