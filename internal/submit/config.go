package submit

import (
	"joblauncher/internal/config"
	"time"
)

// DockerConfig holds configuration for the Docker submitter.
type DockerConfig struct {
	Image       string        // Image the job's command runs in
	User        string        // Container user; empty uses the image default
	Network     string        // Network mode (e.g., "host"); empty uses the default bridge
	ExtraHosts  []string      // Extra /etc/hosts entries (e.g., ["scheduler.local:host-gateway"])
	Env         []string      // KEY=VALUE pairs passed to every container
	StopTimeout time.Duration // Grace period when Close stops leftover containers
}

// LoadDockerConfigFromEnv loads Docker submitter configuration from environment variables.
func LoadDockerConfigFromEnv() DockerConfig {
	return DockerConfig{
		Image:       config.GetEnv("LAUNCHER_DOCKER_IMAGE", "alpine:latest"),
		User:        config.GetEnv("LAUNCHER_DOCKER_USER", ""),
		Network:     config.GetEnv("LAUNCHER_DOCKER_NETWORK", ""),
		ExtraHosts:  config.GetListEnv("LAUNCHER_DOCKER_EXTRA_HOSTS"),
		Env:         config.GetListEnv("LAUNCHER_DOCKER_ENV"),
		StopTimeout: config.GetDurationEnv("LAUNCHER_DOCKER_STOP_TIMEOUT", 10*time.Second),
	}
}
