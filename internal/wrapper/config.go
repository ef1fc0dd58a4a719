package wrapper

import (
	"joblauncher/internal/config"
	"joblauncher/internal/statusfile"
	"path/filepath"
	"time"
)

// Config holds configuration for the job wrapper.
type Config struct {
	JobID       string
	StatusFile  string        // exit-status channel to publish into
	Timeout     time.Duration // 0 = no limit
	GracePeriod time.Duration // wait after SIGTERM before SIGKILL
}

// LoadConfigFromEnv loads wrapper configuration from environment variables.
// The channel defaults to exit_status_file in WORK_DIR, or in the current
// directory.
func LoadConfigFromEnv() *Config {
	statusFile := config.GetEnv("EXIT_STATUS_FILE", "")
	if statusFile == "" {
		statusFile = filepath.Join(config.GetEnv("WORK_DIR", "."), statusfile.FileName)
	}
	return &Config{
		JobID:       config.GetEnv("JOB_ID", ""),
		StatusFile:  statusFile,
		Timeout:     time.Duration(config.GetIntEnv("TIMEOUT_SECONDS", 0)) * time.Second,
		GracePeriod: config.GetDurationEnv("GRACE_PERIOD", 10*time.Second),
	}
}
