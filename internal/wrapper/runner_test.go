package wrapper

import (
	"bytes"
	"context"
	"joblauncher/internal/statusfile"
	"path/filepath"
	"testing"
	"time"
)

func newTestRunner(t *testing.T) (*Runner, *statusfile.Channel) {
	t.Helper()
	dir := t.TempDir()
	ch := statusfile.New(dir)
	if err := ch.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	r, err := NewRunner(&Config{JobID: "test", StatusFile: ch.Path(), GracePeriod: time.Second})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	r.stdout = &bytes.Buffer{}
	r.stderr = &bytes.Buffer{}
	return r, ch
}

func TestRunner_PublishesExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		argv []string
		want int
	}{
		{name: "success", argv: []string{"true"}, want: 0},
		{name: "failure", argv: []string{"sh", "-c", "exit 3"}, want: 3},
		{name: "not found", argv: []string{"definitely-not-a-command-xyz"}, want: ExitNotFound},
		{name: "no command", argv: nil, want: ExitNotFound},
		{name: "killed by signal", argv: []string{"sh", "-c", "kill -9 $$"}, want: 128 + 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, ch := newTestRunner(t)

			code, err := r.Run(context.Background(), tt.argv)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if code != tt.want {
				t.Errorf("code = %d, want %d", code, tt.want)
			}

			raw, err := ch.Read()
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			got, err := statusfile.ParseCode(raw)
			if err != nil || got != tt.want {
				t.Errorf("channel = %q, want %d", raw, tt.want)
			}
		})
	}
}

func TestRunner_TimeoutTerminates(t *testing.T) {
	t.Parallel()
	r, ch := newTestRunner(t)
	r.config.Timeout = 100 * time.Millisecond

	start := time.Now()
	code, err := r.Run(context.Background(), []string{"sleep", "30"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("command was not terminated on timeout")
	}
	if code == 0 {
		t.Error("interrupted command should not report success")
	}

	raw, _ := ch.Read()
	if raw == statusfile.Sentinel {
		t.Error("channel still holds the sentinel")
	}
}

func TestRunner_PublishFailure(t *testing.T) {
	t.Parallel()
	r, err := NewRunner(&Config{StatusFile: filepath.Join(t.TempDir(), "missing", "exit_status_file")})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	r.stdout = &bytes.Buffer{}

	code, err := r.Run(context.Background(), []string{"true"})
	if err == nil {
		t.Error("Run() should fail when the channel cannot be written")
	}
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}
}

func TestNewRunner_RequiresStatusFile(t *testing.T) {
	t.Parallel()
	if _, err := NewRunner(&Config{}); err == nil {
		t.Error("NewRunner() should require a status file")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("WORK_DIR", "/runs/a")
	t.Setenv("TIMEOUT_SECONDS", "60")

	cfg := LoadConfigFromEnv()
	if cfg.StatusFile != filepath.Join("/runs/a", statusfile.FileName) {
		t.Errorf("StatusFile = %q", cfg.StatusFile)
	}
	if cfg.Timeout != time.Minute {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}

	t.Setenv("EXIT_STATUS_FILE", "/tmp/custom")
	if got := LoadConfigFromEnv().StatusFile; got != "/tmp/custom" {
		t.Errorf("StatusFile = %q, want /tmp/custom", got)
	}
}
