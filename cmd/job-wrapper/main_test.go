package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_PublishesExitCode(t *testing.T) {
	statusFile := filepath.Join(t.TempDir(), "exit_status_file")

	code := run([]string{"-status-file", statusFile, "--", "sh", "-c", "exit 4"})
	if code != 4 {
		t.Fatalf("run() = %d, want 4", code)
	}

	data, err := os.ReadFile(statusFile)
	if err != nil {
		t.Fatalf("Failed to read status file: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "4" {
		t.Errorf("status file = %q, want 4", got)
	}
}

func TestRun_NoCommand(t *testing.T) {
	statusFile := filepath.Join(t.TempDir(), "exit_status_file")

	if code := run([]string{"-status-file", statusFile}); code != 126 {
		t.Errorf("run() = %d, want 126", code)
	}
	if _, err := os.Stat(statusFile); !os.IsNotExist(err) {
		t.Error("nothing should be published without a command")
	}
}

func TestRun_BadFlag(t *testing.T) {
	if code := run([]string{"-no-such-flag"}); code != 126 {
		t.Errorf("run() = %d, want 126", code)
	}
}
