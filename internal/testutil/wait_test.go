package testutil

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		readyAt  int // condition turns true on this call; 0 = never
		wantMet  bool
		minCalls int
	}{
		{"immediate", 1, true, 1},
		{"eventual", 3, true, 3},
		{"never", 0, false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			calls := 0
			met := WaitFor(t, func() bool {
				calls++
				return tt.readyAt > 0 && calls >= tt.readyAt
			}, WithTimeout(100*time.Millisecond), WithInterval(5*time.Millisecond))

			if met != tt.wantMet {
				t.Errorf("WaitFor() = %v, want %v", met, tt.wantMet)
			}
			if calls < tt.minCalls {
				t.Errorf("calls = %d, want at least %d", calls, tt.minCalls)
			}
		})
	}
}

func TestWaitForCount(t *testing.T) {
	t.Parallel()
	var delivered atomic.Int64

	go func() {
		for i := 0; i < 2; i++ {
			time.Sleep(5 * time.Millisecond)
			delivered.Add(1)
		}
	}()

	MustWaitForCount(t, &delivered, 2, WithTimeout(time.Second), WithInterval(time.Millisecond))
	if WaitForCount(t, &delivered, 3, WithTimeout(20*time.Millisecond), WithInterval(5*time.Millisecond)) {
		t.Error("WaitForCount() should time out below the target")
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()
	o := defaultOptions()
	if o.Timeout != 30*time.Second || o.Interval != 100*time.Millisecond {
		t.Errorf("defaults = %+v", o)
	}

	WithTimeout(time.Second)(&o)
	WithInterval(time.Millisecond)(&o)
	if o.Timeout != time.Second || o.Interval != time.Millisecond {
		t.Errorf("options not applied: %+v", o)
	}
}

func TestFirstLine(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "exit_status_file")

	if got := FirstLine(path); got != "" {
		t.Errorf("FirstLine(missing) = %q, want empty", got)
	}

	if err := os.WriteFile(path, []byte(" 0 \r\nignored\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FirstLine(path); got != "0" {
		t.Errorf("FirstLine() = %q, want 0", got)
	}
}

func TestWaitForFileLine_EventualWrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "exit_status_file")
	if err := os.WriteFile(path, []byte("100\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(path, []byte("3\n"), 0o644)
	}()

	MustWaitForFileLine(t, path, "3", WithTimeout(time.Second), WithInterval(5*time.Millisecond))
}

func TestWaitForFileLine_Timeout(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "exit_status_file")

	if WaitForFileLine(t, path, "0", WithTimeout(30*time.Millisecond), WithInterval(5*time.Millisecond)) {
		t.Error("expected timeout for a file that never appears")
	}
}
