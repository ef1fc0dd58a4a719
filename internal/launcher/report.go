package launcher

import (
	"fmt"
	"io"
	"joblauncher/internal/apperrors"
	"log/slog"
	"os"
)

// maxFailureRecord caps how much of the error file is kept on the Result.
const maxFailureRecord = 64 << 10

// report streams the job's error file to the operator and returns its tail.
// It is best-effort: any failure is logged and never changes the job's outcome.
func (l *Launcher) report(logger *slog.Logger, path string) string {
	if path == "" {
		logger.Debug("No error file configured, skipping diagnostic dump")
		return ""
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("Diagnostic dump failed", "error", apperrors.DiagnosticDump(path, err))
		return ""
	}
	defer f.Close()

	info, err := f.Stat()
	if err == nil && info.IsDir() {
		err = fmt.Errorf("%s is a directory", path)
	}
	if err != nil {
		logger.Warn("Diagnostic dump failed", "error", apperrors.DiagnosticDump(path, err))
		return ""
	}

	tail := newTailBuffer(maxFailureRecord)
	if _, err := fmt.Fprintf(l.reportOut, "==> %s <==\n", path); err != nil {
		logger.Warn("Diagnostic dump failed", "error", apperrors.DiagnosticDump(path, err))
		// Still collect the failure record.
		if _, err := io.Copy(tail, f); err != nil {
			logger.Warn("Failed to read error file", "error", apperrors.DiagnosticDump(path, err))
		}
		return tail.String()
	}

	if _, err := io.Copy(io.MultiWriter(tail, l.reportOut), f); err != nil {
		logger.Warn("Diagnostic dump failed", "error", apperrors.DiagnosticDump(path, err))
	}
	fmt.Fprintln(l.reportOut)
	return tail.String()
}

// tailBuffer is an io.Writer that retains only the last max bytes written.
type tailBuffer struct {
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max, buf: make([]byte, 0, max)}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= t.max {
		t.buf = append(t.buf[:0], p[n-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + n - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
