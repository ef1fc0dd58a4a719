// Package statusfile implements the exit-status channel: a single file in a
// job's working directory used as a one-shot mailbox between a detached job
// and the launcher polling for its result.
//
// The launcher resets the file to Sentinel before submission and afterwards
// only reads it. The job overwrites it once, on completion, with its exit
// code as decimal text.
package statusfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileName is the channel's name inside a job's working directory.
const FileName = "exit_status_file"

// Sentinel is the channel content meaning "job not yet finished".
const Sentinel = "100"

// Channel is the exit-status file of one working directory.
type Channel struct {
	path string
}

// New returns the channel living in workDir. The directory must already exist.
func New(workDir string) *Channel {
	return &Channel{path: filepath.Join(workDir, FileName)}
}

// At returns a channel backed by an explicit file path.
func At(path string) *Channel {
	return &Channel{path: path}
}

// Path returns the channel's file path.
func (c *Channel) Path() string {
	return c.path
}

// Reset (re)creates the channel holding only Sentinel.
func (c *Channel) Reset() error {
	if err := os.WriteFile(c.path, []byte(Sentinel), 0o644); err != nil {
		return fmt.Errorf("failed to write sentinel: %w", err)
	}
	return nil
}

// Read opens the channel afresh and returns its first line without the line
// terminator. An empty file yields "".
func (c *Channel) Read() (string, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// Publish writes code as the job's final exit status. The value lands in a
// temporary file first and is renamed over the channel so readers on the
// same host never observe a partial write.
func (c *Channel) Publish(code int) error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, "."+FileName+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp status file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(strconv.Itoa(code) + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write status: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close status file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod status file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish status: %w", err)
	}
	return nil
}

// ParseCode converts a channel line into an exit code. Surrounding
// whitespace is ignored; anything else that is not a decimal integer is an
// error.
func ParseCode(line string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(line))
}
