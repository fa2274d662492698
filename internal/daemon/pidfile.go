// Package daemon tracks the pid of a running "bdcatalog serve" process
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PIDFileName is the pid file name inside the data directory
const PIDFileName = "bdcatalog.pid"

var (
	// ErrAlreadyRunning is returned by Write while another server is alive
	ErrAlreadyRunning = errors.New("catalog server is already running")

	// ErrNotRunning is returned when no pid file exists
	ErrNotRunning = errors.New("catalog server is not running")
)

// PIDFile manages the server pid file
type PIDFile struct {
	path string
}

// NewPIDFile creates a pid file manager for path
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// PIDPath returns the pid file location for a data directory and creates
// the directory
func PIDPath(dataDir string) (string, error) {
	if dataDir == "" {
		return "", fmt.Errorf("data directory cannot be empty")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dataDir, PIDFileName), nil
}

// Path returns the pid file path
func (p *PIDFile) Path() string {
	return p.path
}

// Write stores the current pid. A file left by a dead process is replaced.
func (p *PIDFile) Write() error {
	if _, err := os.Stat(p.path); err == nil {
		if running, _ := p.IsRunning(); running {
			return fmt.Errorf("%w (pid file %s)", ErrAlreadyRunning, p.path)
		}
		os.Remove(p.path)
	}

	content := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(p.path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Read returns the stored pid
func (p *PIDFile) Read() (int, error) {
	content, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: no pid file at %s", ErrNotRunning, p.path)
		}
		return 0, fmt.Errorf("failed to read pid file: %w", err)
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s: %q", p.path, pidStr)
	}
	return pid, nil
}

// Remove deletes the pid file; a missing file is not an error
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pid file: %w", err)
	}
	return nil
}

// IsRunning reports whether the stored pid belongs to a live process
func (p *PIDFile) IsRunning() (bool, error) {
	pid, err := p.Read()
	if err != nil {
		return false, err
	}
	return isProcessRunning(pid), nil
}

// Stop asks the stored process to shut down
func (p *PIDFile) Stop() (int, error) {
	pid, err := p.Read()
	if err != nil {
		return 0, err
	}
	if !isProcessRunning(pid) {
		p.Remove()
		return pid, fmt.Errorf("%w: pid %d is gone", ErrNotRunning, pid)
	}
	return pid, terminateProcess(pid)
}
