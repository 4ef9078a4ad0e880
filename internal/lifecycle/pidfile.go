// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lifecycle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDFileName is the lock file kept in the server directory during a run.
const PIDFileName = "mcrun.pid"

var (
	// ErrPIDFileLocked is returned when another process holds the PID file lock.
	ErrPIDFileLocked = errors.New("PID file is locked by another process")

	// ErrInvalidPID is returned when the PID file contains invalid data.
	ErrInvalidPID = errors.New("invalid PID in file")

	// ErrUnsafeDirectory is returned when the PID file parent is world-writable.
	ErrUnsafeDirectory = errors.New("PID file directory is world-writable")
)

// AlreadyRunningError reports the holder of a locked PID file. Command is
// the holder's command line when it could be read.
type AlreadyRunningError struct {
	Path    string
	PID     int
	Command string
}

func (e *AlreadyRunningError) Error() string {
	switch {
	case e.PID > 0 && e.Command != "":
		return fmt.Sprintf("another mcrun (pid %d: %s) is already running in this directory (%s)", e.PID, e.Command, e.Path)
	case e.PID > 0:
		return fmt.Sprintf("another mcrun (pid %d) is already running in this directory (%s)", e.PID, e.Path)
	default:
		return fmt.Sprintf("another mcrun is already running in this directory (%s)", e.Path)
	}
}

func (e *AlreadyRunningError) Unwrap() error { return ErrPIDFileLocked }

// PIDFile guards a server directory against concurrent runs.
// The lock is an flock held for as long as the file stays open, so a file
// left behind by a crashed run is reclaimed by the next one.
type PIDFile struct {
	path     string
	lockFile *os.File
}

// NewPIDFile creates a PID file manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{
		path: path,
	}
}

// Path returns the PID file location.
func (m *PIDFile) Path() string { return m.path }

// Acquire locks the PID file and writes pid into it.
// Returns an *AlreadyRunningError (matching ErrPIDFileLocked) when another
// process holds the lock.
func (m *PIDFile) Acquire(pid int) error {
	parentDir := filepath.Dir(m.path)
	if err := m.verifyDirectorySafety(parentDir); err != nil {
		return fmt.Errorf("unsafe PID file location: %w", err)
	}

	f, err := m.lock()
	if err != nil {
		return err
	}

	// The lock is ours; anything already in the file is stale.
	if err := f.Truncate(0); err != nil {
		m.release(f)
		return fmt.Errorf("failed to truncate PID file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		m.release(f)
		return fmt.Errorf("failed to seek PID file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", pid); err != nil {
		m.release(f)
		return fmt.Errorf("failed to write PID: %w", err)
	}
	if err := f.Sync(); err != nil {
		m.release(f)
		return fmt.Errorf("failed to sync PID file: %w", err)
	}

	// Keep file open to maintain lock
	m.lockFile = f
	return nil
}

// lock opens and flocks the PID file. A file unlinked by a finishing run
// between our open and our flock is retried so two runs never hold locks
// on different inodes.
func (m *PIDFile) lock() (*os.File, error) {
	for attempt := 0; ; attempt++ {
		// O_NOFOLLOW refuses a symlink planted at the PID path; O_RDWR is needed for flock
		f, err := os.OpenFile(m.path, os.O_RDWR|os.O_CREATE|syscall.O_NOFOLLOW, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open PID file: %w", err)
		}

		if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			f.Close()
			if errors.Is(err, syscall.EWOULDBLOCK) {
				holder, _ := m.Read()
				running := &AlreadyRunningError{Path: m.path, PID: holder}
				if holder > 0 {
					if info := GetProcessInfo(holder); info.Running {
						running.Command = info.Command
					}
				}
				return nil, running
			}
			return nil, fmt.Errorf("failed to lock PID file: %w", err)
		}

		held, statErr := f.Stat()
		current, pathErr := os.Stat(m.path)
		if statErr == nil && pathErr == nil && os.SameFile(held, current) {
			return f, nil
		}
		m.release(f)
		if attempt >= 3 {
			return nil, fmt.Errorf("failed to lock PID file: %s keeps being replaced", m.path)
		}
	}
}

// Read reads the PID from the file.
// Returns ErrInvalidPID if the file contains non-numeric data.
func (m *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPID, pidStr)
	}

	if pid <= 0 {
		return 0, fmt.Errorf("%w: PID must be positive, got %d", ErrInvalidPID, pid)
	}

	return pid, nil
}

// Release removes the PID file and drops the lock. It is a no-op when the
// lock is not held.
func (m *PIDFile) Release() error {
	if m.lockFile == nil {
		return nil
	}

	// Remove while still locked so a waiting run never sees our PID.
	removeErr := os.Remove(m.path)
	m.release(m.lockFile)
	m.lockFile = nil

	if removeErr != nil && !os.IsNotExist(removeErr) {
		return fmt.Errorf("failed to remove PID file: %w", removeErr)
	}
	return nil
}

// Held reports whether this manager holds the lock.
func (m *PIDFile) Held() bool {
	return m.lockFile != nil
}

func (m *PIDFile) release(f *os.File) {
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	_ = f.Close()
}

// verifyDirectorySafety checks that the directory exists and is not
// world-writable.
func (m *PIDFile) verifyDirectorySafety(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	mode := info.Mode()
	if mode&0o002 != 0 && mode&os.ModeSticky == 0 {
		return fmt.Errorf("%w: %s has mode %04o", ErrUnsafeDirectory, dir, mode&os.ModePerm)
	}

	return nil
}
