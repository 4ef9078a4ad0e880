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
	"os"
	"os/exec"
	"syscall"
)

// ProcessInfo describes the process holding a server directory.
type ProcessInfo struct {
	PID     int
	Running bool
	// Command is the holder's command line, "<unknown>" when it is running
	// but unreadable.
	Command string
}

// IsProcessRunning checks if a process with the given PID exists.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds, so we need to send signal 0
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// GetProcessInfo looks up pid. Command is only filled in for a live process.
func GetProcessInfo(pid int) *ProcessInfo {
	info := &ProcessInfo{PID: pid, Running: IsProcessRunning(pid)}
	if !info.Running {
		return info
	}
	info.Command = "<unknown>"
	if cmd, err := getProcessCommand(pid); err == nil && cmd != "" {
		info.Command = cmd
	}
	return info
}

// killProcessGroup sends SIGKILL to the process group led by proc, falling
// back to the process alone if the group is already gone.
func killProcessGroup(proc *os.Process) error {
	if err := syscall.Kill(-proc.Pid, syscall.SIGKILL); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				return fmt.Errorf("failed to kill process %d: %w", proc.Pid, err)
			}
			return nil
		}
		return fmt.Errorf("failed to kill process group %d: %w", proc.Pid, err)
	}
	return nil
}

// exitDetails extracts the status and terminating signal from a Wait error.
// status is -1 when the process died from a signal.
func exitDetails(err error) (status int, signal string, ok bool) {
	if err == nil {
		return 0, "", true
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1, "", false
	}
	if ws, isWS := exitErr.Sys().(syscall.WaitStatus); isWS && ws.Signaled() {
		return -1, ws.Signal().String(), true
	}
	return exitErr.ExitCode(), "", true
}
