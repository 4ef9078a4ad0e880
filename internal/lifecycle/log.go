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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventLogName is the lifecycle journal's path relative to the server directory.
const EventLogName = "logs/mcrun-lifecycle.log"

// Event types written to the lifecycle journal.
const (
	EventStart         = "start"
	EventSpawned       = "spawned"
	EventSpawnFailure  = "spawn_failure"
	EventSignal        = "signal"
	EventStopRequested = "stop_requested"
	EventExited        = "exited"
	EventForcedKill    = "forced_kill"
)

// LifecycleEvent is one line of the lifecycle journal.
type LifecycleEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	RunID     string    `json:"run_id,omitempty"`
	PID       int       `json:"pid,omitempty"`
	Version   string    `json:"version,omitempty"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	Signal    string    `json:"signal,omitempty"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Args      []string  `json:"args,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// EventLog appends lifecycle events as JSON lines. A nil *EventLog
// discards events.
type EventLog struct {
	mu      sync.Mutex
	logPath string
	runID   string
	version string
}

// NewEventLog creates a journal at logPath. Events carry runID and version.
func NewEventLog(logPath, runID, version string) *EventLog {
	return &EventLog{
		logPath: logPath,
		runID:   runID,
		version: version,
	}
}

// Path returns the journal location.
func (l *EventLog) Path() string {
	if l == nil {
		return ""
	}
	return l.logPath
}

// LogStart records the start of a run.
func (l *EventLog) LogStart(args []string) error {
	return l.writeEvent(LifecycleEvent{
		Event:   EventStart,
		Success: true,
		Message: "Server start initiated",
		Args:    args,
	})
}

// LogSpawned records a successful spawn.
func (l *EventLog) LogSpawned(pid int) error {
	return l.writeEvent(LifecycleEvent{
		Event:   EventSpawned,
		PID:     pid,
		Success: true,
		Message: "Server process started",
	})
}

// LogSpawnFailure records a failed spawn.
func (l *EventLog) LogSpawnFailure(err error) error {
	return l.writeEvent(LifecycleEvent{
		Event:   EventSpawnFailure,
		Success: false,
		Message: "Server failed to start",
		Error:   err.Error(),
	})
}

// LogSignal records receipt of a termination request.
func (l *EventLog) LogSignal(pid int, signal string) error {
	return l.writeEvent(LifecycleEvent{
		Event:   EventSignal,
		PID:     pid,
		Signal:  signal,
		Success: true,
		Message: "Termination requested",
	})
}

// LogStopRequested records that the stop command was queued.
func (l *EventLog) LogStopRequested(pid int, timeout time.Duration) error {
	return l.writeEvent(LifecycleEvent{
		Event:   EventStopRequested,
		PID:     pid,
		Success: true,
		Message: fmt.Sprintf("Stop command queued (timeout: %v)", timeout),
	})
}

// LogExited records the server's exit. exitCode is -1 for signal deaths.
func (l *EventLog) LogExited(pid, exitCode int, outcome string, duration time.Duration) error {
	return l.writeEvent(LifecycleEvent{
		Event:    EventExited,
		PID:      pid,
		ExitCode: &exitCode,
		Success:  outcome != "",
		Message:  fmt.Sprintf("Server exited (outcome: %s, uptime: %v)", outcomeOrAbnormal(outcome), duration.Round(time.Millisecond)),
	})
}

// LogForcedKill records a kill after the shutdown timeout.
func (l *EventLog) LogForcedKill(pid int, timeout time.Duration) error {
	return l.writeEvent(LifecycleEvent{
		Event:   EventForcedKill,
		PID:     pid,
		Success: true,
		Message: fmt.Sprintf("Server did not stop within %v and was killed", timeout),
	})
}

func outcomeOrAbnormal(outcome string) string {
	if outcome == "" {
		return "abnormal"
	}
	return outcome
}

// writeEvent appends a lifecycle event to the log file.
func (l *EventLog) writeEvent(event LifecycleEvent) error {
	if l == nil {
		return nil
	}
	event.Timestamp = time.Now()
	event.RunID = l.runID
	event.Version = l.version

	l.mu.Lock()
	defer l.mu.Unlock()

	logDir := filepath.Dir(l.logPath)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open lifecycle log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}
