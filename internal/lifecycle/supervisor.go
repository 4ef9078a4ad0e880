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
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tombee/mcrun/internal/log"
	"github.com/tombee/mcrun/internal/metrics"
	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

// Supervisor runs one server process and shuts it down on request.
type Supervisor struct {
	cfg Config

	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	signals <-chan os.Signal
	events  *EventLog
	logger  *slog.Logger

	state atomic.Int32
	pid   atomic.Int64
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithConsole sets the streams bridged to the server. A nil stdin disables
// input forwarding. Defaults: os.Stdin, os.Stdout, os.Stderr.
func WithConsole(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(s *Supervisor) {
		s.stdin, s.stdout, s.stderr = stdin, stdout, stderr
	}
}

// WithSignals replaces the SIGTERM/SIGINT subscription with ch.
func WithSignals(ch <-chan os.Signal) Option {
	return func(s *Supervisor) { s.signals = ch }
}

// WithEventLog journals lifecycle events to l.
func WithEventLog(l *EventLog) Option {
	return func(s *Supervisor) { s.events = l }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = logger }
}

// NewSupervisor creates a Supervisor for cfg.
func NewSupervisor(cfg Config, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:    cfg,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.WithComponent(log.OrDefault(s.logger), "supervisor")
	return s
}

// State returns the current run state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// PID returns the server's process id, or 0 before it has started.
func (s *Supervisor) PID() int {
	return int(s.pid.Load())
}

func (s *Supervisor) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		s.logger.Debug("state transition", "from", prev.String(), "to", next.String())
	}
}

// Run spawns the server and blocks until it is gone.
//
// If the server exits on its own, Run returns OutcomeExited for status 0
// and an *errors.AbnormalExitError otherwise. A SIGTERM, SIGINT or ctx
// cancellation queues the stop command behind any pending console input
// and waits up to ShutdownTimeout: OutcomeStopped if the server exits in
// time, whatever its status, or OutcomeForced after killing its process
// group. Further signals during shutdown are ignored.
func (s *Supervisor) Run(ctx context.Context) (Outcome, error) {
	if err := s.cfg.Validate(); err != nil {
		return OutcomeNone, err
	}

	s.setState(StateStarting)
	defer s.setState(StateExited)

	signals := s.signals
	if signals == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(ch)
		signals = ch
	}

	cmd := newServerCommand(&s.cfg, s.stdout, s.stderr)
	_ = s.events.LogStart(cmd.Args)
	s.logger.Info("starting server",
		"java", s.cfg.Java,
		"args", cmd.Args[1:],
		"jar", jarPath(&s.cfg),
		log.PathKey, s.cfg.Directory,
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return s.spawnFailed(err)
	}
	if err := cmd.Start(); err != nil {
		return s.spawnFailed(err)
	}

	started := time.Now()
	pid := cmd.Process.Pid
	s.pid.Store(int64(pid))
	logger := s.logger.With(log.PIDKey, pid)
	_ = s.events.LogSpawned(pid)
	logger.Info("server started")

	// done releases the writer and any console reader waiting on the queue.
	done := make(chan struct{})
	defer close(done)

	queue := NewCommandQueue(DefaultQueueSize)
	go queue.Drain(stdin, done, logger)
	if s.stdin != nil {
		go queue.Forward(s.stdin, done, logger)
	}

	exitCh := make(chan error, 1)
	go func() {
		exitCh <- cmd.Wait()
	}()

	s.setState(StateRunning)

	var reason string
	select {
	case err := <-exitCh:
		return s.exited(logger, pid, err, started)
	case sig := <-signals:
		reason = sig.String()
	case <-ctx.Done():
		reason = "context cancelled"
	}

	s.setState(StateShuttingDown)
	_ = s.events.LogSignal(pid, reason)
	logger.Info("termination requested, stopping server",
		"reason", reason,
		"timeout", s.cfg.ShutdownTimeout.String(),
	)

	timer := time.NewTimer(s.cfg.ShutdownTimeout)
	defer timer.Stop()

	select {
	case queue.lines <- s.cfg.StopCommand:
		_ = s.events.LogStopRequested(pid, s.cfg.ShutdownTimeout)
		logger.Debug("stop command queued", "command", s.cfg.StopCommand)
	case err := <-exitCh:
		return s.stopped(logger, pid, err, started)
	case <-timer.C:
		return s.forceKill(logger, cmd.Process, exitCh, started)
	}

	for {
		select {
		case err := <-exitCh:
			return s.stopped(logger, pid, err, started)
		case <-timer.C:
			return s.forceKill(logger, cmd.Process, exitCh, started)
		case sig := <-signals:
			logger.Debug("already shutting down, ignoring signal", "signal", sig.String())
		}
	}
}

func (s *Supervisor) spawnFailed(cause error) (Outcome, error) {
	err := &mcerrors.SpawnError{Binary: s.cfg.Java, Cause: cause}
	_ = s.events.LogSpawnFailure(err)
	metrics.RecordRun("spawn_error")
	s.logger.Error("failed to start server", log.Error(cause))
	return OutcomeNone, err
}

// exited handles the server ending before any termination request.
func (s *Supervisor) exited(logger *slog.Logger, pid int, waitErr error, started time.Time) (Outcome, error) {
	status, sig, ok := exitDetails(waitErr)
	uptime := time.Since(started)

	if waitErr == nil {
		_ = s.events.LogExited(pid, 0, OutcomeExited.String(), uptime)
		metrics.RecordRun(OutcomeExited.String())
		logger.Info("server exited", "status", 0, log.DurationKey, uptime.Milliseconds())
		return OutcomeExited, nil
	}

	_ = s.events.LogExited(pid, status, "", uptime)
	metrics.RecordRun(mcerrors.TypeAbnormalExit)
	if !ok {
		logger.Error("failed waiting for server", log.Error(waitErr))
		return OutcomeNone, &mcerrors.AbnormalExitError{Status: status}
	}
	logger.Error("server exited abnormally", "status", status, "signal", sig, log.DurationKey, uptime.Milliseconds())
	return OutcomeNone, &mcerrors.AbnormalExitError{Status: status, Signal: sig}
}

// stopped handles the server exiting during shutdown. Its status is not
// an error: it was asked to stop.
func (s *Supervisor) stopped(logger *slog.Logger, pid int, waitErr error, started time.Time) (Outcome, error) {
	status, sig, _ := exitDetails(waitErr)
	uptime := time.Since(started)

	_ = s.events.LogExited(pid, status, OutcomeStopped.String(), uptime)
	metrics.RecordRun(OutcomeStopped.String())
	logger.Info("server stopped", "status", status, "signal", sig, log.DurationKey, uptime.Milliseconds())
	return OutcomeStopped, nil
}

// forceKill kills the server's process group and reaps it.
func (s *Supervisor) forceKill(logger *slog.Logger, proc *os.Process, exitCh <-chan error, started time.Time) (Outcome, error) {
	logger.Warn("server did not stop in time, killing it", "timeout", s.cfg.ShutdownTimeout.String())
	if err := killProcessGroup(proc); err != nil {
		logger.Warn("kill failed", log.Error(err))
	}

	waitErr := <-exitCh
	status, _, _ := exitDetails(waitErr)
	uptime := time.Since(started)

	_ = s.events.LogForcedKill(proc.Pid, s.cfg.ShutdownTimeout)
	_ = s.events.LogExited(proc.Pid, status, OutcomeForced.String(), uptime)
	metrics.RecordRun(OutcomeForced.String())
	logger.Warn("server killed after shutdown timeout", log.DurationKey, uptime.Milliseconds())
	return OutcomeForced, nil
}
