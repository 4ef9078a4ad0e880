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

/*
Package lifecycle supervises the Minecraft server process.

A Supervisor spawns the server jar, bridges console input to it, and on
SIGTERM, SIGINT or context cancellation asks it to stop before falling back
to a forced kill.

# Supervising a Run

	cfg := lifecycle.DefaultConfig(dir)
	sup := lifecycle.NewSupervisor(cfg, lifecycle.WithLogger(logger))
	outcome, err := sup.Run(ctx)

Run moves through Starting, Running, ShuttingDown and Exited. Console
lines and the stop command share one CommandQueue, so lines typed before a
termination request reach the server ahead of the stop command.

# PID File

A directory is served by one mcrun at a time. The PID file is held with an
exclusive flock for the duration of the run:

	pidFile := lifecycle.NewPIDFile(filepath.Join(dir, lifecycle.PIDFileName))
	if err := pidFile.Acquire(os.Getpid()); err != nil {
	    // errors.Is(err, lifecycle.ErrPIDFileLocked) when another run holds it
	}
	defer pidFile.Release()

# Lifecycle Logging

Run milestones are appended to a JSON-lines journal for later audit:

	events := lifecycle.NewEventLog(filepath.Join(dir, lifecycle.EventLogName), runID, version)
	sup := lifecycle.NewSupervisor(cfg, lifecycle.WithEventLog(events))
*/
package lifecycle
