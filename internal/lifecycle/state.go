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

// State is the Supervisor's position in a run.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateShuttingDown
	StateExited
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Outcome is how a run that did not fail ended.
type Outcome int

const (
	// OutcomeNone accompanies a non-nil error.
	OutcomeNone Outcome = iota
	// OutcomeExited means the server exited with status 0 on its own.
	OutcomeExited
	// OutcomeStopped means the server exited after the stop command.
	OutcomeStopped
	// OutcomeForced means the shutdown timeout elapsed and the server was killed.
	OutcomeForced
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExited:
		return "exited"
	case OutcomeStopped:
		return "stopped"
	case OutcomeForced:
		return "forced"
	default:
		return "none"
	}
}
