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

package shared

import (
	"errors"
	"fmt"
	"os"

	"github.com/tombee/mcrun/internal/lifecycle"
	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

// Exit codes for mcrun commands
const (
	ExitSuccess        = 0
	ExitFailure        = 1
	ExitUsage          = 2 // invalid configuration or flags
	ExitResolve        = 3 // version could not be resolved
	ExitFetch          = 4 // manifest, metadata or artifact retrieval failed
	ExitSpawn          = 5 // server process could not be started
	ExitAlreadyRunning = 6 // another mcrun holds the directory
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewUsageError creates an error for invalid flags or arguments
func NewUsageError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitUsage,
		Message: msg,
		Cause:   cause,
	}
}

// ExitCodeFor maps an error returned by a command to a process exit code.
// A server that exits on its own with a failing status passes that status
// through when it fits in 1..125.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if errors.Is(err, lifecycle.ErrPIDFileLocked) {
		return ExitAlreadyRunning
	}

	var abnormal *mcerrors.AbnormalExitError
	if errors.As(err, &abnormal) {
		if abnormal.Status >= 1 && abnormal.Status <= 125 {
			return abnormal.Status
		}
		return ExitFailure
	}

	switch mcerrors.TypeOf(err) {
	case mcerrors.TypeConfig:
		return ExitUsage
	case mcerrors.TypeNotFound, mcerrors.TypeInvariantViolation, mcerrors.TypeNotImplemented:
		return ExitResolve
	case mcerrors.TypeNetwork, mcerrors.TypeDecode, mcerrors.TypeChecksumMismatch, mcerrors.TypeIO:
		return ExitFetch
	case mcerrors.TypeSpawn:
		return ExitSpawn
	default:
		return ExitFailure
	}
}

// HandleExitError prints err and exits with the code ExitCodeFor assigns.
func HandleExitError(err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, RenderError(err.Error()))

	// Check if the error (or any in the chain) implements UserVisibleError
	printUserVisibleSuggestion(err)

	os.Exit(ExitCodeFor(err))
}

// printUserVisibleSuggestion checks if an error implements UserVisibleError
// and prints the suggestion if available.
func printUserVisibleSuggestion(err error) {
	var userErr mcerrors.UserVisibleError
	if !errors.As(err, &userErr) || !userErr.IsUserVisible() {
		return
	}
	if suggestion := userErr.Suggestion(); suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", suggestion)
	}
}
