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
	"os"

	"golang.org/x/term"
)

// ciEnvVars mark automated environments. Most are set to "true" or "1";
// JENKINS_HOME holds a path and counts whenever it is set.
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "JENKINS_HOME"}

// IsNonInteractive reports whether mcrun must not prompt. That is the case
// with --json output, MCRUN_NON_INTERACTIVE=true, a CI environment, or a
// stdin that is not a terminal (systemd units, containers, pipes).
func IsNonInteractive() bool {
	switch {
	case GetJSON():
		return true
	case os.Getenv("MCRUN_NON_INTERACTIVE") == "true":
		return true
	case isCIEnvironment():
		return true
	default:
		return !term.IsTerminal(int(os.Stdin.Fd()))
	}
}

func isCIEnvironment() bool {
	for _, name := range ciEnvVars {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if v == "true" || v == "1" || (name == "JENKINS_HOME" && v != "") {
			return true
		}
	}
	return false
}
