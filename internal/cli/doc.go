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
Package cli provides the root command and shared configuration for mcrun's CLI.

This package creates the main Cobra command tree and handles global concerns like
version information, persistent flags, and error handling. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

	mcrun
	├── run           Install the selected server and supervise it
	├── fetch         Install the selected server jar without running it
	├── versions      List versions from the manifest
	├── version       Show version
	└── help          Show help

# Usage

From main.go:

	cli.SetVersion(version, commit, buildDate)
	rootCmd := cli.NewRootCommand()
	rootCmd.AddCommand(run.NewCommand())
	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}

# Exit Codes

	0  success
	1  generic failure
	2  invalid configuration or flags
	3  version could not be resolved
	4  manifest, metadata or artifact retrieval failed
	5  server process could not be started
	6  another mcrun already runs in the directory

A server that exits on its own with status 1..125 passes that status through.
*/
package cli
