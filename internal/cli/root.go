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

package cli

import (
	"github.com/spf13/cobra"
	"github.com/tombee/mcrun/internal/commands/shared"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for mcrun
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcrun",
		Short: "mcrun - Minecraft server launcher",
		Long: `mcrun resolves a Minecraft server version from the official version
manifest, installs the verified server jar into a working directory, and
supervises the server process: console input is forwarded to it, and
SIGTERM or Ctrl-C stop it gracefully before a forced kill.

Run 'mcrun run -d ./server --accept-eula' to start the latest release.
Run 'mcrun versions' to list what the manifest offers.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	flags := shared.RegisterFlagPointers()

	cmd.PersistentFlags().StringVar(flags.Config, "config", "", "Path to config file (default: <directory>/mcrun.yaml)")
	cmd.PersistentFlags().StringVarP(flags.Directory, "directory", "d", "", "Server working directory (default: .)")
	cmd.PersistentFlags().StringVar(flags.ServerVersion, "server-version", "", "Version id, latest, latest-release or latest-snapshot")
	cmd.PersistentFlags().StringVar(flags.LogLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().StringVar(flags.LogFormat, "log-format", "", "Log format: json or text")
	cmd.PersistentFlags().BoolVar(flags.JSON, "json", false, "Output in JSON format")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return shared.NewUsageError("invalid flags", err)
	})

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
