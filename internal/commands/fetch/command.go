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

// Package fetch implements `mcrun fetch`: install the selected server jar
// without starting it.
package fetch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tombee/mcrun/internal/commands/shared"
	"github.com/tombee/mcrun/internal/lifecycle"
	"github.com/tombee/mcrun/internal/log"
	"github.com/tombee/mcrun/internal/workspace"
)

// Response is the JSON output of the fetch command.
type Response struct {
	shared.JSONResponse
	Result *shared.InstallResult `json:"result"`
}

// NewCommand creates the fetch command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Install the selected server jar without running it",
		Long: `Fetch resolves the server version and makes sure the working directory
holds its jar with the published SHA-1. An existing jar that already matches
is left alone; anything else is replaced atomically.`,
		Example: `  mcrun fetch -d ./server --server-version 1.20.4
  mcrun fetch --server-version latest-snapshot --json`,
		Annotations: map[string]string{"group": "server"},
		Args:        cobra.NoArgs,
		RunE:        runFetch,
	}
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	logger, _ := shared.NewLogger(cfg, cmd.ErrOrStderr())

	dir, err := workspace.Prepare(cfg.Directory)
	if err != nil {
		return err
	}

	// A running server keeps the lock; its jar is not swapped underneath it.
	pidFile := lifecycle.NewPIDFile(filepath.Join(dir, lifecycle.PIDFileName))
	if err := pidFile.Acquire(os.Getpid()); err != nil {
		return err
	}
	defer func() {
		if err := pidFile.Release(); err != nil {
			logger.Warn("failed to release pid file", log.PathKey, pidFile.Path(), log.Error(err))
		}
	}()

	client, err := shared.NewHTTPClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("http client: %w", err)
	}

	res, err := shared.Install(cmd.Context(), cfg, dir, client, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		return shared.EmitJSON(out, Response{
			JSONResponse: shared.NewJSONResponse("fetch"),
			Result:       res,
		})
	}

	fmt.Fprintln(out, shared.RenderOK(fmt.Sprintf("%s %s installed", shared.Bold.Render(res.Version.ID), shared.RenderChannel(string(res.Version.Type)))))
	fmt.Fprintf(out, "  %s %s\n", shared.RenderLabel("path:"), res.Path)
	fmt.Fprintf(out, "  %s %s\n", shared.RenderLabel("size:"), humanize.IBytes(uint64(res.Size)))
	fmt.Fprintf(out, "  %s %s\n", shared.RenderLabel("sha1:"), res.SHA1)
	if res.Installed != "" && res.Installed != res.Version.ID {
		fmt.Fprintln(out, shared.RenderWarn(fmt.Sprintf("jar reports version %s", res.Installed)))
	}
	return nil
}
