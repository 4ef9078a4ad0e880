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

// Package versions implements `mcrun versions`: list what the version
// manifest offers.
package versions

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/mcrun/internal/commands/shared"
	"github.com/tombee/mcrun/internal/manifest"
)

// Response is the JSON output of the versions command.
type Response struct {
	shared.JSONResponse
	Latest   manifest.Latest    `json:"latest"`
	Versions []manifest.Version `json:"versions"`
}

type options struct {
	versionType string
	limit       int
}

// NewCommand creates the versions command.
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List server versions from the manifest",
		Long: `Versions downloads the version manifest and lists its entries, newest
first. The current latest release and snapshot are marked.`,
		Example: `  mcrun versions
  mcrun versions --type snapshot --limit 5
  mcrun versions --type all --limit 0 --json`,
		Annotations: map[string]string{"group": "info"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersions(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.versionType, "type", "release", "Version type: release, snapshot, old_beta, old_alpha or all")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Maximum entries to list (0 for all)")

	return cmd
}

func runVersions(cmd *cobra.Command, opts options) error {
	if opts.limit < 0 {
		return shared.NewUsageError("--limit must be >= 0", nil)
	}
	var filter manifest.VersionType
	if opts.versionType != "all" {
		t, err := manifest.ParseVersionType(opts.versionType)
		if err != nil {
			return shared.NewUsageError("invalid --type", err)
		}
		filter = t
	}

	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	logger, _ := shared.NewLogger(cfg, cmd.ErrOrStderr())

	client, err := shared.NewHTTPClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("http client: %w", err)
	}

	m, err := manifest.NewResolver(client, cfg.Manifest.URL, logger).FetchManifest(cmd.Context())
	if err != nil {
		return err
	}

	list := m.Versions
	if filter != "" {
		list = m.Filter(filter)
	}
	if opts.limit > 0 && len(list) > opts.limit {
		list = list[:opts.limit]
	}

	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		return shared.EmitJSON(out, Response{
			JSONResponse: shared.NewJSONResponse("versions"),
			Latest:       m.Latest,
			Versions:     list,
		})
	}

	renderTable(out, m.Latest, list)
	return nil
}

// renderTable pads before styling so ANSI sequences do not skew columns.
func renderTable(out io.Writer, latest manifest.Latest, list []manifest.Version) {
	if len(list) == 0 {
		fmt.Fprintln(out, shared.RenderWarn("no versions match"))
		return
	}

	idWidth, typeWidth := len("VERSION"), len("TYPE")
	for _, v := range list {
		idWidth = max(idWidth, len(v.ID))
		typeWidth = max(typeWidth, len(v.Type))
	}

	fmt.Fprintln(out, shared.Header.Render(fmt.Sprintf("%-*s  %-*s  %s", idWidth, "VERSION", typeWidth, "TYPE", "RELEASED")))
	for _, v := range list {
		var marks []string
		if v.ID == latest.Release {
			marks = append(marks, "latest release")
		}
		if v.ID == latest.Snapshot {
			marks = append(marks, "latest snapshot")
		}
		line := shared.Bold.Render(fmt.Sprintf("%-*s", idWidth, v.ID)) + "  " +
			shared.RenderChannel(fmt.Sprintf("%-*s", typeWidth, v.Type)) + "  " +
			shared.Muted.Render(v.ReleaseTime.Format("2006-01-02"))
		if len(marks) > 0 {
			line += "  " + shared.StatusOK.Render("("+strings.Join(marks, ", ")+")")
		}
		fmt.Fprintln(out, line)
	}
}
