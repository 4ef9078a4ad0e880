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
	"context"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/tombee/mcrun/internal/config"
	"github.com/tombee/mcrun/internal/fetch"
	"github.com/tombee/mcrun/internal/log"
	"github.com/tombee/mcrun/internal/manifest"
)

// InstallResult describes the server jar placed in the working directory.
type InstallResult struct {
	// Version is the manifest entry the selector resolved to.
	Version manifest.Version `json:"version"`

	// Path is the absolute jar path.
	Path string `json:"path"`

	// SHA1 is the verified digest of the jar.
	SHA1 string `json:"sha1"`

	// Size is the published artifact size in bytes.
	Size int64 `json:"size"`

	// Installed is the version id read back from the jar, empty when the
	// jar carries no version.json.
	Installed string `json:"installed,omitempty"`
}

// Install resolves the configured selector against the manifest and makes
// sure dir holds the verified server jar for it.
func Install(ctx context.Context, cfg *config.Config, dir string, client *http.Client, logger *slog.Logger) (*InstallResult, error) {
	sel, err := cfg.Selector()
	if err != nil {
		return nil, err
	}

	resolver := manifest.NewResolver(client, cfg.Manifest.URL, logger)
	m, err := resolver.FetchManifest(ctx)
	if err != nil {
		return nil, err
	}

	v, err := manifest.Resolve(m, sel)
	if err != nil {
		return nil, err
	}
	logger.Info("resolved server version",
		"selector", sel.String(),
		log.VersionKey, v.ID,
		"type", string(v.Type),
	)

	md, err := resolver.FetchMetadata(ctx, v)
	if err != nil {
		return nil, err
	}

	target := filepath.Join(dir, fetch.ArtifactName)
	dl := *md.Downloads.Server
	if err := fetch.NewFetcher(client, logger).EnsureInstalled(ctx, dl, target); err != nil {
		return nil, err
	}

	res := &InstallResult{Version: v, Path: target, SHA1: dl.SHA1, Size: dl.Size}
	if id, err := fetch.InstalledVersion(target); err != nil {
		logger.Debug("could not read installed version", log.PathKey, target, log.Error(err))
	} else {
		res.Installed = id
		logger.Info("server jar ready", log.VersionKey, id, log.PathKey, target)
	}
	return res, nil
}
