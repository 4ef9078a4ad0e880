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
	"io"
	"log/slog"
	"net/http"

	"github.com/tombee/mcrun/internal/config"
	"github.com/tombee/mcrun/internal/log"
	"github.com/tombee/mcrun/pkg/httpclient"
)

// LoadConfig loads the configuration and applies the persistent flags, then
// any command-specific overrides. Flags win over environment and file.
func LoadConfig(overrides ...config.Override) (*config.Config, error) {
	all := append([]config.Override{applyGlobalFlags}, overrides...)
	return config.Load(GetConfigPath(), directoryFlag, all...)
}

func applyGlobalFlags(c *config.Config) {
	if directoryFlag != "" {
		c.Directory = directoryFlag
	}
	if serverVersionFlag != "" {
		c.Server.Version = serverVersionFlag
	}
	if logLevelFlag != "" {
		c.Log.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		c.Log.Format = logFormatFlag
	}
}

// NewLogger builds the invocation logger writing to w, tagged with a fresh
// run id.
func NewLogger(cfg *config.Config, w io.Writer) (*slog.Logger, string) {
	lc := cfg.Logging()
	lc.Output = w
	runID := log.NewRunID()
	return log.WithRunContext(log.New(lc), runID), runID
}

// NewHTTPClient builds the client used for manifest, metadata and artifact
// requests. Downloads have no overall deadline; only header waits are bounded.
func NewHTTPClient(cfg *config.Config, logger *slog.Logger) (*http.Client, error) {
	return httpclient.New(httpclient.Config{
		Timeout:   cfg.Manifest.Timeout,
		UserAgent: UserAgent(),
		Logger:    log.WithComponent(logger, "http"),
	})
}
