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

package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tombee/mcrun/internal/log"
	"github.com/tombee/mcrun/internal/metrics"
	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

// maxDocumentSize caps manifest and metadata bodies.
const maxDocumentSize = 32 << 20

// Resolver fetches the version manifest and per-version metadata.
type Resolver struct {
	client      *http.Client
	manifestURL string
	logger      *slog.Logger
}

// NewResolver creates a Resolver. A nil client uses http.DefaultClient, an
// empty URL uses DefaultURL and a nil logger uses slog.Default().
func NewResolver(client *http.Client, manifestURL string, logger *slog.Logger) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	if manifestURL == "" {
		manifestURL = DefaultURL
	}
	return &Resolver{
		client:      client,
		manifestURL: manifestURL,
		logger:      log.WithComponent(log.OrDefault(logger), "resolver"),
	}
}

// FetchManifest downloads and decodes the version manifest.
func (r *Resolver) FetchManifest(ctx context.Context) (*VersionManifest, error) {
	r.logger.Debug("fetching version manifest", "url", r.manifestURL)

	var m VersionManifest
	if err := r.getJSON(ctx, "manifest", r.manifestURL, &m); err != nil {
		return nil, err
	}
	if err := m.validate(); err != nil {
		metrics.RecordManifestRequest("manifest", mcerrors.TypeDecode)
		return nil, err
	}

	metrics.RecordManifestRequest("manifest", "ok")
	r.logger.Debug("fetched version manifest",
		"versions", len(m.Versions),
		"latest_release", m.Latest.Release,
		"latest_snapshot", m.Latest.Snapshot,
	)
	return &m, nil
}

// FetchMetadata downloads the metadata document for v and checks its
// server download descriptor.
func (r *Resolver) FetchMetadata(ctx context.Context, v Version) (*VersionMetadata, error) {
	if v.URL == "" {
		metrics.RecordManifestRequest("metadata", mcerrors.TypeDecode)
		return nil, &mcerrors.DecodeError{Resource: "manifest", Reason: fmt.Sprintf("version %q has no metadata url", v.ID)}
	}
	r.logger.Debug("fetching version metadata", log.VersionKey, v.ID, "url", v.URL)

	var md VersionMetadata
	if err := r.getJSON(ctx, "metadata", v.URL, &md); err != nil {
		return nil, err
	}
	if err := md.normalize(); err != nil {
		metrics.RecordManifestRequest("metadata", mcerrors.TypeDecode)
		return nil, err
	}
	if md.ID == "" {
		md.ID = v.ID
	}

	metrics.RecordManifestRequest("metadata", "ok")
	r.logger.Debug("fetched version metadata",
		log.VersionKey, v.ID,
		"sha1", md.Downloads.Server.SHA1,
		"size", md.Downloads.Server.Size,
	)
	return &md, nil
}

// getJSON performs one GET and decodes the body into out. Transport and
// status failures are NetworkErrors; malformed bodies are DecodeErrors.
func (r *Resolver) getJSON(ctx context.Context, resource, url string, out any) error {
	err := r.doGetJSON(ctx, resource, url, out)
	if err != nil {
		metrics.RecordManifestRequest(resource, mcerrors.TypeOf(err))
	}
	return err
}

func (r *Resolver) doGetJSON(ctx context.Context, resource, url string, out any) error {
	op := "fetch " + resource

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &mcerrors.NetworkError{Op: op, URL: url, Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return &mcerrors.NetworkError{Op: op, URL: url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &mcerrors.NetworkError{Op: op, URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return &mcerrors.NetworkError{Op: op, URL: url, Cause: err}
	}
	if len(body) > maxDocumentSize {
		return &mcerrors.DecodeError{Resource: resource, Reason: "body exceeds size limit"}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &mcerrors.DecodeError{Resource: resource, Reason: "invalid JSON", Cause: err}
	}
	return nil
}
