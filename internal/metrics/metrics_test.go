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

package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordManifestRequest(t *testing.T) {
	tests := []struct {
		resource string
		result   string
	}{
		{"manifest", "ok"},
		{"metadata", "ok"},
		{"manifest", "network"},
		{"metadata", "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.resource+"/"+tt.result, func(t *testing.T) {
			labels := prometheus.Labels{"resource": tt.resource, "result": tt.result}
			initial := testutil.ToFloat64(manifestRequests.With(labels))

			RecordManifestRequest(tt.resource, tt.result)

			assert.Equal(t, initial+1, testutil.ToFloat64(manifestRequests.With(labels)))
		})
	}
}

func TestRecordDownload(t *testing.T) {
	for _, result := range []string{DownloadCached, DownloadInstalled, DownloadChecksumMismatch, DownloadError} {
		initial := testutil.ToFloat64(artifactDownloads.WithLabelValues(result))
		RecordDownload(result)
		assert.Equal(t, initial+1, testutil.ToFloat64(artifactDownloads.WithLabelValues(result)), result)
	}
}

func TestAddDownloadBytes(t *testing.T) {
	initial := testutil.ToFloat64(artifactBytes)

	AddDownloadBytes(1024)
	AddDownloadBytes(0)
	AddDownloadBytes(-5)

	assert.Equal(t, initial+1024, testutil.ToFloat64(artifactBytes))
}

func TestRecordRun(t *testing.T) {
	initial := testutil.ToFloat64(supervisorRuns.WithLabelValues("forced"))
	RecordRun("forced")
	RecordRun("forced")
	assert.Equal(t, initial+2, testutil.ToFloat64(supervisorRuns.WithLabelValues("forced")))
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	RecordRun("exited")

	addr, err := Serve(ctx, "127.0.0.1:0", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "mcrun_supervisor_runs_total"))
}

func TestServe_BadAddress(t *testing.T) {
	_, err := Serve(context.Background(), "not-an-address", slog.Default())
	assert.Error(t, err)
}
