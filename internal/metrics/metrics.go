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

// Package metrics exposes Prometheus counters for manifest lookups,
// artifact downloads and supervised runs.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Download results.
const (
	DownloadCached           = "cached"
	DownloadInstalled        = "installed"
	DownloadChecksumMismatch = "checksum_mismatch"
	DownloadError            = "error"
)

var (
	manifestRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcrun_manifest_requests_total",
			Help: "Total manifest and metadata requests by resource and result",
		},
		[]string{"resource", "result"},
	)

	artifactDownloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcrun_artifact_downloads_total",
			Help: "Total artifact install attempts by result",
		},
		[]string{"result"},
	)

	artifactBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mcrun_artifact_download_bytes_total",
			Help: "Total artifact bytes received",
		},
	)

	supervisorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcrun_supervisor_runs_total",
			Help: "Total supervised runs by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordManifestRequest counts one request against the manifest service.
// resource is "manifest" or "metadata"; result is "ok" or an error type.
func RecordManifestRequest(resource, result string) {
	manifestRequests.WithLabelValues(resource, result).Inc()
}

// RecordDownload counts one EnsureInstalled call by result.
func RecordDownload(result string) {
	artifactDownloads.WithLabelValues(result).Inc()
}

// AddDownloadBytes adds n received artifact bytes.
func AddDownloadBytes(n int64) {
	if n > 0 {
		artifactBytes.Add(float64(n))
	}
}

// RecordRun counts one supervised run by outcome
// (exited, stopped, forced, abnormal_exit, spawn_error).
func RecordRun(outcome string) {
	supervisorRuns.WithLabelValues(outcome).Inc()
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve exposes /metrics on addr until ctx is cancelled. The listener is
// bound before Serve returns so address errors surface to the caller.
func Serve(ctx context.Context, addr string, logger *slog.Logger) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", ln.Addr().String())
	return ln.Addr(), nil
}
