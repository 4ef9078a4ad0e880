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

// Package fetch downloads, verifies and atomically installs the server
// artifact.
package fetch

import (
	"context"
	"crypto/sha1" // #nosec G505 -- SHA-1 is the digest the upstream manifest publishes
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/tombee/mcrun/internal/fsutil"
	"github.com/tombee/mcrun/internal/log"
	"github.com/tombee/mcrun/internal/manifest"
	"github.com/tombee/mcrun/internal/metrics"
	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

// ArtifactName is the installed server jar's file name.
const ArtifactName = "server.jar"

const (
	chunkSize               = 32 << 10
	defaultProgressInterval = 2 * time.Second
	artifactPerm            = 0o644
)

// Fetcher installs artifacts described by a manifest.Download.
type Fetcher struct {
	client   *http.Client
	logger   *slog.Logger
	progress *rate.Sometimes
}

// NewFetcher creates a Fetcher. A nil client uses http.DefaultClient and a
// nil logger uses slog.Default().
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:   client,
		logger:   log.WithComponent(log.OrDefault(logger), "fetcher"),
		progress: &rate.Sometimes{Interval: defaultProgressInterval},
	}
}

// EnsureInstalled makes target hold content whose SHA-1 equals dl.SHA1.
//
// An existing matching file is left alone and no request is made. Otherwise
// the body is streamed into a temp file beside target while being hashed,
// and renamed over target only once the digest matches. On any failure the
// temp file is removed and target keeps its previous content.
func (f *Fetcher) EnsureInstalled(ctx context.Context, dl manifest.Download, target string) error {
	logger := f.logger.With(log.PathKey, target)

	actual, err := hashFile(target)
	switch {
	case err == nil && actual == dl.SHA1:
		logger.Debug("artifact up to date, skipping download", "sha1", actual)
		metrics.RecordDownload(metrics.DownloadCached)
		return nil
	case err == nil:
		logger.Info("artifact does not match expected checksum, downloading", "expected", dl.SHA1, "actual", actual)
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("no existing artifact")
	default:
		metrics.RecordDownload(metrics.DownloadError)
		return &mcerrors.IOError{Op: "read", Path: target, Cause: err}
	}

	err = f.download(ctx, logger, dl, target)
	switch {
	case err == nil:
		metrics.RecordDownload(metrics.DownloadInstalled)
	case mcerrors.TypeOf(err) == mcerrors.TypeChecksumMismatch:
		metrics.RecordDownload(metrics.DownloadChecksumMismatch)
	default:
		metrics.RecordDownload(metrics.DownloadError)
	}
	return err
}

func (f *Fetcher) download(ctx context.Context, logger *slog.Logger, dl manifest.Download, target string) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dl.URL, nil)
	if err != nil {
		return &mcerrors.NetworkError{Op: "download artifact", URL: dl.URL, Cause: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return &mcerrors.NetworkError{Op: "download artifact", URL: dl.URL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &mcerrors.NetworkError{Op: "download artifact", URL: dl.URL, StatusCode: resp.StatusCode}
	}

	tmp, err := fsutil.CreateTemp(target, artifactPerm)
	if err != nil {
		return &mcerrors.IOError{Op: "create temp file", Path: target, Cause: err}
	}
	tmpPath := tmp.Name()
	logger.Info("downloading server", "size", humanize.IBytes(uint64(max(dl.Size, 0))), "url", dl.URL)

	// discard closes and removes the temp file, attaching any cleanup
	// failure to the primary error.
	discard := func(primary error) error {
		closeErr := tmp.Close()
		if closeErr != nil && errors.Is(closeErr, os.ErrClosed) {
			closeErr = nil
		}
		removeErr := os.Remove(tmpPath)
		if removeErr != nil && errors.Is(removeErr, fs.ErrNotExist) {
			removeErr = nil
		}
		return mcerrors.WithCleanup(primary, errors.Join(closeErr, removeErr))
	}

	h := sha1.New() // #nosec G401
	written, err := f.stream(resp.Body, io.MultiWriter(tmp, h), dl, tmpPath, logger)
	if err != nil {
		return discard(err)
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if actual != dl.SHA1 {
		logger.Error("checksum mismatch", "expected", dl.SHA1, "actual", actual, "bytes", written)
		return discard(&mcerrors.ChecksumMismatchError{Path: target, Expected: dl.SHA1, Actual: actual})
	}
	logger.Debug("checksum verified", "sha1", actual)

	if err := tmp.Sync(); err != nil {
		return discard(&mcerrors.IOError{Op: "sync", Path: tmpPath, Cause: err})
	}
	if err := tmp.Close(); err != nil {
		return discard(&mcerrors.IOError{Op: "close", Path: tmpPath, Cause: err})
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return discard(&mcerrors.IOError{Op: "rename", Path: target, Cause: err})
	}
	fsutil.SyncDir(filepath.Dir(target))

	logger.Info("server installed",
		"size", humanize.IBytes(uint64(written)),
		log.DurationKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// stream copies body into w chunk by chunk. Read failures are network
// errors; write failures are local I/O errors.
func (f *Fetcher) stream(body io.Reader, w io.Writer, dl manifest.Download, tmpPath string, logger *slog.Logger) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return written, &mcerrors.IOError{Op: "write", Path: tmpPath, Cause: werr}
			}
			written += int64(n)
			metrics.AddDownloadBytes(int64(n))
			f.progress.Do(func() {
				logger.Info("download progress",
					"received", humanize.IBytes(uint64(written)),
					"total", humanize.IBytes(uint64(max(dl.Size, 0))),
				)
			})
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, &mcerrors.NetworkError{Op: "read artifact body", URL: dl.URL, Cause: rerr}
		}
	}
}

// hashFile returns the lowercase hex SHA-1 of the file at path.
func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha1.New() // #nosec G401
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
