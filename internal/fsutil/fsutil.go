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

// Package fsutil holds the temp-file-then-rename helpers shared by the
// artifact fetcher and workspace bookkeeping.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// TempSuffix marks in-progress files.
const TempSuffix = ".part"

// TempPath returns a fresh hidden sibling of path: ".<base>.<uuid>.part".
func TempPath(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+"."+uuid.NewString()+TempSuffix)
}

// CreateTemp creates a new, exclusive temp file next to path. The caller
// owns the returned file and must remove it if it is not renamed into place.
func CreateTemp(path string, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(TempPath(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
}

// SyncDir flushes directory metadata so a completed rename survives a
// crash. Errors are ignored; not every filesystem supports it.
func SyncDir(dir string) {
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
}

// WriteFileAtomic writes content to path using write-to-temp-then-rename,
// so readers observe either the old file or the complete new one.
func WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	tmpFile, err := CreateTemp(path, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(content); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		tmpFile = nil
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	SyncDir(filepath.Dir(path))
	return nil
}
