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

// Package workspace prepares the server directory and keeps its EULA
// acknowledgement.
package workspace

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tombee/mcrun/internal/fsutil"
	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

// EULAFile is the acknowledgement file the server reads at startup.
const EULAFile = "eula.txt"

// EULAURL is where the EULA can be read.
const EULAURL = "https://aka.ms/MinecraftEULA"

const probeName = ".mcrun-write-probe"

// Prepare creates dir if needed and returns its canonical absolute path
// after confirming it is writable. The process working directory is not
// changed.
func Prepare(dir string) (string, error) {
	if dir == "" {
		return "", &mcerrors.ConfigError{Key: "directory", Reason: "must not be empty"}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &mcerrors.IOError{Op: "create directory", Path: dir, Cause: err}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", &mcerrors.IOError{Op: "resolve directory", Path: dir, Cause: err}
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &mcerrors.IOError{Op: "resolve directory", Path: abs, Cause: err}
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return "", &mcerrors.IOError{Op: "stat directory", Path: canonical, Cause: err}
	}
	if !info.IsDir() {
		return "", &mcerrors.IOError{Op: "prepare directory", Path: canonical, Cause: fmt.Errorf("not a directory")}
	}

	probe := filepath.Join(canonical, probeName)
	f, err := os.OpenFile(probe, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", &mcerrors.IOError{Op: "check writable", Path: canonical, Cause: err}
	}
	f.Close()
	if err := os.Remove(probe); err != nil {
		return "", &mcerrors.IOError{Op: "check writable", Path: canonical, Cause: err}
	}

	return canonical, nil
}

// EULAAccepted reports whether dir's eula.txt contains eula=true.
// A missing file means not accepted.
func EULAAccepted(dir string) (bool, error) {
	path := filepath.Join(dir, EULAFile)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &mcerrors.IOError{Op: "read", Path: path, Cause: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if ok && strings.TrimSpace(key) == "eula" {
			return strings.EqualFold(strings.TrimSpace(value), "true"), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, &mcerrors.IOError{Op: "read", Path: path, Cause: err}
	}
	return false, nil
}

// AcceptEULA atomically writes an accepted eula.txt into dir.
func AcceptEULA(dir string) error {
	path := filepath.Join(dir, EULAFile)
	content := fmt.Sprintf(
		"#By changing the setting below to TRUE you are indicating your agreement to our EULA (%s).\n#%s\neula=true\n",
		EULAURL, time.Now().Format(time.UnixDate),
	)
	if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return &mcerrors.IOError{Op: "write", Path: path, Cause: err}
	}
	return nil
}
