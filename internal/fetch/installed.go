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

package fetch

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"

	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

// InstalledVersion reports the version id baked into a server jar's
// version.json.
func InstalledVersion(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", &mcerrors.IOError{Op: "open jar", Path: path, Cause: err}
	}
	defer zr.Close()

	f, err := zr.Open("version.json")
	if err != nil {
		return "", &mcerrors.DecodeError{Resource: "server jar", Reason: "no version.json", Cause: err}
	}
	defer f.Close()

	var info struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(io.LimitReader(f, 1<<20)).Decode(&info); err != nil {
		return "", &mcerrors.DecodeError{Resource: "server jar", Reason: "invalid version.json", Cause: err}
	}
	if info.ID == "" {
		return "", &mcerrors.DecodeError{Resource: "server jar", Reason: fmt.Sprintf("version.json in %s has no id", path)}
	}
	return info.ID, nil
}
