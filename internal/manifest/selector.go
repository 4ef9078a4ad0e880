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
	"fmt"
	"strings"

	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

// Selector picks a version: either an explicit id, or the latest version
// of a channel.
type Selector struct {
	ID     string
	Latest VersionType
}

// LatestRelease selects the current release.
func LatestRelease() Selector { return Selector{Latest: TypeRelease} }

// Exact selects the version with the given id.
func Exact(id string) Selector { return Selector{ID: id} }

// ParseSelector interprets a --server-version value. "", "latest" and
// "latest-release" select the current release; "latest-<type>" selects the
// latest of that channel; anything else is an explicit id.
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	switch lower := strings.ToLower(s); {
	case lower == "" || lower == "latest":
		return LatestRelease(), nil
	case strings.HasPrefix(lower, "latest-"):
		t, err := ParseVersionType(strings.ReplaceAll(strings.TrimPrefix(lower, "latest-"), "-", "_"))
		if err != nil {
			return Selector{}, &mcerrors.ConfigError{Key: "server_version", Reason: err.Error()}
		}
		return Selector{Latest: t}, nil
	default:
		return Exact(s), nil
	}
}

func (s Selector) String() string {
	if s.ID != "" {
		return s.ID
	}
	return "latest-" + strings.ReplaceAll(string(s.Latest), "_", "-")
}

// Resolve returns the manifest entry named by sel. It is pure and returns
// the same entry for the same inputs.
func Resolve(m *VersionManifest, sel Selector) (Version, error) {
	if sel.ID != "" {
		v, ok := m.Version(sel.ID)
		if !ok {
			return Version{}, &mcerrors.NotFoundError{Resource: "version", ID: sel.ID}
		}
		return v, nil
	}

	var pointer string
	switch sel.Latest {
	case TypeRelease:
		pointer = m.Latest.Release
	case TypeSnapshot:
		pointer = m.Latest.Snapshot
	case TypeOldBeta, TypeOldAlpha:
		return Version{}, &mcerrors.NotImplementedError{Feature: fmt.Sprintf("latest %s", sel.Latest)}
	default:
		return Version{}, &mcerrors.ConfigError{Key: "server_version", Reason: fmt.Sprintf("unknown channel %q", sel.Latest)}
	}

	if pointer == "" {
		return Version{}, &mcerrors.InvariantViolationError{
			Subject: "latest." + string(sel.Latest),
			Reason:  "pointer is empty",
		}
	}
	v, ok := m.Version(pointer)
	if !ok {
		return Version{}, &mcerrors.InvariantViolationError{
			Subject: "latest." + string(sel.Latest),
			Reason:  fmt.Sprintf("points at %q which is not in versions", pointer),
		}
	}
	return v, nil
}
