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
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

// DefaultURL is the upstream version manifest.
const DefaultURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

// VersionType is the release channel of a version.
type VersionType string

const (
	TypeRelease  VersionType = "release"
	TypeSnapshot VersionType = "snapshot"
	TypeOldBeta  VersionType = "old_beta"
	TypeOldAlpha VersionType = "old_alpha"
)

// VersionTypes lists every known channel in manifest order.
var VersionTypes = []VersionType{TypeRelease, TypeSnapshot, TypeOldBeta, TypeOldAlpha}

// ParseVersionType returns the VersionType named by s.
func ParseVersionType(s string) (VersionType, error) {
	switch t := VersionType(strings.ToLower(s)); t {
	case TypeRelease, TypeSnapshot, TypeOldBeta, TypeOldAlpha:
		return t, nil
	default:
		return "", fmt.Errorf("unknown version type %q", s)
	}
}

// UnmarshalJSON rejects channels outside the known set.
func (t *VersionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseVersionType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Latest holds the current version id of each channel that tracks one.
type Latest struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

// Version is one entry of the manifest.
type Version struct {
	ID              string      `json:"id"`
	Type            VersionType `json:"type"`
	URL             string      `json:"url"`
	Time            time.Time   `json:"time"`
	ReleaseTime     time.Time   `json:"releaseTime"`
	SHA1            string      `json:"sha1"`
	ComplianceLevel int         `json:"complianceLevel"`
}

// VersionManifest is the decoded version manifest. It is read-only once
// decoded.
type VersionManifest struct {
	Latest   Latest    `json:"latest"`
	Versions []Version `json:"versions"`
}

// Version returns the entry with the given id.
func (m *VersionManifest) Version(id string) (Version, bool) {
	for _, v := range m.Versions {
		if v.ID == id {
			return v, true
		}
	}
	return Version{}, false
}

// Filter returns the entries of type t in manifest order, or all entries
// when t is empty.
func (m *VersionManifest) Filter(t VersionType) []Version {
	if t == "" {
		return m.Versions
	}
	var out []Version
	for _, v := range m.Versions {
		if v.Type == t {
			out = append(out, v)
		}
	}
	return out
}

func (m *VersionManifest) validate() error {
	seen := make(map[string]struct{}, len(m.Versions))
	for _, v := range m.Versions {
		if v.ID == "" {
			return &mcerrors.DecodeError{Resource: "manifest", Reason: "version entry without id"}
		}
		if _, dup := seen[v.ID]; dup {
			return &mcerrors.DecodeError{Resource: "manifest", Reason: fmt.Sprintf("duplicate version id %q", v.ID)}
		}
		seen[v.ID] = struct{}{}
	}
	return nil
}

// Download describes one downloadable file.
type Download struct {
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Downloads lists the files published for a version. Only the server jar
// is used.
type Downloads struct {
	Server *Download `json:"server"`
}

// VersionMetadata is the per-version document a Version's URL points at.
type VersionMetadata struct {
	ID        string    `json:"id"`
	Downloads Downloads `json:"downloads"`
}

var sha1Pattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// normalize lowercases the server digest and checks it is well formed.
func (md *VersionMetadata) normalize() error {
	server := md.Downloads.Server
	if server == nil {
		return &mcerrors.DecodeError{Resource: "metadata", Reason: "no server download"}
	}
	server.SHA1 = strings.ToLower(server.SHA1)
	if !sha1Pattern.MatchString(server.SHA1) {
		return &mcerrors.DecodeError{Resource: "metadata", Reason: fmt.Sprintf("malformed sha1 %q", server.SHA1)}
	}
	if server.URL == "" {
		return &mcerrors.DecodeError{Resource: "metadata", Reason: "server download without url"}
	}
	return nil
}
