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

// Package manifesttest serves a fake version manifest, per-version metadata
// and server jars over httptest for command and integration tests.
package manifesttest

import (
	"archive/zip"
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// Release is one version served by the fake.
type Release struct {
	ID   string
	Type string // release, snapshot, old_beta, old_alpha

	// Jar overrides the generated jar body.
	Jar []byte

	// BadDigest publishes a digest that does not match the jar.
	BadDigest bool
}

// Server is a running fake.
type Server struct {
	*httptest.Server

	jars      map[string][]byte
	downloads atomic.Int32
}

// ManifestURL is the URL to configure as the manifest endpoint.
func (s *Server) ManifestURL() string {
	return s.URL + "/mc/game/version_manifest_v2.json"
}

// Jar returns the body served for id.
func (s *Server) Jar(id string) []byte {
	return s.jars[id]
}

// Downloads counts jar requests served.
func (s *Server) Downloads() int {
	return int(s.downloads.Load())
}

// NewServer starts a fake whose latest release and snapshot are the last
// entries of those types in releases. It is closed with the test.
func NewServer(t *testing.T, releases ...Release) *Server {
	t.Helper()

	s := &Server{jars: make(map[string][]byte)}
	mux := http.NewServeMux()
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	type entry struct {
		ID          string    `json:"id"`
		Type        string    `json:"type"`
		URL         string    `json:"url"`
		Time        time.Time `json:"time"`
		ReleaseTime time.Time `json:"releaseTime"`
	}
	var doc struct {
		Latest struct {
			Release  string `json:"release"`
			Snapshot string `json:"snapshot"`
		} `json:"latest"`
		Versions []entry `json:"versions"`
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range releases {
		jar := r.Jar
		if jar == nil {
			jar = JarWithVersion(t, r.ID)
		}
		s.jars[r.ID] = jar

		switch r.Type {
		case "release":
			doc.Latest.Release = r.ID
		case "snapshot":
			doc.Latest.Snapshot = r.ID
		}
		stamp := base.Add(time.Duration(i) * 24 * time.Hour)
		doc.Versions = append(doc.Versions, entry{
			ID:          r.ID,
			Type:        r.Type,
			URL:         fmt.Sprintf("%s/v1/packages/%s.json", s.URL, r.ID),
			Time:        stamp,
			ReleaseTime: stamp,
		})

		digest := sha1.Sum(jar)
		sum := hex.EncodeToString(digest[:])
		if r.BadDigest {
			sum = "0000000000000000000000000000000000000000"
		}
		meta := map[string]any{
			"id": r.ID,
			"downloads": map[string]any{
				"server": map[string]any{
					"sha1": sum,
					"size": len(jar),
					"url":  fmt.Sprintf("%s/objects/%s/server.jar", s.URL, r.ID),
				},
			},
		}
		id := r.ID
		mux.HandleFunc("/v1/packages/"+id+".json", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(meta)
		})
		mux.HandleFunc("/objects/"+id+"/server.jar", func(w http.ResponseWriter, _ *http.Request) {
			s.downloads.Add(1)
			_, _ = w.Write(s.jars[id])
		})
	}

	// Newest first, as upstream lists them.
	for i, j := 0, len(doc.Versions)-1; i < j; i, j = i+1, j-1 {
		doc.Versions[i], doc.Versions[j] = doc.Versions[j], doc.Versions[i]
	}
	body, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	mux.HandleFunc("/mc/game/version_manifest_v2.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	return s
}

// JarWithVersion builds a minimal zip carrying version.json with id.
func JarWithVersion(t *testing.T, id string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("version.json")
	if err != nil {
		t.Fatalf("create version.json: %v", err)
	}
	if _, err := fmt.Fprintf(w, `{"id":%q,"name":%q,"world_version":3700}`, id, id); err != nil {
		t.Fatalf("write version.json: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close jar: %v", err)
	}
	return buf.Bytes()
}
