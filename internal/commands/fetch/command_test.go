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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/mcrun/internal/cli"
	"github.com/tombee/mcrun/internal/commands/shared"
	"github.com/tombee/mcrun/internal/lifecycle"
	"github.com/tombee/mcrun/internal/manifest/manifesttest"
)

func setup(t *testing.T, releases ...manifesttest.Release) (*manifesttest.Server, string) {
	t.Helper()
	for _, k := range []string{"MCRUN_DIRECTORY", "MCRUN_SERVER_VERSION", "MCRUN_DEBUG", "MCRUN_LOG_LEVEL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	shared.ResetFlagsForTest()
	t.Cleanup(shared.ResetFlagsForTest)

	srv := manifesttest.NewServer(t, releases...)
	t.Setenv("MCRUN_MANIFEST_URL", srv.ManifestURL())
	return srv, t.TempDir()
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cli.NewRootCommand()
	root.AddCommand(NewCommand())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"fetch"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestFetch_InstallsLatestRelease(t *testing.T) {
	srv, dir := setup(t,
		manifesttest.Release{ID: "1.20.4", Type: "release"},
		manifesttest.Release{ID: "24w03a", Type: "snapshot"},
	)

	out, err := execute(t, "-d", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1.20.4")
	assert.Contains(t, out, "installed")

	jar, err := os.ReadFile(filepath.Join(dir, "server.jar"))
	require.NoError(t, err)
	assert.Equal(t, srv.Jar("1.20.4"), jar)
	assert.NoFileExists(t, filepath.Join(dir, lifecycle.PIDFileName))
}

func TestFetch_JSONOutput(t *testing.T) {
	_, dir := setup(t,
		manifesttest.Release{ID: "1.20.4", Type: "release"},
		manifesttest.Release{ID: "24w03a", Type: "snapshot"},
	)

	out, err := execute(t, "-d", dir, "--server-version", "latest-snapshot", "--json")
	require.NoError(t, err)

	var resp struct {
		Success bool                 `json:"success"`
		Command string               `json:"command"`
		Result  shared.InstallResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "fetch", resp.Command)
	assert.Equal(t, "24w03a", resp.Result.Version.ID)
	assert.Equal(t, "24w03a", resp.Result.Installed)
	assert.Len(t, resp.Result.SHA1, 40)
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		releases []manifesttest.Release
		args     []string
		want     int
	}{
		{
			name:     "unknown version",
			releases: []manifesttest.Release{{ID: "1.20.4", Type: "release"}},
			args:     []string{"--server-version", "1.8.9"},
			want:     shared.ExitResolve,
		},
		{
			name:     "no snapshot published",
			releases: []manifesttest.Release{{ID: "1.20.4", Type: "release"}},
			args:     []string{"--server-version", "latest-snapshot"},
			want:     shared.ExitResolve,
		},
		{
			name:     "checksum mismatch",
			releases: []manifesttest.Release{{ID: "1.20.4", Type: "release", BadDigest: true}},
			want:     shared.ExitFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, dir := setup(t, tt.releases...)
			_, err := execute(t, append([]string{"-d", dir}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.want, shared.ExitCodeFor(err))
		})
	}
}

func TestFetch_LockedDirectory(t *testing.T) {
	srv, dir := setup(t, manifesttest.Release{ID: "1.20.4", Type: "release"})

	held := lifecycle.NewPIDFile(filepath.Join(dir, lifecycle.PIDFileName))
	require.NoError(t, held.Acquire(os.Getpid()))
	t.Cleanup(func() { _ = held.Release() })

	_, err := execute(t, "-d", dir)
	require.Error(t, err)
	assert.Equal(t, shared.ExitAlreadyRunning, shared.ExitCodeFor(err))
	assert.Zero(t, srv.Downloads())
}
