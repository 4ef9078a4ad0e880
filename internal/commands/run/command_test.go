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

package run

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/mcrun/internal/cli"
	"github.com/tombee/mcrun/internal/commands/shared"
	"github.com/tombee/mcrun/internal/lifecycle"
	"github.com/tombee/mcrun/internal/manifest/manifesttest"
	"github.com/tombee/mcrun/internal/workspace"
	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

var envKeys = []string{
	"MCRUN_DIRECTORY", "MCRUN_SERVER_VERSION", "MCRUN_JAVA",
	"MCRUN_MIN_MEMORY", "MCRUN_MAX_MEMORY", "MCRUN_SHUTDOWN_TIMEOUT",
	"MCRUN_ACCEPT_EULA", "MCRUN_METRICS_ADDR", "MCRUN_DEBUG",
	"MCRUN_LOG_LEVEL", "LOG_LEVEL", "MCRUN_LOG_FORMAT", "LOG_FORMAT",
}

type harness struct {
	dir  string
	java string
	srv  *manifesttest.Server
	logs bytes.Buffer
}

// newHarness points mcrun at a fake manifest and a shell script standing
// in for java that runs body.
func newHarness(t *testing.T, body string, releases ...manifesttest.Release) *harness {
	t.Helper()
	if os.Getenv("SKIP_SPAWN_TESTS") != "" {
		t.Skip("Skipping spawn tests (SKIP_SPAWN_TESTS is set)")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	shared.ResetFlagsForTest()
	t.Cleanup(shared.ResetFlagsForTest)

	if len(releases) == 0 {
		releases = []manifesttest.Release{
			{ID: "1.20.3", Type: "release"},
			{ID: "23w51b", Type: "snapshot"},
			{ID: "1.20.4", Type: "release"},
		}
	}
	h := &harness{
		dir: t.TempDir(),
		srv: manifesttest.NewServer(t, releases...),
	}
	t.Setenv("MCRUN_MANIFEST_URL", h.srv.ManifestURL())

	h.java = filepath.Join(t.TempDir(), "fake-java")
	require.NoError(t, os.WriteFile(h.java, []byte("#!/bin/sh\n"+body), 0o755))
	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	root := cli.NewRootCommand()
	root.AddCommand(NewCommand())
	root.SetIn(strings.NewReader(""))
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&h.logs)
	root.SetArgs(append([]string{"run", "-d", h.dir, "--java", h.java, "--log-format", "json"}, args...))

	err := root.Execute()
	var spawnErr *mcerrors.SpawnError
	if errors.As(err, &spawnErr) && strings.Contains(err.Error(), "operation not permitted") {
		t.Skipf("Skipping: spawn not permitted in this environment: %v", err)
	}
	return err
}

func stubPrompt(t *testing.T, interactive bool, answer bool) *int {
	t.Helper()
	calls := 0
	prevConfirm, prevNonInteractive := confirmEULA, nonInteractive
	confirmEULA = func() (bool, error) { calls++; return answer, nil }
	nonInteractive = func() bool { return !interactive }
	t.Cleanup(func() { confirmEULA, nonInteractive = prevConfirm, prevNonInteractive })
	return &calls
}

func TestRun_InstallsAndSupervisesServer(t *testing.T) {
	h := newHarness(t, `printf '%s\n' "$@" > args.txt
exit 0
`)
	stubPrompt(t, false, false)

	require.NoError(t, h.run(t, "--accept-eula", "--min-memory", "1G", "--max-memory", "2G"))

	jar, err := os.ReadFile(filepath.Join(h.dir, "server.jar"))
	require.NoError(t, err)
	assert.Equal(t, h.srv.Jar("1.20.4"), jar, "latest release should be installed")

	args, err := os.ReadFile(filepath.Join(h.dir, "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "-Xms1G\n-Xmx2G\n-jar\nserver.jar\nnogui\n", string(args))

	accepted, err := workspace.EULAAccepted(h.dir)
	require.NoError(t, err)
	assert.True(t, accepted)

	events, err := os.ReadFile(filepath.Join(h.dir, lifecycle.EventLogName))
	require.NoError(t, err)
	assert.Contains(t, string(events), `"event":"exited"`)
	assert.Contains(t, string(events), `"version":"1.20.4"`)

	_, err = os.Stat(filepath.Join(h.dir, lifecycle.PIDFileName))
	assert.True(t, os.IsNotExist(err), "pid file should be removed after the run")
	assert.Contains(t, h.logs.String(), "server finished")
}

func TestRun_PinnedVersionAndReuse(t *testing.T) {
	h := newHarness(t, "exit 0\n")
	stubPrompt(t, false, false)

	require.NoError(t, h.run(t, "--server-version", "1.20.3", "--accept-eula"))
	require.NoError(t, h.run(t, "--server-version", "1.20.3"))

	jar, err := os.ReadFile(filepath.Join(h.dir, "server.jar"))
	require.NoError(t, err)
	assert.Equal(t, h.srv.Jar("1.20.3"), jar)
	assert.Equal(t, 1, h.srv.Downloads(), "verified jar should not be downloaded again")
}

func TestRun_AbnormalExitStatusPassesThrough(t *testing.T) {
	h := newHarness(t, "exit 3\n")
	stubPrompt(t, false, false)

	err := h.run(t, "--accept-eula")
	require.Error(t, err)
	assert.Equal(t, 3, shared.ExitCodeFor(err))
}

func TestRun_AlreadyRunning(t *testing.T) {
	h := newHarness(t, "touch started\nexit 0\n")
	stubPrompt(t, false, false)

	held := lifecycle.NewPIDFile(filepath.Join(h.dir, lifecycle.PIDFileName))
	require.NoError(t, held.Acquire(os.Getpid()))
	t.Cleanup(func() { _ = held.Release() })

	err := h.run(t, "--accept-eula")
	require.Error(t, err)
	assert.Equal(t, shared.ExitAlreadyRunning, shared.ExitCodeFor(err))
	assert.Zero(t, h.srv.Downloads())
	assert.NoFileExists(t, filepath.Join(h.dir, "started"))
}

func TestRun_ChecksumMismatchDoesNotStartServer(t *testing.T) {
	h := newHarness(t, "touch started\nexit 0\n", manifesttest.Release{ID: "1.20.4", Type: "release", BadDigest: true})
	stubPrompt(t, false, false)

	err := h.run(t, "--accept-eula")
	require.Error(t, err)
	assert.Equal(t, shared.ExitFetch, shared.ExitCodeFor(err))
	assert.NoFileExists(t, filepath.Join(h.dir, "server.jar"))
	assert.NoFileExists(t, filepath.Join(h.dir, "started"))
}

func TestRun_UnknownVersion(t *testing.T) {
	h := newHarness(t, "exit 0\n")
	stubPrompt(t, false, false)

	err := h.run(t, "--server-version", "0.0.1")
	require.Error(t, err)
	assert.Equal(t, shared.ExitResolve, shared.ExitCodeFor(err))
}

func TestRun_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad timeout", []string{"--shutdown-timeout", "soon"}},
		{"bad memory", []string{"--max-memory", "lots"}},
		{"min above max", []string{"--min-memory", "8G", "--max-memory", "1G"}},
		{"bad channel", []string{"--server-version", "latest-nightly"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "exit 0\n")
			stubPrompt(t, false, false)

			err := h.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, shared.ExitUsage, shared.ExitCodeFor(err))
			assert.Zero(t, h.srv.Downloads())
		})
	}
}

func TestRun_EULA(t *testing.T) {
	t.Run("non-interactive without acceptance still starts", func(t *testing.T) {
		h := newHarness(t, "touch started\nexit 0\n")
		calls := stubPrompt(t, false, true)

		require.NoError(t, h.run(t))
		assert.Zero(t, *calls)
		assert.FileExists(t, filepath.Join(h.dir, "started"))
		assert.NoFileExists(t, filepath.Join(h.dir, workspace.EULAFile))
		assert.Contains(t, h.logs.String(), "EULA not accepted")
	})

	t.Run("interactive accept writes eula", func(t *testing.T) {
		h := newHarness(t, "exit 0\n")
		calls := stubPrompt(t, true, true)

		require.NoError(t, h.run(t))
		assert.Equal(t, 1, *calls)
		accepted, err := workspace.EULAAccepted(h.dir)
		require.NoError(t, err)
		assert.True(t, accepted)
	})

	t.Run("interactive decline aborts", func(t *testing.T) {
		h := newHarness(t, "touch started\nexit 0\n")
		stubPrompt(t, true, false)

		err := h.run(t)
		require.Error(t, err)
		assert.Equal(t, shared.ExitUsage, shared.ExitCodeFor(err))
		assert.NoFileExists(t, filepath.Join(h.dir, "started"))
	})

	t.Run("already accepted skips prompt", func(t *testing.T) {
		h := newHarness(t, "exit 0\n")
		require.NoError(t, workspace.AcceptEULA(h.dir))
		calls := stubPrompt(t, true, false)

		require.NoError(t, h.run(t))
		assert.Zero(t, *calls)
	})
}

func TestRun_MetricsEndpointBadAddress(t *testing.T) {
	h := newHarness(t, "touch started\nexit 0\n")
	stubPrompt(t, false, false)

	err := h.run(t, "--accept-eula", "--metrics-addr", "256.0.0.1:bad")
	require.Error(t, err)
	assert.Equal(t, shared.ExitUsage, shared.ExitCodeFor(err))
	assert.NoFileExists(t, filepath.Join(h.dir, "started"))
}
