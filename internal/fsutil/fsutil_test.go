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

package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempPath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "server.jar")

	a := TempPath(target)
	b := TempPath(target)

	assert.NotEqual(t, a, b)
	assert.Equal(t, dir, filepath.Dir(a))
	assert.True(t, strings.HasPrefix(filepath.Base(a), ".server.jar."))
	assert.True(t, strings.HasSuffix(a, TempSuffix))
}

func TestCreateTemp_Exclusive(t *testing.T) {
	target := filepath.Join(t.TempDir(), "server.jar")

	f, err := CreateTemp(target, 0o644)
	require.NoError(t, err)
	defer f.Close()

	_, err = os.OpenFile(f.Name(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	assert.True(t, os.IsExist(err))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eula.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("eula=false\n"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("eula=true\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "eula=true\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should remain")
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "eula.txt")
	assert.Error(t, WriteFileAtomic(path, []byte("x"), 0o644))
}
