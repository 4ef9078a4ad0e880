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

package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/srv/minecraft")

	assert.Equal(t, "/srv/minecraft", cfg.Directory)
	assert.Equal(t, "java", cfg.Java)
	assert.Equal(t, "server.jar", cfg.JarName)
	assert.Equal(t, "4096M", cfg.MinMemory)
	assert.Equal(t, "4096M", cfg.MaxMemory)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "stop", cfg.StopCommand)
	require.NoError(t, cfg.Validate())
}

func TestConfig_JVMArgs(t *testing.T) {
	cfg := DefaultConfig("/srv")
	cfg.MinMemory = "1G"
	cfg.MaxMemory = "6G"

	assert.Equal(t, []string{"-Xms1G", "-Xmx6G", "-jar", "server.jar", "nogui"}, cfg.JVMArgs())

	cfg.ServerArgs = nil
	assert.Equal(t, []string{"-Xms1G", "-Xmx6G", "-jar", "server.jar"}, cfg.JVMArgs())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantKey string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty directory", func(c *Config) { c.Directory = "" }, "directory"},
		{"empty java", func(c *Config) { c.Java = "" }, "java"},
		{"empty jar", func(c *Config) { c.JarName = "" }, "jar_name"},
		{"zero timeout", func(c *Config) { c.ShutdownTimeout = 0 }, "shutdown_timeout"},
		{"blank stop", func(c *Config) { c.StopCommand = "  " }, "stop_command"},
		{"multi-line stop", func(c *Config) { c.StopCommand = "save-all\nstop" }, "stop_command"},
		{"bad min", func(c *Config) { c.MinMemory = "4 GB" }, "min_memory"},
		{"bad max", func(c *Config) { c.MaxMemory = "0M" }, "max_memory"},
		{"min above max", func(c *Config) { c.MinMemory, c.MaxMemory = "2G", "1024M" }, "min_memory"},
		{"min equals max across units", func(c *Config) { c.MinMemory, c.MaxMemory = "1G", "1024m" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("/srv")
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantKey == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *mcerrors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}

func TestParseMemory(t *testing.T) {
	tests := []struct {
		input   string
		want    uint64
		wantErr bool
	}{
		{"1048576", 1 << 20, false},
		{"512k", 512 << 10, false},
		{"512K", 512 << 10, false},
		{"4096M", 4096 << 20, false},
		{"2g", 2 << 30, false},
		{"", 0, true},
		{"0", 0, true},
		{"01G", 0, true},
		{"1.5G", 0, true},
		{"4GB", 0, true},
		{"-1G", 0, true},
		{"99999999999999999999G", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMemory(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
