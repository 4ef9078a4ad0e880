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

// Package config loads mcrun settings from an optional YAML file and
// MCRUN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/mcrun/internal/lifecycle"
	"github.com/tombee/mcrun/internal/log"
	"github.com/tombee/mcrun/internal/manifest"
	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

// FileName is the config file looked up in the server directory.
const FileName = "mcrun.yaml"

// Config represents the complete mcrun configuration.
type Config struct {
	// Directory is the server's working directory.
	// Environment: MCRUN_DIRECTORY
	// Default: .
	Directory string `yaml:"directory"`

	Server   ServerConfig   `yaml:"server"`
	Manifest ManifestConfig `yaml:"manifest"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// source is the file the config was read from, if any.
	source string
}

// ServerConfig configures the supervised server.
type ServerConfig struct {
	// Version selects the server: an id, "latest", "latest-release" or "latest-snapshot".
	// Environment: MCRUN_SERVER_VERSION
	// Default: latest
	Version string `yaml:"version"`

	// Java is the runtime executable.
	// Environment: MCRUN_JAVA
	// Default: java
	Java string `yaml:"java"`

	// MinMemory and MaxMemory are JVM heap sizes (e.g. 1G, 4096M).
	// Environment: MCRUN_MIN_MEMORY, MCRUN_MAX_MEMORY
	// Default: 4096M
	MinMemory string `yaml:"min_memory"`
	MaxMemory string `yaml:"max_memory"`

	// ShutdownTimeout bounds the wait for the server after the stop command.
	// Environment: MCRUN_SHUTDOWN_TIMEOUT
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// StopCommand is the console line sent on shutdown.
	// Default: stop
	StopCommand string `yaml:"stop_command"`

	// AcceptEULA writes eula=true before starting the server.
	// Environment: MCRUN_ACCEPT_EULA
	// Default: false
	AcceptEULA bool `yaml:"accept_eula"`
}

// ManifestConfig configures the version manifest service.
type ManifestConfig struct {
	// URL of the version manifest.
	// Environment: MCRUN_MANIFEST_URL
	URL string `yaml:"url"`

	// Timeout bounds the wait for response headers.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	// Environment: MCRUN_LOG_LEVEL, LOG_LEVEL
	Level string `yaml:"level"`

	// Format sets the output format (json, text). Empty picks by terminal.
	// Environment: MCRUN_LOG_FORMAT, LOG_FORMAT
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	// Environment: LOG_SOURCE
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr serves /metrics during `mcrun run` when non-empty.
	// Environment: MCRUN_METRICS_ADDR
	Addr string `yaml:"addr"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Directory: ".",
		Server: ServerConfig{
			Version:         "latest",
			Java:            lifecycle.DefaultJava,
			MinMemory:       lifecycle.DefaultMemory,
			MaxMemory:       lifecycle.DefaultMemory,
			ShutdownTimeout: lifecycle.DefaultShutdownTimeout,
			StopCommand:     lifecycle.DefaultStopCommand,
		},
		Manifest: ManifestConfig{
			URL:     manifest.DefaultURL,
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Override adjusts a loaded configuration before validation. The CLI uses
// overrides to apply flags.
type Override func(*Config)

// Load builds the configuration from defaults, a YAML file, the
// environment and overrides, in increasing precedence. configPath names the
// file; when empty, mcrun.yaml in directory (or MCRUN_DIRECTORY, or the
// current directory) is used if it exists.
func Load(configPath, directory string, overrides ...Override) (*Config, error) {
	cfg := Default()

	path, explicit := configPath, configPath != ""
	if !explicit {
		dir := firstNonEmpty(directory, os.Getenv("MCRUN_DIRECTORY"), cfg.Directory)
		path = filepath.Join(dir, FileName)
	}

	if err := cfg.loadFromFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, &mcerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", path),
				Cause:  err,
			}
		}
	} else {
		cfg.source = path
	}

	cfg.applyDefaults()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Source returns the file the configuration was read from, or "".
func (c *Config) Source() string {
	return c.source
}

// applyDefaults fills in zero values left by a partial file.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Directory == "" {
		c.Directory = def.Directory
	}
	if c.Server.Version == "" {
		c.Server.Version = def.Server.Version
	}
	if c.Server.Java == "" {
		c.Server.Java = def.Server.Java
	}
	if c.Server.MinMemory == "" {
		c.Server.MinMemory = def.Server.MinMemory
	}
	if c.Server.MaxMemory == "" {
		c.Server.MaxMemory = def.Server.MaxMemory
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Server.StopCommand == "" {
		c.Server.StopCommand = def.Server.StopCommand
	}
	if c.Manifest.URL == "" {
		c.Manifest.URL = def.Manifest.URL
	}
	if c.Manifest.Timeout == 0 {
		c.Manifest.Timeout = def.Manifest.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv overrides fields from MCRUN_* variables. Unparseable values
// are configuration errors rather than silently ignored.
func (c *Config) loadFromEnv() error {
	if val := os.Getenv("MCRUN_DIRECTORY"); val != "" {
		c.Directory = val
	}
	if val := os.Getenv("MCRUN_SERVER_VERSION"); val != "" {
		c.Server.Version = val
	}
	if val := os.Getenv("MCRUN_JAVA"); val != "" {
		c.Server.Java = val
	}
	if val := os.Getenv("MCRUN_MIN_MEMORY"); val != "" {
		c.Server.MinMemory = val
	}
	if val := os.Getenv("MCRUN_MAX_MEMORY"); val != "" {
		c.Server.MaxMemory = val
	}
	if val := os.Getenv("MCRUN_SHUTDOWN_TIMEOUT"); val != "" {
		d, err := ParseTimeout(val)
		if err != nil {
			return &mcerrors.ConfigError{Key: "MCRUN_SHUTDOWN_TIMEOUT", Reason: err.Error()}
		}
		c.Server.ShutdownTimeout = d
	}
	if val := os.Getenv("MCRUN_ACCEPT_EULA"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return &mcerrors.ConfigError{Key: "MCRUN_ACCEPT_EULA", Reason: fmt.Sprintf("not a boolean: %q", val)}
		}
		c.Server.AcceptEULA = b
	}
	if val := os.Getenv("MCRUN_MANIFEST_URL"); val != "" {
		c.Manifest.URL = val
	}
	if val := os.Getenv("MCRUN_METRICS_ADDR"); val != "" {
		c.Metrics.Addr = val
	}

	logEnv := log.FromEnv()
	if os.Getenv("MCRUN_DEBUG") != "" || os.Getenv("MCRUN_LOG_LEVEL") != "" || os.Getenv("LOG_LEVEL") != "" {
		c.Log.Level = logEnv.Level
	}
	if os.Getenv("MCRUN_LOG_FORMAT") != "" || os.Getenv("LOG_FORMAT") != "" {
		c.Log.Format = string(logEnv.Format)
	}
	if logEnv.AddSource {
		c.Log.AddSource = true
	}
	return nil
}

// ParseTimeout accepts a Go duration ("30s", "1m30s") or a bare number of
// seconds.
func ParseTimeout(s string) (time.Duration, error) {
	if secs, err := strconv.ParseUint(s, 10, 32); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Directory == "" {
		return &mcerrors.ConfigError{Key: "directory", Reason: "must not be empty"}
	}
	if _, err := manifest.ParseSelector(c.Server.Version); err != nil {
		return err
	}
	sc := c.Supervisor(c.Directory)
	if err := sc.Validate(); err != nil {
		return err
	}

	u, err := url.Parse(c.Manifest.URL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return &mcerrors.ConfigError{Key: "manifest.url", Reason: fmt.Sprintf("must be an http(s) URL, got %q", c.Manifest.URL)}
	}
	if c.Manifest.Timeout <= 0 {
		return &mcerrors.ConfigError{Key: "manifest.timeout", Reason: "must be > 0"}
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return &mcerrors.ConfigError{Key: "log.level", Reason: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}
	switch log.Format(strings.ToLower(c.Log.Format)) {
	case "", log.FormatJSON, log.FormatText:
	default:
		return &mcerrors.ConfigError{Key: "log.format", Reason: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}

	return nil
}

// Selector returns the parsed server version selector.
func (c *Config) Selector() (manifest.Selector, error) {
	return manifest.ParseSelector(c.Server.Version)
}

// Supervisor returns the supervisor settings for the server in dir.
func (c *Config) Supervisor(dir string) lifecycle.Config {
	sc := lifecycle.DefaultConfig(dir)
	sc.Java = c.Server.Java
	sc.MinMemory = c.Server.MinMemory
	sc.MaxMemory = c.Server.MaxMemory
	sc.ShutdownTimeout = c.Server.ShutdownTimeout
	sc.StopCommand = c.Server.StopCommand
	return sc
}

// Logging returns the logger configuration.
func (c *Config) Logging() *log.Config {
	lc := log.DefaultConfig()
	lc.Level = c.Log.Level
	if c.Log.Format != "" {
		lc.Format = log.Format(strings.ToLower(c.Log.Format))
	}
	lc.AddSource = c.Log.AddSource
	return lc
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
