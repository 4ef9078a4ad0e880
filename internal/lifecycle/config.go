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
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

// Defaults for a supervised run.
const (
	DefaultJava            = "java"
	DefaultJarName         = "server.jar"
	DefaultMemory          = "4096M"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultStopCommand     = "stop"
)

// memoryPattern matches JVM heap sizes such as 512M, 4G or 1048576.
var memoryPattern = regexp.MustCompile(`^[1-9][0-9]*[kKmMgG]?$`)

// Config describes one supervised server run. It is not modified by the
// Supervisor.
type Config struct {
	// Directory is the server's working directory. It must already exist.
	Directory string

	// Java is the runtime executable. Default: java
	Java string

	// JarName is the artifact inside Directory. Default: server.jar
	JarName string

	// ServerArgs follow the jar on the command line. Default: [nogui]
	ServerArgs []string

	// MinMemory and MaxMemory become -Xms and -Xmx.
	MinMemory string
	MaxMemory string

	// ShutdownTimeout bounds the wait after the stop command is sent.
	ShutdownTimeout time.Duration

	// StopCommand is the console line that asks the server to stop.
	StopCommand string
}

// DefaultConfig returns a Config for dir with default settings.
func DefaultConfig(dir string) Config {
	return Config{
		Directory:       dir,
		Java:            DefaultJava,
		JarName:         DefaultJarName,
		ServerArgs:      []string{"nogui"},
		MinMemory:       DefaultMemory,
		MaxMemory:       DefaultMemory,
		ShutdownTimeout: DefaultShutdownTimeout,
		StopCommand:     DefaultStopCommand,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Directory == "" {
		return &mcerrors.ConfigError{Key: "directory", Reason: "must not be empty"}
	}
	if c.Java == "" {
		return &mcerrors.ConfigError{Key: "java", Reason: "must not be empty"}
	}
	if c.JarName == "" {
		return &mcerrors.ConfigError{Key: "jar_name", Reason: "must not be empty"}
	}
	if c.ShutdownTimeout <= 0 {
		return &mcerrors.ConfigError{Key: "shutdown_timeout", Reason: fmt.Sprintf("must be > 0, got %v", c.ShutdownTimeout)}
	}
	if strings.TrimSpace(c.StopCommand) == "" || strings.ContainsAny(c.StopCommand, "\r\n") {
		return &mcerrors.ConfigError{Key: "stop_command", Reason: "must be a single non-empty line"}
	}
	return ValidateMemory(c.MinMemory, c.MaxMemory)
}

// ValidateMemory checks both heap sizes and that min does not exceed max.
func ValidateMemory(minMemory, maxMemory string) error {
	minBytes, err := ParseMemory(minMemory)
	if err != nil {
		return &mcerrors.ConfigError{Key: "min_memory", Reason: err.Error()}
	}
	maxBytes, err := ParseMemory(maxMemory)
	if err != nil {
		return &mcerrors.ConfigError{Key: "max_memory", Reason: err.Error()}
	}
	if minBytes > maxBytes {
		return &mcerrors.ConfigError{
			Key:    "min_memory",
			Reason: fmt.Sprintf("%s exceeds max_memory %s", minMemory, maxMemory),
		}
	}
	return nil
}

// ParseMemory converts a JVM heap size to bytes. Suffixes k, m and g are
// binary multiples; a bare number is bytes.
func ParseMemory(s string) (uint64, error) {
	if !memoryPattern.MatchString(s) {
		return 0, fmt.Errorf("invalid memory size %q (want e.g. 512M, 4G)", s)
	}

	digits, mult := s, uint64(1)
	switch strings.ToLower(s[len(s)-1:]) {
	case "k":
		mult = 1 << 10
	case "m":
		mult = 1 << 20
	case "g":
		mult = 1 << 30
	}
	if mult != 1 {
		digits = s[:len(s)-1]
	}

	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || n > (^uint64(0))/mult {
		return 0, fmt.Errorf("memory size %q out of range", s)
	}
	return n * mult, nil
}

// JVMArgs returns the runtime arguments: heap flags, the jar, then the
// server arguments.
func (c *Config) JVMArgs() []string {
	args := []string{"-Xms" + c.MinMemory, "-Xmx" + c.MaxMemory, "-jar", c.JarName}
	return append(args, c.ServerArgs...)
}
