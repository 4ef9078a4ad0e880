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
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// newServerCommand builds the server command for cfg. The child:
//   - runs in cfg.Directory
//   - writes straight to stdout and stderr
//   - leads its own process group, so a terminal Ctrl-C reaches only the
//     supervisor and a forced kill reaches everything the server started
func newServerCommand(cfg *Config, stdout, stderr io.Writer) *exec.Cmd {
	cmd := exec.Command(cfg.Java, cfg.JVMArgs()...)
	cmd.Dir = cfg.Directory
	cmd.Env = os.Environ()
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	return cmd
}

// jarPath is where the server command expects the artifact.
func jarPath(cfg *Config) string {
	if filepath.IsAbs(cfg.JarName) {
		return cfg.JarName
	}
	return filepath.Join(cfg.Directory, cfg.JarName)
}
