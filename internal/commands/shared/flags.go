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

package shared

// Global flag values - set by root command
var (
	jsonFlag          bool
	configFlag        string
	directoryFlag     string
	serverVersionFlag string
	logLevelFlag      string
	logFormatFlag     string

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// GlobalFlags holds pointers to the persistent flag variables.
type GlobalFlags struct {
	JSON          *bool
	Config        *string
	Directory     *string
	ServerVersion *string
	LogLevel      *string
	LogFormat     *string
}

// RegisterFlagPointers returns pointers to flag variables for binding.
// Called by root command to register flags.
func RegisterFlagPointers() GlobalFlags {
	return GlobalFlags{
		JSON:          &jsonFlag,
		Config:        &configFlag,
		Directory:     &directoryFlag,
		ServerVersion: &serverVersionFlag,
		LogLevel:      &logLevelFlag,
		LogFormat:     &logFormatFlag,
	}
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetJSON returns the JSON output flag value
func GetJSON() bool {
	return jsonFlag
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return configFlag
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// UserAgent is sent with every manifest and artifact request.
func UserAgent() string {
	return "mcrun/" + version
}

// ResetFlagsForTest clears the global flag values.
func ResetFlagsForTest() {
	jsonFlag = false
	configFlag = ""
	directoryFlag = ""
	serverVersionFlag = ""
	logLevelFlag = ""
	logFormatFlag = ""
}
