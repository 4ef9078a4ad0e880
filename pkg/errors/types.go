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

package errors

import (
	"fmt"
	"strings"
)

// Error type identifiers returned by ErrorType. The CLI maps these onto
// process exit codes.
const (
	TypeConfig             = "config"
	TypeNetwork            = "network"
	TypeDecode             = "decode"
	TypeNotFound           = "not_found"
	TypeInvariantViolation = "invariant_violation"
	TypeNotImplemented     = "not_implemented"
	TypeChecksumMismatch   = "checksum_mismatch"
	TypeIO                 = "io"
	TypeSpawn              = "spawn"
	TypeAbnormalExit       = "abnormal_exit"
)

// ConfigError represents configuration problems.
// Use this for invalid flags, environment values or config file contents.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "server.max_memory")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ConfigError) ErrorType() string { return TypeConfig }

// IsRetryable implements ErrorClassifier.
func (e *ConfigError) IsRetryable() bool { return false }

// NetworkError represents a transport failure or a non-success HTTP status
// while talking to the manifest, metadata or artifact endpoints.
type NetworkError struct {
	// Op names the request (e.g., "fetch manifest", "download artifact")
	Op string

	// URL is the sanitized request URL
	URL string

	// StatusCode is the HTTP status when the server answered with a failure
	StatusCode int

	// Cause is the underlying transport error, if any
	Cause error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.URL)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s [HTTP %d]", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *NetworkError) ErrorType() string { return TypeNetwork }

// IsRetryable implements ErrorClassifier. Server-side failures would succeed
// on a later run; nothing in this module retries them automatically.
func (e *NetworkError) IsRetryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// DecodeError represents a response body that could not be parsed into the
// expected shape.
type DecodeError struct {
	// Resource names what was being decoded (e.g., "version manifest")
	Resource string

	// Reason describes a semantic problem when Cause is nil
	Reason string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	switch {
	case e.Cause != nil && e.Reason != "":
		return fmt.Sprintf("decode %s: %s: %v", e.Resource, e.Reason, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("decode %s: %v", e.Resource, e.Cause)
	default:
		return fmt.Sprintf("decode %s: %s", e.Resource, e.Reason)
	}
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *DecodeError) ErrorType() string { return TypeDecode }

// IsRetryable implements ErrorClassifier.
func (e *DecodeError) IsRetryable() bool { return false }

// NotFoundError represents a resource not found error.
// Use this when a requested resource does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "version")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrorType implements ErrorClassifier.
func (e *NotFoundError) ErrorType() string { return TypeNotFound }

// IsRetryable implements ErrorClassifier.
func (e *NotFoundError) IsRetryable() bool { return false }

// IsUserVisible implements UserVisibleError.
func (e *NotFoundError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *NotFoundError) UserMessage() string {
	return fmt.Sprintf("No %s named %q exists.", e.Resource, e.ID)
}

// Suggestion implements UserVisibleError.
func (e *NotFoundError) Suggestion() string {
	if e.Resource == "version" {
		return "Run 'mcrun versions' to list the available version ids."
	}
	return ""
}

// InvariantViolationError reports upstream data that contradicts itself, such
// as a latest pointer naming a version that is not in the manifest. It is kept
// distinct from NotFoundError so operators can tell bad input from bad data.
type InvariantViolationError struct {
	// Subject names the data that is inconsistent
	Subject string

	// Reason describes the inconsistency
	Reason string
}

// Error implements the error interface.
func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violated in %s: %s", e.Subject, e.Reason)
}

// ErrorType implements ErrorClassifier.
func (e *InvariantViolationError) ErrorType() string { return TypeInvariantViolation }

// IsRetryable implements ErrorClassifier.
func (e *InvariantViolationError) IsRetryable() bool { return false }

// NotImplementedError is returned for recognised but unsupported requests.
type NotImplementedError struct {
	Feature string
}

// Error implements the error interface.
func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("not implemented: %s", e.Feature)
}

// ErrorType implements ErrorClassifier.
func (e *NotImplementedError) ErrorType() string { return TypeNotImplemented }

// IsRetryable implements ErrorClassifier.
func (e *NotImplementedError) IsRetryable() bool { return false }

// ChecksumMismatchError reports a downloaded artifact whose digest differs
// from the published one. The partial download has already been discarded.
type ChecksumMismatchError struct {
	// Path is the install target that was being refreshed
	Path string

	// Expected is the published hex digest
	Expected string

	// Actual is the digest of the bytes received
	Actual string
}

// Error implements the error interface.
func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// ErrorType implements ErrorClassifier.
func (e *ChecksumMismatchError) ErrorType() string { return TypeChecksumMismatch }

// IsRetryable implements ErrorClassifier.
func (e *ChecksumMismatchError) IsRetryable() bool { return true }

// IsUserVisible implements UserVisibleError.
func (e *ChecksumMismatchError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ChecksumMismatchError) UserMessage() string {
	return "The downloaded server did not match its published checksum."
}

// Suggestion implements UserVisibleError.
func (e *ChecksumMismatchError) Suggestion() string {
	return "The previous server.jar was left in place. Check your network or proxy and run the command again."
}

// IOError represents a local filesystem failure.
type IOError struct {
	// Op is the failed operation (e.g., "rename", "write")
	Op string

	// Path is the file involved
	Path string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *IOError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *IOError) ErrorType() string { return TypeIO }

// IsRetryable implements ErrorClassifier.
func (e *IOError) IsRetryable() bool { return false }

// SpawnError is returned when the server process could not be started.
type SpawnError struct {
	// Binary is the executable that failed to start
	Binary string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", e.Binary, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *SpawnError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *SpawnError) ErrorType() string { return TypeSpawn }

// IsRetryable implements ErrorClassifier.
func (e *SpawnError) IsRetryable() bool { return false }

// IsUserVisible implements UserVisibleError.
func (e *SpawnError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *SpawnError) UserMessage() string {
	return fmt.Sprintf("Could not start %s.", e.Binary)
}

// Suggestion implements UserVisibleError.
func (e *SpawnError) Suggestion() string {
	return "Make sure a Java runtime is installed, or point --java at one."
}

// AbnormalExitError is returned when the server exits on its own with a
// failure status.
type AbnormalExitError struct {
	// Status is the exit code, or -1 when the process was killed by a signal
	Status int

	// Signal names the terminating signal, if any
	Signal string
}

// Error implements the error interface.
func (e *AbnormalExitError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("server exited abnormally: killed by %s", e.Signal)
	}
	return fmt.Sprintf("server exited abnormally with status %d", e.Status)
}

// ErrorType implements ErrorClassifier.
func (e *AbnormalExitError) ErrorType() string { return TypeAbnormalExit }

// IsRetryable implements ErrorClassifier.
func (e *AbnormalExitError) IsRetryable() bool { return false }

// CleanupError carries a primary failure together with a failure to clean up
// after it. Unwrap yields the primary error so callers classify on it.
type CleanupError struct {
	Err     error
	Cleanup error
}

// Error implements the error interface.
func (e *CleanupError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	b.WriteString(" (cleanup also failed: ")
	b.WriteString(e.Cleanup.Error())
	b.WriteString(")")
	return b.String()
}

// Unwrap returns the primary error.
func (e *CleanupError) Unwrap() error {
	return e.Err
}
