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

// UserVisibleError defines errors that should be displayed to operators
// with a friendly message and an actionable suggestion.
type UserVisibleError interface {
	error

	// IsUserVisible returns true if this error should be shown to users.
	IsUserVisible() bool

	// UserMessage returns a user-friendly error message.
	UserMessage() string

	// Suggestion returns actionable guidance for resolving the error.
	// Returns empty string if no suggestion is available.
	Suggestion() string
}

// ErrorClassifier defines errors that can be categorized for exit-code
// mapping and metrics labels.
type ErrorClassifier interface {
	error

	// ErrorType returns one of the Type* constants.
	ErrorType() string

	// IsRetryable reports whether a later attempt could succeed without
	// operator intervention.
	IsRetryable() bool
}

var (
	_ ErrorClassifier  = (*NetworkError)(nil)
	_ ErrorClassifier  = (*ChecksumMismatchError)(nil)
	_ ErrorClassifier  = (*AbnormalExitError)(nil)
	_ UserVisibleError = (*NotFoundError)(nil)
	_ UserVisibleError = (*ChecksumMismatchError)(nil)
	_ UserVisibleError = (*SpawnError)(nil)
)
