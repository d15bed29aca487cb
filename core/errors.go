// Copyright 2025 Savas Labs
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


package core

import "errors"

// Failure taxonomy. Every error surfaced by the pipeline wraps exactly one of
// the first four sentinels so callers can pick a retry policy without knowing
// which provider failed.
var (
	// ErrValidation indicates malformed input. Never retried; surfaced to the caller.
	ErrValidation = errors.New("validation failed")

	// ErrTransientProvider indicates a timeout or rate limit from an external
	// provider. Retried with backoff.
	ErrTransientProvider = errors.New("transient provider failure")

	// ErrPermanentProvider indicates an auth failure or malformed provider
	// response. Dead-lettered and surfaced to operators.
	ErrPermanentProvider = errors.New("permanent provider failure")

	// ErrConsistency indicates an attempted partial document write. The atomic
	// upsert contract makes this structurally impossible; treat as a fatal
	// assertion if observed.
	ErrConsistency = errors.New("consistency violation")
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidAlert indicates an Alert failed validation.
	ErrInvalidAlert = errors.New("invalid alert")

	// ErrUnknownSource indicates an unrecognized source value.
	ErrUnknownSource = errors.New("unknown source")

	// ErrEmptyExternalID indicates the ExternalID field is empty.
	ErrEmptyExternalID = errors.New("external id cannot be empty")

	// ErrEmptyChunkText indicates the chunk Text field is empty.
	ErrEmptyChunkText = errors.New("chunk text cannot be empty")

	// ErrChunkTooLong indicates the chunk text exceeds the maximum length.
	ErrChunkTooLong = errors.New("chunk text exceeds maximum length")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrInvalidAlertScore indicates an alert score outside [0, 1].
	ErrInvalidAlertScore = errors.New("alert score must be between 0 and 1")
)

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientProvider)
}

// IsValidation reports whether err is a non-retriable input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
