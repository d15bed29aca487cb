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

import (
	"fmt"
	"time"
)

// MaxChunkLen is the upper bound on chunk text length in characters.
const MaxChunkLen = 2000

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Source must be a known source
//   - ExternalID must not be empty
//   - CreatedAt must not be in the future
//
// NOT validated (populated during ingestion):
//   - Id (derived from source + external id)
//   - UpdatedAt (set by the index writer)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: %w: document is nil", ErrValidation, ErrInvalidDocument)
	}

	if _, ok := sourceNames[doc.Source]; !ok {
		return fmt.Errorf("%w: %w: %w: value %d", ErrValidation, ErrInvalidDocument, ErrUnknownSource, doc.Source)
	}

	if doc.ExternalID == "" {
		return fmt.Errorf("%w: %w: %w", ErrValidation, ErrInvalidDocument, ErrEmptyExternalID)
	}

	if !doc.CreatedAt.IsZero() && !IsValidTimestamp(doc.CreatedAt) {
		return fmt.Errorf("%w: %w: %w", ErrValidation, ErrInvalidDocument, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Text must not exceed MaxChunkLen characters
//   - DocumentID must be set
//
// NOT validated (populated by the embedding batcher):
//   - TokenCount (estimated later when zero)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: %w: chunk is nil", ErrValidation, ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w: %w", ErrValidation, ErrInvalidChunk, ErrEmptyChunkText)
	}

	if len(chunk.Text) > MaxChunkLen {
		return fmt.Errorf("%w: %w: %w: %d chars", ErrValidation, ErrInvalidChunk, ErrChunkTooLong, len(chunk.Text))
	}

	if chunk.DocumentID == 0 {
		return fmt.Errorf("%w: %w: document id required", ErrValidation, ErrInvalidChunk)
	}

	return nil
}

// ValidateAlert validates an Alert according to domain rules.
func ValidateAlert(alert *Alert) error {
	if alert == nil {
		return fmt.Errorf("%w: %w: alert is nil", ErrValidation, ErrInvalidAlert)
	}

	if _, ok := alertTypeNames[alert.Type]; !ok {
		return fmt.Errorf("%w: %w: unknown type %d", ErrValidation, ErrInvalidAlert, alert.Type)
	}

	if alert.Score < 0 || alert.Score > 1 {
		return fmt.Errorf("%w: %w: %w: %f", ErrValidation, ErrInvalidAlert, ErrInvalidAlertScore, alert.Score)
	}

	if alert.DocumentID == 0 {
		return fmt.Errorf("%w: %w: document id required", ErrValidation, ErrInvalidAlert)
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
