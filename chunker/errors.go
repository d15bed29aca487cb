package chunker

import "errors"

var (
	// ErrNilDocument indicates Chunk was called without a document.
	ErrNilDocument = errors.New("document is required")

	// ErrInvalidOption indicates an option was given an out-of-range value.
	ErrInvalidOption = errors.New("invalid chunker option")
)
