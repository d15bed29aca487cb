package embed

import "errors"

var (
	// ErrEmbedderRequired indicates a Batcher was constructed without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrIndexRequired indicates a Backfiller was constructed without an index.
	ErrIndexRequired = errors.New("index repository is required")

	// ErrInvalidOption indicates an option was given an out-of-range value.
	ErrInvalidOption = errors.New("invalid embed option")

	// ErrInvalidMaxAttempts indicates RetryWithBackoff was called with a
	// non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrVectorCountMismatch indicates the provider returned a different
	// number of vectors than texts sent.
	ErrVectorCountMismatch = errors.New("provider returned wrong vector count")
)
