package adapter

import "errors"

var (
	// ErrUnknownSource is returned when no normalizer is registered for a source.
	ErrUnknownSource = errors.New("no normalizer registered for source")
)
