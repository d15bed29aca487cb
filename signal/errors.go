package signal

import "errors"

var (
	// ErrAlertsRequired is returned when an alert repository is not provided.
	ErrAlertsRequired = errors.New("alert repository required")

	// ErrInvalidWindow is returned for a non-positive dedupe window.
	ErrInvalidWindow = errors.New("dedupe window must be positive")
)
