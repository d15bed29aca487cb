package adapter

import (
	"github.com/savaslabs/kb/core"
)

// Normalizer converts one source system's raw event payload into the shared
// document shape. One implementation exists per source; the orchestrator
// depends only on this interface.
type Normalizer interface {
	// Source identifies which source system this normalizer handles.
	Source() core.Source

	// Normalize parses a raw payload into a document, its structured body,
	// and the source's delivery event id used for idempotency.
	// Malformed payloads return an error wrapping core.ErrValidation.
	Normalize(raw []byte) (*core.Document, core.DocumentBody, string, error)
}

// Registry resolves normalizers by source.
type Registry struct {
	bySource map[core.Source]Normalizer
}

// NewRegistry builds a registry from the given normalizers.
func NewRegistry(normalizers ...Normalizer) *Registry {
	r := &Registry{bySource: make(map[core.Source]Normalizer, len(normalizers))}
	for _, n := range normalizers {
		r.bySource[n.Source()] = n
	}
	return r
}

// Lookup returns the normalizer for a source.
func (r *Registry) Lookup(source core.Source) (Normalizer, error) {
	n, ok := r.bySource[source]
	if !ok {
		return nil, ErrUnknownSource
	}
	return n, nil
}
