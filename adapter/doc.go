// Package adapter normalizes source-system payloads into the shared document
// shape. Each source has one Normalizer; the ingestion pipeline looks them up
// through a Registry and never touches source-specific fields itself.
package adapter
