// Package embed turns chunk text into stored vectors.
//
// The Batcher deduplicates by content hash (in-run and, through the
// persistent cache, across runs), partitions provider calls under both a
// count bound and a token-sum bound, and retries failed batches with
// exponential backoff and jitter. A batch that exhausts its retry budget does
// not fail ingestion: its chunks are reported as pending and stored
// lexical-only, and the Backfiller repairs them later.
//
// All stored vectors are normalized to unit length so the index can rank by
// plain dot product.
package embed
