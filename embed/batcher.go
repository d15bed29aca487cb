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


package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/savaslabs/kb/ai"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/storage"
)

const (
	// DefaultMaxBatchChunks bounds how many texts go to the provider per call.
	DefaultMaxBatchChunks = 64

	// DefaultMaxBatchTokens bounds the token sum of a single provider call.
	DefaultMaxBatchTokens = 8000

	// DefaultMaxAttempts bounds retries per batch.
	DefaultMaxAttempts = 4

	// DefaultBaseDelay is the initial retry backoff.
	DefaultBaseDelay = 500 * time.Millisecond
)

// Result is the outcome of one Embed call. Vectors maps chunk ID to its
// normalized vector; Pending lists chunks whose batches exhausted the retry
// budget and were left unembedded. Pending is not an error: those chunks are
// stored lexical-only and repaired later by the backfill pass.
type Result struct {
	Vectors map[core.ID][]float32
	Pending []core.ID
}

// Records materializes the vectors as embedding records under modelID.
func (r *Result) Records(modelID string) []*core.Embedding {
	records := make([]*core.Embedding, 0, len(r.Vectors))
	for chunkID, vec := range r.Vectors {
		records = append(records, &core.Embedding{
			ChunkID:   chunkID,
			ModelID:   modelID,
			Dimension: len(vec),
			Vector:    vec,
		})
	}
	return records
}

// Batcher embeds chunk texts in provider-friendly batches with content-hash
// deduplication. Identical text is embedded once per model, in-run and across
// runs via the persistent cache.
type Batcher struct {
	embedder       ai.Embedder
	cache          storage.DedupeCache
	maxBatchChunks int
	maxBatchTokens int
	maxAttempts    int
	baseDelay      time.Duration
	telemetry      Telemetry
	logger         *slog.Logger
}

// Option configures a Batcher.
type Option func(*Batcher) error

// WithMaxBatchChunks overrides the per-call text bound.
// Default is DefaultMaxBatchChunks.
func WithMaxBatchChunks(n int) Option {
	return func(b *Batcher) error {
		if n < 1 {
			return fmt.Errorf("%w: max batch chunks %d", ErrInvalidOption, n)
		}
		b.maxBatchChunks = n
		return nil
	}
}

// WithMaxBatchTokens overrides the per-call token sum bound.
// Default is DefaultMaxBatchTokens.
func WithMaxBatchTokens(n int) Option {
	return func(b *Batcher) error {
		if n < 1 {
			return fmt.Errorf("%w: max batch tokens %d", ErrInvalidOption, n)
		}
		b.maxBatchTokens = n
		return nil
	}
}

// WithMaxAttempts overrides the retry budget per batch.
// Default is DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(b *Batcher) error {
		if n < 1 {
			return fmt.Errorf("%w: max attempts %d", ErrInvalidOption, n)
		}
		b.maxAttempts = n
		return nil
	}
}

// WithBaseDelay overrides the initial retry backoff.
// Default is DefaultBaseDelay.
func WithBaseDelay(d time.Duration) Option {
	return func(b *Batcher) error {
		if d <= 0 {
			return fmt.Errorf("%w: base delay %s", ErrInvalidOption, d)
		}
		b.baseDelay = d
		return nil
	}
}

// WithTelemetry sets batch telemetry hooks.
// Default is a noop.
func WithTelemetry(t Telemetry) Option {
	return func(b *Batcher) error {
		if t == nil {
			t = noopTelemetry{}
		}
		b.telemetry = t
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Batcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBatcher creates a new Batcher. The cache may be nil, which disables
// cross-run deduplication but keeps the in-run kind.
func NewBatcher(embedder ai.Embedder, cache storage.DedupeCache, opts ...Option) (*Batcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	b := &Batcher{
		embedder:       embedder,
		cache:          cache,
		maxBatchChunks: DefaultMaxBatchChunks,
		maxBatchTokens: DefaultMaxBatchTokens,
		maxAttempts:    DefaultMaxAttempts,
		baseDelay:      DefaultBaseDelay,
		telemetry:      noopTelemetry{},
		logger:         slog.Default().With("component", "embed"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// ModelID reports the embedder model the batcher produces vectors for.
func (b *Batcher) ModelID() string {
	return b.embedder.ModelID()
}

// group collects all chunks sharing one content hash; the text is embedded
// once and the vector fans out to every member.
type group struct {
	text   string
	tokens int
	chunks []*core.Chunk
}

// Embed returns a vector per chunk, deduplicating by content hash and
// batching provider calls under both the count and token bounds. Chunks whose
// batch exhausts its retries land in Result.Pending instead of failing the
// call; only context cancellation is a hard error.
func (b *Batcher) Embed(ctx context.Context, chunks []*core.Chunk) (*Result, error) {
	result := &Result{Vectors: make(map[core.ID][]float32)}
	if len(chunks) == 0 {
		return result, nil
	}
	modelID := b.embedder.ModelID()

	groups := make(map[core.ID]*group)
	var order []core.ID
	for _, chunk := range chunks {
		g, ok := groups[chunk.ContentHash]
		if !ok {
			tokens := chunk.TokenCount
			if tokens < 1 {
				tokens = (len(chunk.Text) + 3) / 4
			}
			g = &group{text: chunk.Text, tokens: tokens}
			groups[chunk.ContentHash] = g
			order = append(order, chunk.ContentHash)
		}
		g.chunks = append(g.chunks, chunk)
	}

	assign := func(hash core.ID, vec []float32) {
		for _, chunk := range groups[hash].chunks {
			result.Vectors[chunk.Id] = vec
		}
	}

	// Cache pass: anything embedded in a prior run is reused as-is.
	var misses []core.ID
	for _, hash := range order {
		if b.cache != nil {
			vec, err := b.cache.GetVector(ctx, hash, modelID)
			if err == nil {
				assign(hash, vec)
				continue
			}
			if !errors.Is(err, storage.ErrNotFound) {
				b.logger.Warn("dedupe cache read failed", "error", err)
			}
		}
		misses = append(misses, hash)
	}

	for _, batch := range b.partition(misses, groups) {
		texts := make([]string, len(batch))
		tokens := 0
		for i, hash := range batch {
			texts[i] = groups[hash].text
			tokens += groups[hash].tokens
		}

		var vectors [][]float32
		attempts := 0
		start := time.Now()
		err := RetryWithBackoff(ctx, func() error {
			attempts++
			vecs, err := b.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				return err
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("%w: got %d for %d texts", ErrVectorCountMismatch, len(vecs), len(texts))
			}
			vectors = vecs
			return nil
		}, b.maxAttempts, b.baseDelay)

		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			b.telemetry.BatchExhausted(len(batch), err)
			b.logger.Warn("embedding batch exhausted retries, chunks left pending",
				"chunks", len(batch), "attempts", attempts, "error", err)
			for _, hash := range batch {
				for _, chunk := range groups[hash].chunks {
					result.Pending = append(result.Pending, chunk.Id)
				}
			}
			continue
		}

		for i, hash := range batch {
			vec := NormalizeVector(vectors[i])
			assign(hash, vec)
			if b.cache != nil {
				if err := b.cache.PutVector(ctx, hash, modelID, vec); err != nil {
					b.logger.Warn("dedupe cache write failed", "error", err)
				}
			}
		}
		b.telemetry.BatchCompleted(len(batch), tokens, time.Since(start), attempts)
	}

	return result, nil
}

// partition splits hashes into batches respecting both bounds. A single text
// over the token bound still ships alone; the provider is the authority on
// rejecting it.
func (b *Batcher) partition(hashes []core.ID, groups map[core.ID]*group) [][]core.ID {
	var batches [][]core.ID
	var cur []core.ID
	tokens := 0
	for _, hash := range hashes {
		t := groups[hash].tokens
		if len(cur) > 0 && (len(cur) >= b.maxBatchChunks || tokens+t > b.maxBatchTokens) {
			batches = append(batches, cur)
			cur = nil
			tokens = 0
		}
		cur = append(cur, hash)
		tokens += t
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}
