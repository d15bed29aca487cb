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
	"io"
	"log/slog"

	"github.com/savaslabs/kb/storage"
)

// DefaultBackfillBatch is how many pending chunks each backfill round pulls
// from the index.
const DefaultBackfillBatch = 100

// Backfiller repairs chunks that were stored lexical-only because their
// embedding batch exhausted its retries at ingest time. It drains the index's
// pending-embedding set in rounds until nothing embeds anymore.
type Backfiller struct {
	index     storage.IndexRepository
	batcher   *Batcher
	batchSize int
	progress  io.Writer
	logger    *slog.Logger
}

// NewBackfiller creates a new Backfiller.
// progress may be nil to suppress progress output.
func NewBackfiller(index storage.IndexRepository, batcher *Batcher, progress io.Writer) (*Backfiller, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if batcher == nil {
		return nil, ErrEmbedderRequired
	}
	return &Backfiller{
		index:     index,
		batcher:   batcher,
		batchSize: DefaultBackfillBatch,
		progress:  progress,
		logger:    slog.Default().With("component", "backfill"),
	}, nil
}

// Run embeds pending chunks until the index has none left or no further
// progress is possible (the provider keeps failing). Returns the number of
// chunks repaired.
func (b *Backfiller) Run(ctx context.Context) (int, error) {
	modelID := b.batcher.embedder.ModelID()
	repaired := 0

	var tracker *ProgressTracker
	if b.progress != nil {
		tracker = NewProgressTracker(b.progress, 0, b.batchSize)
		tracker.Start()
		defer tracker.Finish()
	}

	for {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}

		chunks, err := b.index.MissingEmbeddings(ctx, modelID, b.batchSize)
		if err != nil {
			return repaired, err
		}
		if len(chunks) == 0 {
			break
		}

		result, err := b.batcher.Embed(ctx, chunks)
		if err != nil {
			return repaired, err
		}
		if len(result.Vectors) == 0 {
			// Nothing embedded this round; the same chunks would come
			// straight back.
			b.logger.Warn("backfill made no progress, stopping",
				"pending", len(result.Pending))
			break
		}

		records := result.Records(modelID)
		if err := b.index.PutEmbeddings(ctx, records); err != nil {
			return repaired, err
		}
		repaired += len(records)
		if tracker != nil {
			tracker.Increment(len(records))
		}

		b.logger.Info("backfill round complete",
			"repaired", len(records), "still_pending", len(result.Pending))
	}

	return repaired, nil
}
