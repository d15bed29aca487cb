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


package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/savaslabs/kb/adapter"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/storage"
)

// DefaultRetention is how long source event ids are remembered for
// idempotency. Replays inside the window are acknowledged without work.
const DefaultRetention = 7 * 24 * time.Hour

// Pipeline is the intake side of ingestion: it validates raw source events
// and turns them into durable queue jobs. Workers pick the jobs up
// asynchronously; Submit never blocks on processing.
type Pipeline struct {
	registry    *adapter.Registry
	queue       storage.JobQueue
	idempotency storage.IdempotencyStore
	retention   time.Duration
	logger      *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline) error

// WithRetention sets the idempotency retention window.
// Default is DefaultRetention.
func WithRetention(retention time.Duration) PipelineOption {
	return func(p *Pipeline) error {
		if retention <= 0 {
			return ErrInvalidOption
		}
		p.retention = retention
		return nil
	}
}

// WithPipelineLogger sets a custom logger.
// Default is slog.Default().
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new intake pipeline.
func NewPipeline(
	registry *adapter.Registry,
	queue storage.JobQueue,
	idempotency storage.IdempotencyStore,
	opts ...PipelineOption,
) (*Pipeline, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if idempotency == nil {
		return nil, ErrIdempotencyRequired
	}

	p := &Pipeline{
		registry:    registry,
		queue:       queue,
		idempotency: idempotency,
		retention:   DefaultRetention,
		logger:      slog.Default().With("component", "ingest"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// SubmitResult reports what Submit did with an event.
type SubmitResult struct {
	// JobID is the queued job's id. Empty for duplicates.
	JobID string

	// DocumentID is the normalized document identity.
	DocumentID core.ID

	// Duplicate is set when the event id was already seen inside the
	// retention window and no job was enqueued.
	Duplicate bool
}

// Submit validates a raw source event and enqueues an ingestion job for it.
// Malformed payloads are rejected with an error wrapping core.ErrValidation;
// replayed event ids are acknowledged as duplicates without reprocessing.
func (p *Pipeline) Submit(ctx context.Context, source core.Source, raw []byte) (*SubmitResult, error) {
	normalizer, err := p.registry.Lookup(source)
	if err != nil {
		return nil, err
	}

	// Full normalization up front so malformed payloads never reach the
	// queue. Workers re-normalize from the stored payload; the raw bytes are
	// the job's source of truth.
	doc, _, eventID, err := normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}

	seen, err := p.idempotency.Seen(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if seen {
		p.logger.Debug("duplicate event acknowledged", "event_id", eventID, "source", source.String())
		return &SubmitResult{DocumentID: doc.Id, Duplicate: true}, nil
	}

	job := &core.IngestJob{
		Id:         uuid.NewString(),
		EventID:    eventID,
		Source:     source,
		DocumentID: doc.Id,
		Payload:    raw,
		EnqueuedAt: time.Now(),
	}
	if err := p.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	// Marked after the enqueue succeeds; a replay of an event we failed to
	// queue should not be swallowed.
	if err := p.idempotency.MarkSeen(ctx, eventID, p.retention); err != nil {
		p.logger.Warn("failed to record event id", "event_id", eventID, "err", err)
	}

	p.logger.Info("ingestion job enqueued",
		"job_id", job.Id,
		"event_id", eventID,
		"source", source.String(),
		"document_id", doc.Id)

	return &SubmitResult{JobID: job.Id, DocumentID: doc.Id}, nil
}
