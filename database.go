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


package kb

import (
	"io"
	"log/slog"

	"github.com/savaslabs/kb/adapter"
	"github.com/savaslabs/kb/ai"
	"github.com/savaslabs/kb/ai/openai"
	"github.com/savaslabs/kb/chunker"
	"github.com/savaslabs/kb/embed"
	"github.com/savaslabs/kb/ingest"
	"github.com/savaslabs/kb/search"
	"github.com/savaslabs/kb/signal"
	"github.com/savaslabs/kb/storage"
	"github.com/savaslabs/kb/storage/badger"
)

// Database bundles the storage backend, repositories, AI provider, and
// source adapters behind one open/close lifecycle. Components are created
// from it rather than wired by hand.
type Database struct {
	backend     *badger.Backend
	index       storage.IndexRepository
	alerts      storage.AlertRepository
	queue       storage.JobQueue
	dedupe      storage.DedupeCache
	idempotency storage.IdempotencyStore
	provider    ai.AIProvider
	registry    *adapter.Registry
	logger      *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
}

// WithAIConfig sets the AI provider configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects a pre-built AI provider instead of constructing the
// OpenAI-compatible one. Used by tests with the mock provider.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory opens the backend without a data directory. State is lost on
// close; intended for tests and experiments.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens the store at filePath and wires the default components.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	queue, err := badger.NewJobQueue(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			queue.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:     backend,
		index:       badger.NewIndexRepository(backend),
		alerts:      badger.NewAlertRepository(backend),
		queue:       queue,
		dedupe:      badger.NewDedupeCache(backend),
		idempotency: badger.NewIdempotencyStore(backend),
		provider:    provider,
		registry:    adapter.NewRegistry(adapter.NewTranscriptNormalizer(), adapter.NewChatNormalizer()),
		logger:      slog.Default(),
	}, nil
}

// Close releases the provider, queue, and backend.
func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.queue.Close(); err != nil {
		db.logger.Error("error closing job queue", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) Index() storage.IndexRepository {
	return db.index
}

func (db *Database) Alerts() storage.AlertRepository {
	return db.alerts
}

func (db *Database) Queue() storage.JobQueue {
	return db.queue
}

func (db *Database) Registry() *adapter.Registry {
	return db.registry
}

// NewSearcher creates a hybrid searcher over the index.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.index, db.provider, opts...)
}

// NewIntakePipeline creates the ingestion intake.
func (db *Database) NewIntakePipeline(opts ...ingest.PipelineOption) (*ingest.Pipeline, error) {
	return ingest.NewPipeline(db.registry, db.queue, db.idempotency, opts...)
}

// NewWorker creates an ingestion worker with the default chunker, batcher,
// and detector. The detector gets the provider's classifier so the second
// detection tier is on by default.
func (db *Database) NewWorker(opts ...ingest.WorkerOption) (*ingest.Worker, error) {
	chk, err := chunker.New()
	if err != nil {
		return nil, err
	}
	batcher, err := embed.NewBatcher(db.provider.Embedder(), db.dedupe)
	if err != nil {
		return nil, err
	}
	detector, err := signal.NewDetector(db.alerts, signal.WithClassifier(db.provider.SignalClassifier()))
	if err != nil {
		return nil, err
	}
	return ingest.NewWorker(db.queue, db.registry, db.index, db.alerts, chk, batcher, detector, opts...)
}

// NewBackfiller creates the embedding repair pass for chunks stored without
// vectors. Progress is written to w; pass io.Discard to silence it.
func (db *Database) NewBackfiller(w io.Writer) (*embed.Backfiller, error) {
	batcher, err := embed.NewBatcher(db.provider.Embedder(), db.dedupe)
	if err != nil {
		return nil, err
	}
	return embed.NewBackfiller(db.index, batcher, w)
}
