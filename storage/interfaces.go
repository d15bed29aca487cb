package storage

import (
	"context"
	"time"

	"github.com/savaslabs/kb/core"
)

// DocumentFilter narrows index queries to matching documents.
// Zero-valued fields match everything. Filters are applied before scoring
// (push-down) so excluded documents never enter a candidate list.
type DocumentFilter struct {
	Sources      []core.Source
	Tags         []string
	From         time.Time
	To           time.Time
	Participants []string // Matched against participant emails
}

// Matches reports whether a document passes the filter.
func (f *DocumentFilter) Matches(doc *core.Document) bool {
	if f == nil {
		return true
	}
	if len(f.Sources) > 0 {
		found := false
		for _, s := range f.Sources {
			if doc.Source == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Tags) > 0 {
		found := false
		for _, want := range f.Tags {
			for _, tag := range doc.Tags {
				if tag == want {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && doc.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && doc.CreatedAt.After(f.To) {
		return false
	}
	if len(f.Participants) > 0 {
		found := false
		for _, want := range f.Participants {
			for _, p := range doc.Participants {
				if p.Email == want {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Match is a scored chunk candidate from one retrieval leg.
// Doc is always populated so callers can rank and build provenance without a
// second lookup.
type Match struct {
	Chunk *core.Chunk
	Doc   *core.Document
	Score float64
}

// Stats is a read-only projection of index contents for dashboards.
type Stats struct {
	DocumentsBySource map[core.Source]int
	ChunksBySource    map[core.Source]int
	AlertsByType      map[core.AlertType]int
}

// IndexRepository persists documents, chunks, embeddings, and ACL entries,
// and serves the two retrieval legs of hybrid search.
// Implementations must be thread-safe and support concurrent access.
type IndexRepository interface {
	// ReplaceDocument atomically replaces everything stored for doc.Id: the
	// prior chunk set, its embeddings, and its access entries are deleted and
	// the new ones inserted in a single transaction. Either the whole new
	// state is visible or none of it is.
	ReplaceDocument(ctx context.Context, doc *core.Document, chunks []*core.Chunk, embeddings []*core.Embedding, acl []core.AccessEntry) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocumentChunks retrieves all chunks of a document in sequence order.
	GetDocumentChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// GetAccessEntries retrieves the ACL for a document.
	// An empty result means nobody can see the document (deny-by-default).
	GetAccessEntries(ctx context.Context, documentID core.ID) ([]core.AccessEntry, error)

	// GetEmbedding retrieves the embedding for a chunk under one model.
	// Returns ErrNotFound if the chunk has no vector for that model.
	GetEmbedding(ctx context.Context, chunkID core.ID, modelID string) (*core.Embedding, error)

	// SearchLexical scores chunks of filter-matching documents by term
	// frequency of the query terms and returns the top limit matches,
	// highest score first.
	SearchLexical(ctx context.Context, terms []string, filter *DocumentFilter, limit int) ([]*Match, error)

	// SearchVector finds the chunks of filter-matching documents nearest to
	// the query vector under modelID, by cosine similarity over normalized
	// vectors. Returns up to limit matches, highest similarity first.
	// Chunks without a vector for modelID are skipped.
	SearchVector(ctx context.Context, modelID string, vector []float32, filter *DocumentFilter, limit int) ([]*Match, error)

	// PutEmbeddings stores vectors for already-indexed chunks. Used by the
	// backfill pass to repair chunks left pending-embedding at ingest time.
	PutEmbeddings(ctx context.Context, embeddings []*core.Embedding) error

	// MissingEmbeddings lists chunks that have no vector under modelID,
	// up to limit. Used by the embedding backfill pass.
	MissingEmbeddings(ctx context.Context, modelID string, limit int) ([]*core.Chunk, error)

	// Stats counts documents and chunks per source and alerts per type.
	Stats(ctx context.Context) (*Stats, error)

	// Close closes the repository and releases resources.
	Close() error
}

// AlertRepository persists detected alerts and serves the dedupe window lookup.
// Implementations must be thread-safe.
type AlertRepository interface {
	// AddAlert persists a new alert.
	AddAlert(ctx context.Context, alert *core.Alert) error

	// UpdateAlert replaces a stored alert (status transition or evidence merge).
	// Returns ErrNotFound if the alert doesn't exist.
	UpdateAlert(ctx context.Context, alert *core.Alert) error

	// GetAlert retrieves an alert by ID.
	// Returns ErrNotFound if the alert doesn't exist.
	GetAlert(ctx context.Context, id core.ID) (*core.Alert, error)

	// FindActiveByDedupeKey returns the most recent non-suppressed alert with
	// the given dedupe key created at or after since, or ErrNotFound.
	FindActiveByDedupeKey(ctx context.Context, dedupeKey core.ID, since time.Time) (*core.Alert, error)

	// Close closes the repository and releases resources.
	Close() error
}

// DedupeCache maps (content hash, model id) to a previously computed vector so
// identical chunk text is never embedded twice. It is shared read/write across
// workers; concurrent first-writer races are resolved last-writer-wins, which
// is safe because the content hash keys the content deterministically.
type DedupeCache interface {
	// GetVector returns the cached vector for a content hash, or ErrNotFound.
	GetVector(ctx context.Context, contentHash core.ID, modelID string) ([]float32, error)

	// PutVector stores a vector for a content hash.
	PutVector(ctx context.Context, contentHash core.ID, modelID string, vector []float32) error
}

// JobQueue is the durable queue between intake and the worker pool.
// Jobs become visible to Dequeue at their ready time; Nack re-enqueues with a
// delay, DeadLetter parks a job for manual inspection.
// Implementations must be thread-safe.
type JobQueue interface {
	// Enqueue adds a job, visible immediately.
	Enqueue(ctx context.Context, job *core.IngestJob) error

	// Dequeue removes and returns the oldest ready job, marking it in-flight.
	// Returns ErrQueueEmpty when no job is ready.
	Dequeue(ctx context.Context) (*core.IngestJob, error)

	// Ack removes an in-flight job permanently (success).
	Ack(ctx context.Context, jobID string) error

	// Nack returns an in-flight job to the queue with its attempt count
	// incremented, becoming visible again after delay.
	Nack(ctx context.Context, jobID string, delay time.Duration) error

	// DeadLetter moves an in-flight job to the dead-letter area with the
	// reason recorded on the job.
	DeadLetter(ctx context.Context, jobID string, reason string) error

	// DeadLetters lists dead-lettered jobs, oldest first, up to limit.
	DeadLetters(ctx context.Context, limit int) ([]*core.IngestJob, error)

	// Recover returns all in-flight jobs to the ready state. Called on
	// startup so work held by a crashed worker is not lost. Returns the
	// number of jobs recovered.
	Recover(ctx context.Context) (int, error)

	// Depth returns the number of ready plus delayed jobs.
	Depth(ctx context.Context) (int, error)

	// Close closes the queue and releases resources.
	Close() error
}

// IdempotencyStore remembers source event IDs so replayed webhook deliveries
// are acknowledged without reprocessing. Entries expire after the retention
// window passed to MarkSeen.
type IdempotencyStore interface {
	// Seen reports whether the event ID is within the retention window.
	Seen(ctx context.Context, eventID string) (bool, error)

	// MarkSeen records the event ID with the given retention.
	MarkSeen(ctx context.Context, eventID string, retention time.Duration) error
}
