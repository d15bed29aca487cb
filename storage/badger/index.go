package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/storage"
)

// IndexRepository implements storage.IndexRepository for BadgerDB.
type IndexRepository struct {
	backend *Backend
}

var _ storage.IndexRepository = (*IndexRepository)(nil)

// NewIndexRepository creates a new IndexRepository.
func NewIndexRepository(backend *Backend) *IndexRepository {
	return &IndexRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *IndexRepository) Close() error {
	return nil
}

// ReplaceDocument atomically replaces the stored state of a document.
// Prior chunks, their vectors, and the prior ACL are deleted and the new
// state inserted in one transaction.
func (r *IndexRepository) ReplaceDocument(ctx context.Context, doc *core.Document, chunks []*core.Chunk, embeddings []*core.Embedding, acl []core.AccessEntry) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		// Collect prior chunks so their vectors can be removed too.
		oldChunks, err := readDocumentChunks(tx, doc.Id)
		if err != nil {
			return err
		}

		var stale [][]byte
		for _, old := range oldChunks {
			stale = append(stale, makeChunkKey(doc.Id, old.SequenceIndex))
			embKeys, err := collectKeys(tx, makePartialEmbeddingKey(old.Id))
			if err != nil {
				return err
			}
			stale = append(stale, embKeys...)
		}
		aclKeys, err := collectKeys(tx, makePartialAccessKey(doc.Id))
		if err != nil {
			return err
		}
		stale = append(stale, aclKeys...)

		for _, key := range stale {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}

		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = time.Now().UTC()
		}
		if err := tx.Set(makeDocumentKey(doc.Id), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		for _, chunk := range chunks {
			if err := tx.Set(makeChunkKey(doc.Id, chunk.SequenceIndex), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		for _, emb := range embeddings {
			if err := tx.Set(makeEmbeddingKey(emb.ChunkID, emb.ModelID), storage.MarshalEmbedding(emb)); err != nil {
				return err
			}
		}
		for i := range acl {
			if err := tx.Set(makeAccessKey(doc.Id, acl[i].Principal), storage.MarshalAccessEntry(&acl[i])); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a document by ID.
func (r *IndexRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetDocumentChunks retrieves all chunks of a document in sequence order.
func (r *IndexRepository) GetDocumentChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error) {
	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocumentChunks(tx, documentID)
		return err
	}, false)
	return result, err
}

// GetAccessEntries retrieves the ACL for a document.
func (r *IndexRepository) GetAccessEntries(ctx context.Context, documentID core.ID) ([]core.AccessEntry, error) {
	var result []core.AccessEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialAccessKey(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				entry, err := storage.UnmarshalAccessEntry(val)
				if err != nil {
					return err
				}
				result = append(result, *entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return result, err
}

// GetEmbedding retrieves the vector of a chunk under one model.
func (r *IndexRepository) GetEmbedding(ctx context.Context, chunkID core.ID, modelID string) (*core.Embedding, error) {
	var result *core.Embedding
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(chunkID, modelID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			result, err = storage.UnmarshalEmbedding(val)
			return err
		})
	}, false)
	return result, err
}

// SearchLexical scores chunks of filter-matching documents by term frequency.
// The score is occurrences of the query terms divided by the chunk's token
// count, so long chunks don't win on length alone.
func (r *IndexRepository) SearchLexical(ctx context.Context, terms []string, filter *storage.DocumentFilter, limit int) ([]*storage.Match, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if len(terms) == 0 {
		return nil, nil
	}

	var matches []*storage.Match
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanFilteredChunks(tx, filter, func(doc *core.Document, chunk *core.Chunk) error {
			freq := core.TermFrequencies(chunk.Text)
			hits := 0
			for _, term := range terms {
				hits += freq[term]
			}
			if hits == 0 {
				return nil
			}
			tokens := chunk.TokenCount
			if tokens < 1 {
				tokens = 1
			}
			matches = append(matches, &storage.Match{
				Chunk: chunk,
				Doc:   doc,
				Score: float64(hits) / float64(tokens),
			})
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// SearchVector finds the nearest chunks to the query vector by cosine
// similarity over normalized vectors. Chunks without a vector under modelID
// are skipped.
func (r *IndexRepository) SearchVector(ctx context.Context, modelID string, vector []float32, filter *storage.DocumentFilter, limit int) ([]*storage.Match, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var matches []*storage.Match
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanFilteredChunks(tx, filter, func(doc *core.Document, chunk *core.Chunk) error {
			item, err := tx.Get(makeEmbeddingKey(chunk.Id, modelID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			var emb *core.Embedding
			if err := item.Value(func(val []byte) error {
				emb, err = storage.UnmarshalEmbedding(val)
				return err
			}); err != nil {
				return err
			}
			matches = append(matches, &storage.Match{
				Chunk: chunk,
				Doc:   doc,
				Score: float64(dotProduct(vector, emb.Vector)),
			})
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// PutEmbeddings stores vectors for already-indexed chunks.
func (r *IndexRepository) PutEmbeddings(ctx context.Context, embeddings []*core.Embedding) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, emb := range embeddings {
			if err := tx.Set(makeEmbeddingKey(emb.ChunkID, emb.ModelID), storage.MarshalEmbedding(emb)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// MissingEmbeddings lists chunks without a vector under modelID, up to limit.
func (r *IndexRepository) MissingEmbeddings(ctx context.Context, modelID string, limit int) ([]*core.Chunk, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanFilteredChunks(tx, nil, func(doc *core.Document, chunk *core.Chunk) error {
			if len(result) >= limit {
				return errScanDone
			}
			_, err := tx.Get(makeEmbeddingKey(chunk.Id, modelID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				result = append(result, chunk)
				return nil
			}
			return err
		})
	}, false)
	if err != nil && !errors.Is(err, errScanDone) {
		return nil, err
	}
	return result, nil
}

// Stats counts documents and chunks per source and alerts per type.
func (r *IndexRepository) Stats(ctx context.Context) (*storage.Stats, error) {
	stats := &storage.Stats{
		DocumentsBySource: make(map[core.Source]int),
		ChunksBySource:    make(map[core.Source]int),
		AlertsByType:      make(map[core.AlertType]int),
	}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		err := scanFilteredChunks(tx, nil, func(doc *core.Document, chunk *core.Chunk) error {
			stats.ChunksBySource[doc.Source]++
			return nil
		})
		if err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				doc, err := storage.UnmarshalDocument(val)
				if err != nil {
					return err
				}
				stats.DocumentsBySource[doc.Source]++
				return nil
			})
			if err != nil {
				iter.Close()
				return err
			}
		}
		iter.Close()

		opts = badger.DefaultIteratorOptions
		opts.Prefix = []byte(alertPrefix + ":")
		iter = tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				alert, err := storage.UnmarshalAlert(val)
				if err != nil {
					return err
				}
				stats.AlertsByType[alert.Type]++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// errScanDone stops a chunk scan early once enough results are collected.
var errScanDone = errors.New("scan done")

// readDocument reads and unmarshals a document, returning nil if absent.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}

// readDocumentChunks reads all chunks of a document in sequence order.
func readDocumentChunks(tx *badger.Txn, documentID core.ID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkKey(documentID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return chunks, nil
}

// scanFilteredChunks walks every chunk of every filter-matching document.
// Filtering happens at the document level before any chunk is read.
func scanFilteredChunks(tx *badger.Txn, filter *storage.DocumentFilter, fn func(doc *core.Document, chunk *core.Chunk) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(documentPrefix + ":")
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var doc *core.Document
		err := iter.Item().Value(func(val []byte) error {
			var err error
			doc, err = storage.UnmarshalDocument(val)
			return err
		})
		if err != nil {
			return err
		}
		if !filter.Matches(doc) {
			continue
		}
		chunks, err := readDocumentChunks(tx, doc.Id)
		if err != nil {
			return err
		}
		for _, chunk := range chunks {
			if err := fn(doc, chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectKeys copies every key under a prefix.
func collectKeys(tx *badger.Txn, prefix []byte) ([][]byte, error) {
	var keys [][]byte
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys, nil
}

// sortMatches orders by score descending with chunk ID as a deterministic
// tie-break.
func sortMatches(matches []*storage.Match) {
	slices.SortFunc(matches, func(a, b *storage.Match) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.Chunk.Id < b.Chunk.Id {
			return -1
		}
		if a.Chunk.Id > b.Chunk.Id {
			return 1
		}
		return 0
	})
}
