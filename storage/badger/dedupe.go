package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/storage"
)

// DedupeCache implements storage.DedupeCache for BadgerDB. Cached vectors are
// stored as Embedding records with a zero chunk ID since the content hash,
// not the chunk, is the identity.
type DedupeCache struct {
	backend *Backend
}

var _ storage.DedupeCache = (*DedupeCache)(nil)

// NewDedupeCache creates a new DedupeCache.
func NewDedupeCache(backend *Backend) *DedupeCache {
	return &DedupeCache{backend: backend}
}

// GetVector returns the cached vector for a content hash.
func (c *DedupeCache) GetVector(ctx context.Context, contentHash core.ID, modelID string) ([]float32, error) {
	var vector []float32
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorCacheKey(contentHash, modelID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			emb, err := storage.UnmarshalEmbedding(val)
			if err != nil {
				return err
			}
			vector = emb.Vector
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return vector, nil
}

// PutVector stores a vector for a content hash. Last writer wins.
func (c *DedupeCache) PutVector(ctx context.Context, contentHash core.ID, modelID string, vector []float32) error {
	emb := &core.Embedding{
		ModelID:   modelID,
		Dimension: len(vector),
		Vector:    vector,
	}
	return c.backend.WithTx(func(tx *badger.Txn) error {
		key := makeVectorCacheKey(contentHash, modelID)
		if err := tx.Set(key, storage.MarshalEmbedding(emb)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
