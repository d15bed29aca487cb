package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/savaslabs/kb/storage"
)

// IdempotencyStore implements storage.IdempotencyStore for BadgerDB.
// Entries carry a TTL so BadgerDB expires them without a sweeper.
type IdempotencyStore struct {
	backend *Backend
}

var _ storage.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(backend *Backend) *IdempotencyStore {
	return &IdempotencyStore{backend: backend}
}

// Seen reports whether the event ID is within the retention window.
func (s *IdempotencyStore) Seen(ctx context.Context, eventID string) (bool, error) {
	seen := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeEventSeenKey(eventID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		seen = true
		return nil
	}, false)
	return seen, err
}

// MarkSeen records the event ID with the given retention.
func (s *IdempotencyStore) MarkSeen(ctx context.Context, eventID string, retention time.Duration) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := setWithTTL(tx, makeEventSeenKey(eventID), []byte{1}, retention); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
