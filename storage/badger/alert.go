package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/storage"
)

// AlertRepository implements storage.AlertRepository for BadgerDB.
type AlertRepository struct {
	backend *Backend
}

var _ storage.AlertRepository = (*AlertRepository)(nil)

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(backend *Backend) *AlertRepository {
	return &AlertRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *AlertRepository) Close() error {
	return nil
}

// AddAlert persists a new alert and indexes it by dedupe key.
func (r *AlertRepository) AddAlert(ctx context.Context, alert *core.Alert) error {
	if err := core.ValidateAlert(alert); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if alert.CreatedAt.IsZero() {
			alert.CreatedAt = time.Now().UTC()
		}
		if err := tx.Set(makeAlertKey(alert.Id), storage.MarshalAlert(alert)); err != nil {
			return err
		}
		dedupeKey := makeAlertDedupeKey(alert.DedupeKey, alert.CreatedAt)
		if err := tx.Set(dedupeKey, storage.MarshalID(alert.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// UpdateAlert replaces a stored alert. The dedupe index entry is keyed by
// CreatedAt, which never changes, so only the record itself is rewritten.
func (r *AlertRepository) UpdateAlert(ctx context.Context, alert *core.Alert) error {
	if err := core.ValidateAlert(alert); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeAlertKey(alert.Id)
		_, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Set(key, storage.MarshalAlert(alert)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetAlert retrieves an alert by ID.
func (r *AlertRepository) GetAlert(ctx context.Context, id core.ID) (*core.Alert, error) {
	var result *core.Alert
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeAlertKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			result, err = storage.UnmarshalAlert(val)
			return err
		})
	}, false)
	return result, err
}

// FindActiveByDedupeKey returns the most recent non-suppressed alert with the
// given dedupe key created at or after since. The dedupe index is ordered by
// CreatedAt, so the last qualifying entry wins.
func (r *AlertRepository) FindActiveByDedupeKey(ctx context.Context, dedupeKey core.ID, since time.Time) (*core.Alert, error) {
	var result *core.Alert
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialAlertDedupeKey(dedupeKey)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var candidates []core.ID
		startKey := makeAlertDedupeKey(dedupeKey, since)
		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				id, err := storage.UnmarshalID(val)
				if err != nil {
					return err
				}
				candidates = append(candidates, id)
				return nil
			})
			if err != nil {
				return err
			}
		}

		// Newest first.
		for i := len(candidates) - 1; i >= 0; i-- {
			item, err := tx.Get(makeAlertKey(candidates[i]))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var alert *core.Alert
			if err := item.Value(func(val []byte) error {
				alert, err = storage.UnmarshalAlert(val)
				return err
			}); err != nil {
				return err
			}
			if alert.Status != core.AlertStatusSuppressed {
				result = alert
				return nil
			}
		}
		return storage.ErrNotFound
	}, false)
	return result, err
}
