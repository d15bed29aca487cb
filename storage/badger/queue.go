package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/storage"
)

// dequeueRetries bounds retransaction attempts when concurrent dequeuers
// conflict on the head of the queue.
const dequeueRetries = 3

// JobQueue implements storage.JobQueue for BadgerDB. Ready jobs live under a
// (readyAt, seq) composite key so iteration pops them in ready-time order;
// in-flight jobs are parked under their job ID until acked, nacked, or
// dead-lettered.
type JobQueue struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.JobQueue = (*JobQueue)(nil)

// NewJobQueue creates a new JobQueue.
func NewJobQueue(backend *Backend) (*JobQueue, error) {
	seq, err := backend.GetSequence(queueIDSeq)
	if err != nil {
		return nil, err
	}
	return &JobQueue{backend: backend, seq: seq}, nil
}

// Close releases the ordering sequence.
func (q *JobQueue) Close() error {
	return q.seq.Release()
}

// Enqueue adds a job, visible immediately.
func (q *JobQueue) Enqueue(ctx context.Context, job *core.IngestJob) error {
	if job.Id == "" {
		job.Id = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	seq, err := q.nextSeq()
	if err != nil {
		return err
	}
	return q.backend.WithTx(func(tx *badger.Txn) error {
		key := makeQueueReadyKey(time.Now().UTC(), seq)
		if err := tx.Set(key, storage.MarshalIngestJob(job)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Dequeue removes and returns the oldest ready job, marking it in-flight.
// Concurrent dequeuers that race on the head of the queue are retried.
func (q *JobQueue) Dequeue(ctx context.Context) (*core.IngestJob, error) {
	for attempt := 0; attempt < dequeueRetries; attempt++ {
		job, err := q.tryDequeue()
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return job, err
	}
	return nil, storage.ErrTransactionFailed
}

func (q *JobQueue) tryDequeue() (*core.IngestJob, error) {
	var result *core.IngestJob
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(queueReadyPrefix + ":")
		iter := tx.NewIterator(opts)

		iter.Rewind()
		if !iter.Valid() {
			iter.Close()
			return storage.ErrQueueEmpty
		}
		key := iter.Item().KeyCopy(nil)
		if queueKeyReadyAt(key).After(time.Now().UTC()) {
			iter.Close()
			return storage.ErrQueueEmpty
		}
		var job *core.IngestJob
		err := iter.Item().Value(func(val []byte) error {
			var err error
			job, err = storage.UnmarshalIngestJob(val)
			return err
		})
		iter.Close()
		if err != nil {
			return err
		}

		job.Attempts++
		if err := tx.Delete(key); err != nil {
			return err
		}
		if err := tx.Set(makeQueueInflightKey(job.Id), storage.MarshalIngestJob(job)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		result = job
		return nil
	}, true)
	return result, err
}

// Ack removes an in-flight job permanently.
func (q *JobQueue) Ack(ctx context.Context, jobID string) error {
	return q.backend.WithTx(func(tx *badger.Txn) error {
		key := makeQueueInflightKey(jobID)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrJobNotInflight
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Nack returns an in-flight job to the queue, visible again after delay.
func (q *JobQueue) Nack(ctx context.Context, jobID string, delay time.Duration) error {
	seq, err := q.nextSeq()
	if err != nil {
		return err
	}
	return q.backend.WithTx(func(tx *badger.Txn) error {
		job, err := q.takeInflight(tx, jobID)
		if err != nil {
			return err
		}
		readyKey := makeQueueReadyKey(time.Now().UTC().Add(delay), seq)
		if err := tx.Set(readyKey, storage.MarshalIngestJob(job)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeadLetter moves an in-flight job to the dead-letter area.
func (q *JobQueue) DeadLetter(ctx context.Context, jobID string, reason string) error {
	seq, err := q.nextSeq()
	if err != nil {
		return err
	}
	return q.backend.WithTx(func(tx *badger.Txn) error {
		job, err := q.takeInflight(tx, jobID)
		if err != nil {
			return err
		}
		job.LastError = reason
		deadKey := makeQueueDeadKey(time.Now().UTC(), seq)
		if err := tx.Set(deadKey, storage.MarshalIngestJob(job)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeadLetters lists dead-lettered jobs, oldest first, up to limit.
func (q *JobQueue) DeadLetters(ctx context.Context, limit int) ([]*core.IngestJob, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	var result []*core.IngestJob
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(queueDeadPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid() && len(result) < limit; iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				job, err := storage.UnmarshalIngestJob(val)
				if err != nil {
					return err
				}
				result = append(result, job)
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

// Recover returns all in-flight jobs to the ready state.
func (q *JobQueue) Recover(ctx context.Context) (int, error) {
	recovered := 0
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		keys, err := collectKeys(tx, []byte(queueInflightPrefix+":"))
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, key := range keys {
			item, err := tx.Get(key)
			if err != nil {
				return err
			}
			var job *core.IngestJob
			if err := item.Value(func(val []byte) error {
				job, err = storage.UnmarshalIngestJob(val)
				return err
			}); err != nil {
				return err
			}
			seq, err := q.nextSeq()
			if err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
			if err := tx.Set(makeQueueReadyKey(now, seq), storage.MarshalIngestJob(job)); err != nil {
				return err
			}
			recovered++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return recovered, nil
}

// Depth returns the number of ready plus delayed jobs.
func (q *JobQueue) Depth(ctx context.Context) (int, error) {
	count := 0
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(queueReadyPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// takeInflight reads and deletes an in-flight entry within tx.
func (q *JobQueue) takeInflight(tx *badger.Txn, jobID string) (*core.IngestJob, error) {
	key := makeQueueInflightKey(jobID)
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrJobNotInflight
	}
	if err != nil {
		return nil, err
	}
	var job *core.IngestJob
	if err := item.Value(func(val []byte) error {
		job, err = storage.UnmarshalIngestJob(val)
		return err
	}); err != nil {
		return nil, err
	}
	if err := tx.Delete(key); err != nil {
		return nil, err
	}
	return job, nil
}

// nextSeq returns the next ordering sequence value, skipping the initial zero
// the way BadgerDB sequences hand it out.
func (q *JobQueue) nextSeq() (uint64, error) {
	n, err := q.seq.Next()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return q.seq.Next()
	}
	return n, nil
}

// queueKeyReadyAt decodes the ready timestamp embedded in a ready key.
func queueKeyReadyAt(key []byte) time.Time {
	offset := len(queueReadyPrefix) + 1
	micros := binary.BigEndian.Uint64(key[offset:])
	return time.UnixMicro(int64(micros)).UTC()
}
