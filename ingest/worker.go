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
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/savaslabs/kb/adapter"
	"github.com/savaslabs/kb/chunker"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/embed"
	"github.com/savaslabs/kb/signal"
	"github.com/savaslabs/kb/storage"
)

const (
	// DefaultMaxAttempts is how many deliveries a job gets before the
	// dead-letter path.
	DefaultMaxAttempts = 5

	// DefaultBaseDelay seeds the exponential retry backoff.
	DefaultBaseDelay = 2 * time.Second

	// DefaultPollInterval is the dispatcher's sleep when the queue is empty.
	DefaultPollInterval = 250 * time.Millisecond

	// DefaultStageTimeout bounds each I/O stage of a job. Exceeding it is a
	// transient failure subject to the retry policy.
	DefaultStageTimeout = 60 * time.Second

	// conflictDelay requeues a job whose document is already being processed
	// by another worker.
	conflictDelay = 500 * time.Millisecond

	// maxBackoff caps the retry delay.
	maxBackoff = 5 * time.Minute
)

// Worker drains the durable queue and runs each job through the full
// pipeline: normalize, chunk, embed, index write, signal scan, alert
// delivery. Jobs for the same document are serialized through an in-flight
// table; everything else runs in parallel on the pool.
type Worker struct {
	queue    storage.JobQueue
	registry *adapter.Registry
	index    storage.IndexRepository
	alerts   storage.AlertRepository
	chunker  *chunker.Chunker
	batcher  *embed.Batcher
	detector *signal.Detector
	sink     AlertSink

	pool         *ants.Pool
	inflight     *inflightTable
	maxAttempts  int
	baseDelay    time.Duration
	pollInterval time.Duration
	stageTimeout time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker) error

// WithPoolSize sets the worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) WorkerOption {
	return func(w *Worker) error {
		if size < 1 {
			size = 1
		}
		if w.pool != nil {
			w.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		w.pool = pool
		return nil
	}
}

// WithSink sets the alert sink.
// Default is a LogSink.
func WithSink(sink AlertSink) WorkerOption {
	return func(w *Worker) error {
		if sink == nil {
			return ErrInvalidOption
		}
		w.sink = sink
		return nil
	}
}

// WithMaxAttempts sets the delivery cap before dead-lettering.
func WithMaxAttempts(attempts int) WorkerOption {
	return func(w *Worker) error {
		if attempts < 1 {
			return ErrInvalidOption
		}
		w.maxAttempts = attempts
		return nil
	}
}

// WithBaseDelay sets the initial retry backoff.
func WithBaseDelay(delay time.Duration) WorkerOption {
	return func(w *Worker) error {
		if delay <= 0 {
			return ErrInvalidOption
		}
		w.baseDelay = delay
		return nil
	}
}

// WithPollInterval sets the empty-queue polling interval.
func WithPollInterval(interval time.Duration) WorkerOption {
	return func(w *Worker) error {
		if interval <= 0 {
			return ErrInvalidOption
		}
		w.pollInterval = interval
		return nil
	}
}

// WithStageTimeout sets the per-stage I/O timeout.
func WithStageTimeout(timeout time.Duration) WorkerOption {
	return func(w *Worker) error {
		if timeout <= 0 {
			return ErrInvalidOption
		}
		w.stageTimeout = timeout
		return nil
	}
}

// WithWorkerLogger sets a custom logger.
// Default is slog.Default().
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// NewWorker creates a new ingestion worker.
func NewWorker(
	queue storage.JobQueue,
	registry *adapter.Registry,
	index storage.IndexRepository,
	alerts storage.AlertRepository,
	chk *chunker.Chunker,
	batcher *embed.Batcher,
	detector *signal.Detector,
	opts ...WorkerOption,
) (*Worker, error) {
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if chk == nil {
		return nil, ErrChunkerRequired
	}
	if batcher == nil {
		return nil, ErrBatcherRequired
	}
	if detector == nil {
		return nil, ErrDetectorRequired
	}

	logger := slog.Default().With("component", "ingest")

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		queue:        queue,
		registry:     registry,
		index:        index,
		alerts:       alerts,
		chunker:      chk,
		batcher:      batcher,
		detector:     detector,
		sink:         NewLogSink(logger),
		pool:         pool,
		inflight:     newInflightTable(),
		maxAttempts:  DefaultMaxAttempts,
		baseDelay:    DefaultBaseDelay,
		pollInterval: DefaultPollInterval,
		stageTimeout: DefaultStageTimeout,
		logger:       logger,
	}

	// Apply options
	for _, opt := range opts {
		if optErr := opt(w); optErr != nil {
			w.pool.Release()
			return nil, optErr
		}
	}

	return w, nil
}

// Start recovers jobs orphaned by a crash and launches the dispatcher.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrAlreadyRunning
	}

	recovered, err := w.queue.Recover(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		w.logger.Info("recovered in-flight jobs", "count", recovered)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.dispatch(runCtx)
	return nil
}

// Stop halts the dispatcher and waits for in-progress jobs to finish.
// Jobs interrupted mid-stage are nacked and picked up on the next start.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	w.pool.Release()
}

// dispatch is the single consumer of the queue. It hands each ready job to
// the pool, requeueing jobs whose document is already being processed.
func (w *Worker) dispatch(ctx context.Context) {
	defer close(w.done)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, storage.ErrQueueEmpty) {
				w.logger.Error("dequeue failed", "err", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
			continue
		}

		if !w.inflight.tryAcquire(job.DocumentID) {
			// Another worker holds this document. Requeue without burning
			// the backoff budget's intent; the conflict resolves quickly.
			if err := w.queue.Nack(ctx, job.Id, conflictDelay); err != nil {
				w.logger.Error("conflict requeue failed", "job_id", job.Id, "err", err)
			}
			continue
		}

		wg.Add(1)
		submitErr := w.pool.Submit(func() {
			defer wg.Done()
			defer w.inflight.release(job.DocumentID)
			w.process(ctx, job)
		})
		if submitErr != nil {
			wg.Done()
			w.inflight.release(job.DocumentID)
			w.logger.Error("pool submit failed", "job_id", job.Id, "err", submitErr)
			w.fail(job, submitErr)
		}
	}
}

// process runs one job end-to-end. Any stage error routes through the retry
// policy; a fully processed job is acked.
func (w *Worker) process(ctx context.Context, job *core.IngestJob) {
	logger := w.logger.With("job_id", job.Id, "document_id", job.DocumentID)

	normalizer, err := w.registry.Lookup(job.Source)
	if err != nil {
		w.deadLetter(job, err)
		return
	}

	// The stored payload is the job's source of truth; intake already
	// validated it once, so a failure here means the payload itself is bad.
	doc, body, _, err := normalizer.Normalize(job.Payload)
	if err != nil {
		w.deadLetter(job, err)
		return
	}

	chunks, err := w.chunker.Chunk(doc, body)
	if err != nil {
		w.fail(job, err)
		return
	}

	embedCtx, cancel := context.WithTimeout(ctx, w.stageTimeout)
	result, err := w.batcher.Embed(embedCtx, chunks)
	cancel()
	if err != nil {
		w.fail(job, err)
		return
	}
	if len(result.Pending) > 0 {
		logger.Warn("chunks stored without vectors, backfill will repair",
			"pending", len(result.Pending))
	}

	writeCtx, cancel := context.WithTimeout(ctx, w.stageTimeout)
	err = w.index.ReplaceDocument(writeCtx, doc, chunks, result.Records(w.batcher.ModelID()), buildACL(doc))
	cancel()
	if err != nil {
		w.fail(job, err)
		return
	}

	scanCtx, cancel := context.WithTimeout(ctx, w.stageTimeout)
	alerts, err := w.detector.Scan(scanCtx, doc, chunks)
	cancel()
	if err != nil {
		w.fail(job, err)
		return
	}

	if err := w.deliverAlerts(ctx, alerts); err != nil {
		w.fail(job, err)
		return
	}

	if err := w.queue.Ack(context.Background(), job.Id); err != nil {
		logger.Error("ack failed", "err", err)
		return
	}
	logger.Info("job processed", "chunks", len(chunks), "alerts", len(alerts))
}

// deliverAlerts pushes freshly created alerts to the sink and records the
// delivery. Re-running after a partial failure is safe: already delivered
// alerts were marked, and the dedupe window stops the detector from minting
// duplicates on the retried job.
func (w *Worker) deliverAlerts(ctx context.Context, alerts []*core.Alert) error {
	for _, alert := range alerts {
		deliverCtx, cancel := context.WithTimeout(ctx, w.stageTimeout)
		err := w.sink.Deliver(deliverCtx, alert)
		cancel()
		if err != nil {
			return err
		}

		if w.alerts != nil {
			alert.Status = core.AlertStatusDelivered
			if err := w.alerts.UpdateAlert(ctx, alert); err != nil {
				w.logger.Warn("failed to mark alert delivered", "alert_id", alert.Id, "err", err)
			}
		}
	}
	return nil
}

// fail routes a stage error through the retry policy: validation and
// permanent-provider errors dead-letter immediately, exhausted attempts
// dead-letter, everything else is requeued with exponential backoff.
func (w *Worker) fail(job *core.IngestJob, jobErr error) {
	if core.IsValidation(jobErr) || errors.Is(jobErr, core.ErrPermanentProvider) {
		w.deadLetter(job, jobErr)
		return
	}
	if job.Attempts >= w.maxAttempts {
		w.deadLetter(job, jobErr)
		return
	}

	delay := backoffDelay(w.baseDelay, job.Attempts)
	w.logger.Warn("job failed, retrying",
		"job_id", job.Id,
		"attempt", job.Attempts,
		"delay", delay,
		"err", jobErr)

	// Background context: requeueing must work during shutdown too.
	if err := w.queue.Nack(context.Background(), job.Id, delay); err != nil {
		w.logger.Error("nack failed", "job_id", job.Id, "err", err)
	}
}

func (w *Worker) deadLetter(job *core.IngestJob, jobErr error) {
	w.logger.Error("job dead-lettered",
		"job_id", job.Id,
		"attempt", job.Attempts,
		"err", jobErr)
	if err := w.queue.DeadLetter(context.Background(), job.Id, jobErr.Error()); err != nil {
		w.logger.Error("dead-letter failed", "job_id", job.Id, "err", err)
	}
}

// backoffDelay doubles per attempt from base, capped at maxBackoff.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// buildACL grants read access to every participant with an email plus any
// extra principals the source marked visible. A document with neither is
// invisible to everyone until re-ingested with access data.
func buildACL(doc *core.Document) []core.AccessEntry {
	var acl []core.AccessEntry
	seen := make(map[string]bool)
	add := func(principal string) {
		if principal == "" || seen[principal] {
			return
		}
		seen[principal] = true
		acl = append(acl, core.AccessEntry{
			DocumentID: doc.Id,
			Principal:  principal,
			Level:      core.AccessRead,
		})
	}

	for _, p := range doc.Participants {
		add(p.Email)
	}
	for _, principal := range doc.Visibility {
		add(principal)
	}
	return acl
}
