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
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savaslabs/kb/adapter"
	"github.com/savaslabs/kb/ai/mock"
	"github.com/savaslabs/kb/chunker"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/embed"
	"github.com/savaslabs/kb/signal"
	badgerstore "github.com/savaslabs/kb/storage/badger"
)

// fixedCounter keeps chunker tests off the network BPE download.
type fixedCounter struct{}

func (fixedCounter) Count(text string) int {
	return (len(text) + 3) / 4
}

// captureSink records delivered alerts and can fail a set number of times.
type captureSink struct {
	mu       sync.Mutex
	failures int
	alerts   []*core.Alert
}

func (s *captureSink) Deliver(_ context.Context, alert *core.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *captureSink) delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

type workerFixture struct {
	pipeline *Pipeline
	worker   *Worker
	stores   *badgerstore.MemoryStores
	sink     *captureSink
}

func newWorkerFixture(t *testing.T, opts ...WorkerOption) *workerFixture {
	t.Helper()

	stores, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	provider := mock.NewMockProvider()
	registry := adapter.NewRegistry(adapter.NewTranscriptNormalizer(), adapter.NewChatNormalizer())

	chk, err := chunker.New(chunker.WithTokenCounter(fixedCounter{}))
	require.NoError(t, err)

	batcher, err := embed.NewBatcher(provider.Embedder(), stores.Dedupe)
	require.NoError(t, err)

	detector, err := signal.NewDetector(stores.Alerts)
	require.NoError(t, err)

	pipeline, err := NewPipeline(registry, stores.Queue, stores.Idempotency)
	require.NoError(t, err)

	sink := &captureSink{}
	base := []WorkerOption{
		WithPollInterval(10 * time.Millisecond),
		WithBaseDelay(20 * time.Millisecond),
		WithSink(sink),
	}
	worker, err := NewWorker(stores.Queue, registry, stores.Index, stores.Alerts,
		chk, batcher, detector, append(base, opts...)...)
	require.NoError(t, err)

	return &workerFixture{pipeline: pipeline, worker: worker, stores: stores, sink: sink}
}

func TestWorkerProcessesJobEndToEnd(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.worker.Start(ctx))
	defer f.worker.Stop()

	payload := transcriptPayload("evt-w1", "call-w1",
		"We are over budget on this phase and the client cannot afford the overage.")
	res, err := f.pipeline.Submit(ctx, core.SourceTranscript, payload)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := f.stores.Index.GetDocument(ctx, res.DocumentID)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	chunks, err := f.stores.Index.GetDocumentChunks(ctx, res.DocumentID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// Vectors stored for every chunk under the mock model.
	for _, c := range chunks {
		_, err := f.stores.Index.GetEmbedding(ctx, c.Id, "mock-embedding")
		assert.NoError(t, err)
	}

	// ACL built from participant emails.
	entries, err := f.stores.Index.GetAccessEntries(ctx, res.DocumentID)
	require.NoError(t, err)
	principals := make(map[string]bool)
	for _, e := range entries {
		principals[e.Principal] = true
	}
	assert.True(t, principals["ana@savaslabs.com"])
	assert.True(t, principals["robin@client.com"])

	// Budget language from an external speaker produced a delivered alert.
	require.Eventually(t, func() bool {
		return f.sink.delivered() == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, core.AlertRiskBudget, f.sink.alerts[0].Type)

	// The job is gone from the queue.
	require.Eventually(t, func() bool {
		depth, err := f.stores.Queue.Depth(ctx)
		return err == nil && depth == 0
	}, 5*time.Second, 10*time.Millisecond)
	dead, err := f.stores.Queue.DeadLetters(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, dead)
}

func TestWorkerReingestReplacesDocumentState(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.worker.Start(ctx))
	defer f.worker.Stop()

	first := transcriptPayload("evt-r1", "call-r", "Original discussion about the rollout.")
	res, err := f.pipeline.Submit(ctx, core.SourceTranscript, first)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := f.stores.Index.GetDocument(ctx, res.DocumentID)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	// Same call id, new event id: the document is replaced, not duplicated.
	second := transcriptPayload("evt-r2", "call-r", "Corrected transcript text.")
	res2, err := f.pipeline.Submit(ctx, core.SourceTranscript, second)
	require.NoError(t, err)
	require.Equal(t, res.DocumentID, res2.DocumentID)

	require.Eventually(t, func() bool {
		chunks, err := f.stores.Index.GetDocumentChunks(ctx, res.DocumentID)
		if err != nil || len(chunks) == 0 {
			return false
		}
		for _, c := range chunks {
			if c.Text == "Corrected transcript text." {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	chunks, err := f.stores.Index.GetDocumentChunks(ctx, res.DocumentID)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.NotContains(t, c.Text, "Original discussion")
	}
}

func TestWorkerDeadLettersMalformedPayload(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	// Bypass intake validation to simulate a poisoned job.
	job := &core.IngestJob{
		Id:         uuid.NewString(),
		EventID:    "evt-bad",
		Source:     core.SourceTranscript,
		DocumentID: 42,
		Payload:    []byte(`{{not json`),
		EnqueuedAt: time.Now(),
	}
	require.NoError(t, f.stores.Queue.Enqueue(ctx, job))

	require.NoError(t, f.worker.Start(ctx))
	defer f.worker.Stop()

	require.Eventually(t, func() bool {
		dead, err := f.stores.Queue.DeadLetters(ctx, 10)
		return err == nil && len(dead) == 1
	}, 5*time.Second, 10*time.Millisecond)

	dead, err := f.stores.Queue.DeadLetters(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, job.Id, dead[0].Id)
	assert.NotEmpty(t, dead[0].LastError)
}

func TestWorkerRetriesTransientSinkFailure(t *testing.T) {
	f := newWorkerFixture(t)
	f.sink.failures = 1
	ctx := context.Background()

	require.NoError(t, f.worker.Start(ctx))
	defer f.worker.Stop()

	payload := transcriptPayload("evt-t1", "call-t1", "The launch slipped and we are behind schedule.")
	_, err := f.pipeline.Submit(ctx, core.SourceTranscript, payload)
	require.NoError(t, err)

	// First delivery attempt fails, the job retries, and the alert persisted
	// by the first attempt survives the retry without duplication.
	require.Eventually(t, func() bool {
		depth, derr := f.stores.Queue.Depth(ctx)
		dead, lerr := f.stores.Queue.DeadLetters(ctx, 10)
		return derr == nil && lerr == nil && depth == 0 && len(dead) == 0
	}, 5*time.Second, 10*time.Millisecond)

	stats, err := f.stores.Index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AlertsByType[core.AlertRiskSchedule])
}

func TestWorkerStartTwiceFails(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.worker.Start(ctx))
	defer f.worker.Stop()

	assert.ErrorIs(t, f.worker.Start(ctx), ErrAlreadyRunning)
}
