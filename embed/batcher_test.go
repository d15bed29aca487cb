package embed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/savaslabs/kb/ai/mock"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunk(docID core.ID, seq int, text string) *core.Chunk {
	return &core.Chunk{
		Id:            core.ChunkID(docID, seq),
		DocumentID:    docID,
		SequenceIndex: seq,
		Text:          text,
		TokenCount:    (len(text) + 3) / 4,
		ContentHash:   core.ContentHash(text),
	}
}

func TestBatcherEmbedsAndNormalizes(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	batcher, err := NewBatcher(embedder, nil)
	require.NoError(t, err)

	docID := core.DocumentID(core.SourceChat, "thread-1")
	chunks := []*core.Chunk{
		testChunk(docID, 0, "first chunk"),
		testChunk(docID, 1, "second chunk"),
	}

	result, err := batcher.Embed(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, result.Vectors, 2)
	assert.Empty(t, result.Pending)

	for _, vec := range result.Vectors {
		var sum float32
		for _, v := range vec {
			sum += v * v
		}
		assert.InDelta(t, 1.0, sum, 0.01, "stored vectors must be unit length")
	}
}

func TestBatcherDeduplicatesByContentHash(t *testing.T) {
	calls := 0
	var sent []string
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		sent = append(sent, texts...)
		vecs := make([][]float32, len(texts))
		for i := range texts {
			vecs[i] = []float32{1, 0}
		}
		return vecs, nil
	}

	batcher, err := NewBatcher(embedder, nil)
	require.NoError(t, err)

	docID := core.DocumentID(core.SourceChat, "thread-2")
	// Two chunks share identical text and therefore a content hash.
	chunks := []*core.Chunk{
		testChunk(docID, 0, "duplicated text"),
		testChunk(docID, 1, "duplicated text"),
		testChunk(docID, 2, "unique text"),
	}

	result, err := batcher.Embed(context.Background(), chunks)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, sent, 2, "duplicate text should be sent once")
	assert.Len(t, result.Vectors, 3, "every chunk still gets a vector")
}

func TestBatcherPersistentCacheSkipsProvider(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	embedder := mock.NewMockEmbedder()
	batcher, err := NewBatcher(embedder, stores.Dedupe)
	require.NoError(t, err)

	docID := core.DocumentID(core.SourceTranscript, "meeting-1")
	chunks := []*core.Chunk{testChunk(docID, 0, "cached across runs")}

	_, err = batcher.Embed(context.Background(), chunks)
	require.NoError(t, err)
	firstCalls := embedder.CallCount()
	require.Greater(t, firstCalls, 0)

	// Second run with the same content must hit the cache only.
	result, err := batcher.Embed(context.Background(), chunks)
	require.NoError(t, err)
	assert.Equal(t, firstCalls, embedder.CallCount(), "second run should not call the provider")
	assert.Len(t, result.Vectors, 1)
}

func TestBatcherPartitionBounds(t *testing.T) {
	var batchSizes []int
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		batchSizes = append(batchSizes, len(texts))
		vecs := make([][]float32, len(texts))
		for i := range texts {
			vecs[i] = []float32{1}
		}
		return vecs, nil
	}

	batcher, err := NewBatcher(embedder, nil, WithMaxBatchChunks(3), WithMaxBatchTokens(1000))
	require.NoError(t, err)

	docID := core.DocumentID(core.SourceChat, "thread-3")
	var chunks []*core.Chunk
	for i := 0; i < 8; i++ {
		chunks = append(chunks, testChunk(docID, i, fmt.Sprintf("chunk number %d", i)))
	}

	_, err = batcher.Embed(context.Background(), chunks)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 2}, batchSizes)
}

func TestBatcherTokenBoundSplitsBatches(t *testing.T) {
	var batchSizes []int
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		batchSizes = append(batchSizes, len(texts))
		vecs := make([][]float32, len(texts))
		for i := range texts {
			vecs[i] = []float32{1}
		}
		return vecs, nil
	}

	batcher, err := NewBatcher(embedder, nil, WithMaxBatchTokens(30))
	require.NoError(t, err)

	docID := core.DocumentID(core.SourceChat, "thread-4")
	// 100-char texts are ~25 tokens each, so only one fits per batch.
	var chunks []*core.Chunk
	for i := 0; i < 3; i++ {
		text := fmt.Sprintf("%03d", i)
		for len(text) < 100 {
			text += " filler"
		}
		chunks = append(chunks, testChunk(docID, i, text))
	}

	_, err = batcher.Embed(context.Background(), chunks)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1}, batchSizes)
}

func TestBatcherTimeoutThenSuccess(t *testing.T) {
	attempts := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, fmt.Errorf("%w: request timeout", core.ErrTransientProvider)
		}
		vecs := make([][]float32, len(texts))
		for i := range texts {
			vecs[i] = []float32{0, 1}
		}
		return vecs, nil
	}

	batcher, err := NewBatcher(embedder, nil, WithBaseDelay(time.Millisecond))
	require.NoError(t, err)

	docID := core.DocumentID(core.SourceTranscript, "meeting-2")
	result, err := batcher.Embed(context.Background(), []*core.Chunk{testChunk(docID, 0, "flaky provider")})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, result.Vectors, 1)
	assert.Empty(t, result.Pending)
}

func TestBatcherExhaustionMarksPending(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("provider down")
	}

	exhausted := 0
	telemetry := &recordingTelemetry{onExhausted: func() { exhausted++ }}
	batcher, err := NewBatcher(embedder, nil,
		WithMaxAttempts(2), WithBaseDelay(time.Millisecond), WithTelemetry(telemetry))
	require.NoError(t, err)

	docID := core.DocumentID(core.SourceChat, "thread-5")
	chunks := []*core.Chunk{
		testChunk(docID, 0, "doomed one"),
		testChunk(docID, 1, "doomed two"),
	}

	result, err := batcher.Embed(context.Background(), chunks)
	require.NoError(t, err, "retry exhaustion is not a hard error")
	assert.Empty(t, result.Vectors)
	assert.Len(t, result.Pending, 2)
	assert.Equal(t, 1, exhausted)
}

type recordingTelemetry struct {
	completed   int
	onExhausted func()
}

func (r *recordingTelemetry) BatchCompleted(chunks, tokens int, latency time.Duration, attempts int) {
	r.completed++
}

func (r *recordingTelemetry) BatchExhausted(chunks int, err error) {
	if r.onExhausted != nil {
		r.onExhausted()
	}
}
