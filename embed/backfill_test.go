package embed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/savaslabs/kb/ai/mock"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackfillerRepairsPendingChunks(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	embedder := mock.NewMockEmbedder()

	// A document indexed lexical-only: chunks but no vectors.
	docID := core.DocumentID(core.SourceTranscript, "meeting-9")
	doc := &core.Document{
		Id:         docID,
		Source:     core.SourceTranscript,
		ExternalID: "meeting-9",
		Title:      "Unembedded call",
		CreatedAt:  time.Now().UTC(),
	}
	chunks := []*core.Chunk{
		testChunk(docID, 0, "pending chunk one"),
		testChunk(docID, 1, "pending chunk two"),
	}
	require.NoError(t, stores.Index.ReplaceDocument(ctx, doc, chunks, nil, nil))

	batcher, err := NewBatcher(embedder, stores.Dedupe)
	require.NoError(t, err)
	backfiller, err := NewBackfiller(stores.Index, batcher, nil)
	require.NoError(t, err)

	repaired, err := backfiller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repaired)

	missing, err := stores.Index.MissingEmbeddings(ctx, embedder.ModelID(), 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	// The vectors are actually queryable.
	for _, chunk := range chunks {
		_, err := stores.Index.GetEmbedding(ctx, chunk.Id, embedder.ModelID())
		assert.NoError(t, err)
	}
}

func TestBackfillerStopsWithoutProgress(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("provider still down")
	}

	docID := core.DocumentID(core.SourceChat, "thread-9")
	doc := &core.Document{
		Id:         docID,
		Source:     core.SourceChat,
		ExternalID: "thread-9",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, stores.Index.ReplaceDocument(ctx, doc,
		[]*core.Chunk{testChunk(docID, 0, "still pending")}, nil, nil))

	batcher, err := NewBatcher(embedder, nil, WithMaxAttempts(1), WithBaseDelay(time.Millisecond))
	require.NoError(t, err)
	backfiller, err := NewBackfiller(stores.Index, batcher, nil)
	require.NoError(t, err)

	repaired, err := backfiller.Run(ctx)
	require.NoError(t, err, "a failing provider must not loop forever or error")
	assert.Equal(t, 0, repaired)
}

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name  string
		input []float32
	}{
		{"simple", []float32{3, 4}},
		{"negative", []float32{-1, 2, -3}},
		{"already normalized", []float32{1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NormalizeVector(tt.input)
			var sum float32
			for _, v := range out {
				sum += v * v
			}
			assert.InDelta(t, 1.0, sum, 0.0001)
		})
	}

	t.Run("zero vector", func(t *testing.T) {
		out := NormalizeVector([]float32{0, 0})
		assert.Equal(t, []float32{0, 0}, out)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, NormalizeVector(nil))
	})
}
