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


package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savaslabs/kb/ai/mock"
	"github.com/savaslabs/kb/core"
	badgerstore "github.com/savaslabs/kb/storage/badger"
)

const testModelID = "mock-embedding"

// indexDocument writes a document with one chunk per text, each chunk carrying
// the given unit vector under the mock model.
func indexDocument(t *testing.T, stores *badgerstore.MemoryStores, externalID string, texts []string, vectors [][]float32, acl []core.AccessEntry) *core.Document {
	t.Helper()

	doc := &core.Document{
		Id:         core.DocumentID(core.SourceTranscript, externalID),
		Source:     core.SourceTranscript,
		ExternalID: externalID,
		Title:      "Meeting " + externalID,
		CreatedAt:  time.Now().Add(-time.Hour),
	}
	for i := range acl {
		acl[i].DocumentID = doc.Id
	}

	chunks := make([]*core.Chunk, len(texts))
	var embeddings []*core.Embedding
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			Id:            core.ChunkID(doc.Id, i),
			DocumentID:    doc.Id,
			SequenceIndex: i,
			Text:          text,
			TokenCount:    len(core.Tokenize(text)),
			ContentHash:   core.ContentHash(text),
		}
		if vectors != nil {
			embeddings = append(embeddings, &core.Embedding{
				ChunkID:   chunks[i].Id,
				ModelID:   testModelID,
				Dimension: len(vectors[i]),
				Vector:    vectors[i],
			})
		}
	}

	require.NoError(t, stores.Index.ReplaceDocument(context.Background(), doc, chunks, embeddings, acl))
	return doc
}

func publicACL() []core.AccessEntry {
	return []core.AccessEntry{{Principal: core.PrincipalPublic, Level: core.AccessRead}}
}

func newTestSearcher(t *testing.T) (*Searcher, *badgerstore.MemoryStores, *mock.MockProvider) {
	t.Helper()

	stores, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	provider := mock.NewMockProvider().(*mock.MockProvider)
	searcher, err := NewSearcher(stores.Index, provider)
	require.NoError(t, err)
	return searcher, stores, provider
}

func TestNewSearcherRequiresDependencies(t *testing.T) {
	stores, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	_, err = NewSearcher(nil, mock.NewMockProvider())
	assert.ErrorIs(t, err, ErrIndexRequired)

	_, err = NewSearcher(stores.Index, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	searcher, _, _ := newTestSearcher(t)

	_, err := searcher.Search(context.Background(), Query{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchRanksHybridMatchesAndBuildsProvenance(t *testing.T) {
	searcher, stores, provider := newTestSearcher(t)

	// "budget review" appears in doc a; doc b only matches the vector leg.
	docA := indexDocument(t, stores, "a",
		[]string{"the quarterly budget review went long", "unrelated closing remarks"},
		[][]float32{{1, 0, 0}, {0, 0, 1}},
		publicACL())
	indexDocument(t, stores, "b",
		[]string{"engineering standup notes"},
		[][]float32{{0, 1, 0}},
		publicACL())

	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	resp, err := searcher.Search(context.Background(), Query{
		Text:   "budget review",
		Viewer: Viewer{Principal: "anyone@example.com"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	// The chunk hit by both legs must come first.
	top := resp.Results[0]
	assert.Equal(t, core.ChunkID(docA.Id, 0), top.ChunkID)
	assert.Equal(t, docA.Id, top.DocumentID)
	assert.Equal(t, 1, top.Rank)
	assert.Greater(t, top.FusedScore, 0.0)
	assert.Equal(t, "Meeting a", top.Provenance.Title)
	assert.Equal(t, core.SourceTranscript, top.Provenance.Source)
	assert.False(t, resp.UsedRerank)
}

func TestSearchDegradesToLexicalWhenEmbeddingFails(t *testing.T) {
	searcher, stores, provider := newTestSearcher(t)

	indexDocument(t, stores, "a",
		[]string{"deployment checklist for the release"},
		[][]float32{{1, 0, 0}},
		publicACL())

	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("provider down")
	}

	var vectorErr error
	monitor := &recordingMonitor{onVectorFailed: func(err error) { vectorErr = err }}

	resp, err := searcher.SearchWithMonitor(context.Background(), Query{Text: "deployment checklist"}, monitor)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Error(t, vectorErr)
}

func TestSearchDeniesByDefault(t *testing.T) {
	searcher, stores, provider := newTestSearcher(t)

	// No ACL entries at all: nobody sees it, not even a named viewer.
	indexDocument(t, stores, "private",
		[]string{"confidential compensation discussion"},
		[][]float32{{1, 0, 0}},
		nil)

	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	resp, err := searcher.Search(context.Background(), Query{
		Text:   "compensation discussion",
		Viewer: Viewer{Principal: "ceo@example.com", Groups: []string{"leadership"}},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearchFiltersByPrincipalAndGroup(t *testing.T) {
	searcher, stores, _ := newTestSearcher(t)

	indexDocument(t, stores, "direct",
		[]string{"roadmap planning for platform team"},
		nil,
		[]core.AccessEntry{{Principal: "alice@example.com", Level: core.AccessRead}})
	indexDocument(t, stores, "group",
		[]string{"roadmap planning for design team"},
		nil,
		[]core.AccessEntry{{Principal: "group:design", Level: core.AccessRead}})

	ctx := context.Background()

	resp, err := searcher.Search(ctx, Query{
		Text:   "roadmap planning",
		Viewer: Viewer{Principal: "alice@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, core.DocumentID(core.SourceTranscript, "direct"), resp.Results[0].DocumentID)

	resp, err = searcher.Search(ctx, Query{
		Text:   "roadmap planning",
		Viewer: Viewer{Principal: "bob@example.com", Groups: []string{"group:design"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, core.DocumentID(core.SourceTranscript, "group"), resp.Results[0].DocumentID)

	// A viewer matching neither sees nothing.
	resp, err = searcher.Search(ctx, Query{
		Text:   "roadmap planning",
		Viewer: Viewer{Principal: "eve@example.com"},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearchRerankReordersHead(t *testing.T) {
	searcher, stores, provider := newTestSearcher(t)

	indexDocument(t, stores, "a",
		[]string{"invoice follow up", "invoice follow up details and more context"},
		nil,
		publicACL())

	// Reverse whatever order arrives.
	provider.GetMockReranker().RerankFunc = func(ctx context.Context, query string, passages []string) ([]int, error) {
		order := make([]int, len(passages))
		for i := range order {
			order[i] = len(passages) - 1 - i
		}
		return order, nil
	}

	baseline, err := searcher.Search(context.Background(), Query{Text: "invoice follow up"})
	require.NoError(t, err)
	require.Len(t, baseline.Results, 2)

	reranked, err := searcher.Search(context.Background(), Query{Text: "invoice follow up", Rerank: true})
	require.NoError(t, err)
	require.Len(t, reranked.Results, 2)
	assert.True(t, reranked.UsedRerank)
	assert.Equal(t, baseline.Results[0].ChunkID, reranked.Results[1].ChunkID)
	assert.Equal(t, baseline.Results[1].ChunkID, reranked.Results[0].ChunkID)
	assert.Equal(t, 1, reranked.Results[0].Rank)
}

func TestSearchRerankFailureKeepsFusedOrder(t *testing.T) {
	searcher, stores, provider := newTestSearcher(t)

	indexDocument(t, stores, "a",
		[]string{"incident retro notes", "incident retro notes continued with extra detail"},
		nil,
		publicACL())

	provider.GetMockReranker().RerankFunc = func(ctx context.Context, query string, passages []string) ([]int, error) {
		return nil, errors.New("rerank unavailable")
	}

	baseline, err := searcher.Search(context.Background(), Query{Text: "incident retro"})
	require.NoError(t, err)

	resp, err := searcher.Search(context.Background(), Query{Text: "incident retro", Rerank: true})
	require.NoError(t, err)
	assert.False(t, resp.UsedRerank)
	require.Len(t, resp.Results, len(baseline.Results))
	for i := range baseline.Results {
		assert.Equal(t, baseline.Results[i].ChunkID, resp.Results[i].ChunkID)
	}
}

func TestSearchClampsLimit(t *testing.T) {
	searcher, stores, _ := newTestSearcher(t)

	texts := make([]string, 60)
	for i := range texts {
		texts[i] = fmt.Sprintf("status update number %d for the project", i)
	}
	indexDocument(t, stores, "bulk", texts, nil, publicACL())

	resp, err := searcher.Search(context.Background(), Query{Text: "status update project", Limit: 500})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Results), MaxLimit)

	resp, err = searcher.Search(context.Background(), Query{Text: "status update project"})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Results), DefaultLimit)
}

// recordingMonitor captures selected callbacks for assertions.
type recordingMonitor struct {
	noopMonitor
	onVectorFailed func(error)
}

func (m *recordingMonitor) VectorSearchFailed(err error) {
	if m.onVectorFailed != nil {
		m.onVectorFailed(err)
	}
}
