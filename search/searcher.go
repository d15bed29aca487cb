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
	"log/slog"
	"strings"
	"time"

	"github.com/savaslabs/kb/ai"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/embed"
	"github.com/savaslabs/kb/storage"
)

const (
	// DefaultLimit applies when the query does not set one.
	DefaultLimit = 10

	// MaxLimit caps results per query.
	MaxLimit = 50

	// lexicalTopK and vectorTopK size the per-leg candidate lists.
	lexicalTopK = 100
	vectorTopK  = 100

	// workingSetSize truncates the fused list before access filtering.
	workingSetSize = 50

	// rerankTopN bounds how many candidates go to the reranker.
	rerankTopN = 20
)

// TimeRange restricts matches to documents created inside it.
// Zero endpoints are open.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Filters narrow a query before scoring.
type Filters struct {
	Sources      []core.Source
	Tags         []string
	TimeRange    TimeRange
	Participants []string
}

// Viewer identifies who is asking. Results the viewer's principal or groups
// cannot read are removed; an unknown viewer sees only public documents.
type Viewer struct {
	Principal string
	Groups    []string
}

// Query is one search request.
type Query struct {
	Text    string
	Filters Filters
	Viewer  Viewer
	Limit   int
	Rerank  bool
}

// Response carries the ranked results plus how they were produced.
type Response struct {
	Results    []*core.SearchResult
	UsedRerank bool
	LatencyMS  int64
}

// Searcher runs hybrid lexical and vector retrieval over the index.
type Searcher struct {
	index    storage.IndexRepository
	embedder ai.Embedder
	reranker ai.Reranker
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(index storage.IndexRepository, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		index:    index,
		embedder: provider.Embedder(),
		reranker: provider.Reranker(),
		logger:   slog.Default().With("component", "search"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs the query through the full pipeline: normalize, both retrieval
// legs, rank fusion, access filtering, and optional reranking.
func (s *Searcher) Search(ctx context.Context, q Query) (*Response, error) {
	return s.SearchWithMonitor(ctx, q, nil)
}

// SearchWithMonitor runs Search with stage callbacks.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, q Query, monitor SearchMonitor) (*Response, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuery
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	start := time.Now()
	monitor.Start(q.Text)

	terms := normalizeQuery(q.Text)
	filter := &storage.DocumentFilter{
		Sources:      q.Filters.Sources,
		Tags:         q.Filters.Tags,
		From:         q.Filters.TimeRange.From,
		To:           q.Filters.TimeRange.To,
		Participants: q.Filters.Participants,
	}

	// 1. Lexical leg. A broken index is a hard failure.
	lexical, err := s.index.SearchLexical(ctx, terms, filter, lexicalTopK)
	if err != nil {
		s.logger.Error("lexical search failed", "err", err)
		return nil, err
	}
	monitor.AfterLexicalSearch(matchIDs(lexical))

	// 2. Vector leg. Provider or index trouble degrades to lexical-only.
	vector := s.vectorLeg(ctx, q.Text, filter, monitor)

	// 3. Rank fusion, then cut down to the working set.
	fused := fuse(lexical, vector)
	monitor.AfterFusion(len(fused))
	if len(fused) > workingSetSize {
		fused = fused[:workingSetSize]
	}

	// 4. Access filter, deny-by-default.
	visible, dropped, err := s.filterByAccess(ctx, fused, q.Viewer)
	if err != nil {
		return nil, err
	}
	monitor.AfterAccessFilter(len(visible), dropped)

	// 5. Optional rerank of the head; failure keeps the fused order.
	usedRerank := false
	if q.Rerank && s.reranker != nil && len(visible) > 1 {
		visible, usedRerank = s.rerank(ctx, q.Text, visible)
	}
	monitor.RerankApplied(usedRerank)

	if len(visible) > limit {
		visible = visible[:limit]
	}

	results := make([]*core.SearchResult, 0, len(visible))
	for i, c := range visible {
		results = append(results, &core.SearchResult{
			ChunkID:    c.chunk.Id,
			DocumentID: c.chunk.DocumentID,
			FusedScore: c.fused,
			Rank:       i + 1,
			Text:       c.chunk.Text,
			Provenance: provenance(c),
		})
	}
	monitor.Finish(results)

	return &Response{
		Results:    results,
		UsedRerank: usedRerank,
		LatencyMS:  time.Since(start).Milliseconds(),
	}, nil
}

// vectorLeg embeds the query and runs nearest-neighbor retrieval. Any failure
// returns nil so the caller proceeds lexical-only.
func (s *Searcher) vectorLeg(ctx context.Context, text string, filter *storage.DocumentFilter, monitor SearchMonitor) []*storage.Match {
	queryVec, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		s.logger.Warn("query embedding failed, degrading to lexical-only", "err", err)
		monitor.VectorSearchFailed(err)
		return nil
	}
	matches, err := s.index.SearchVector(ctx, s.embedder.ModelID(), embed.NormalizeVector(queryVec), filter, vectorTopK)
	if err != nil {
		s.logger.Warn("vector search failed, degrading to lexical-only", "err", err)
		monitor.VectorSearchFailed(err)
		return nil
	}
	monitor.AfterVectorSearch(matchIDs(matches))
	return matches
}

// filterByAccess keeps candidates whose document ACL grants the viewer read
// access. A document without ACL entries is visible to nobody.
func (s *Searcher) filterByAccess(ctx context.Context, cands []*candidate, viewer Viewer) ([]*candidate, int, error) {
	allowed := make(map[core.ID]bool)
	checked := make(map[core.ID]bool)

	visible := make([]*candidate, 0, len(cands))
	dropped := 0
	for _, c := range cands {
		docID := c.chunk.DocumentID
		if !checked[docID] {
			entries, err := s.index.GetAccessEntries(ctx, docID)
			if err != nil {
				return nil, 0, err
			}
			allowed[docID] = viewerCanRead(viewer, entries)
			checked[docID] = true
		}
		if allowed[docID] {
			visible = append(visible, c)
		} else {
			dropped++
		}
	}
	return visible, dropped, nil
}

func viewerCanRead(viewer Viewer, entries []core.AccessEntry) bool {
	for _, entry := range entries {
		if entry.Level < core.AccessRead {
			continue
		}
		if entry.Principal == core.PrincipalPublic {
			return true
		}
		if viewer.Principal != "" && entry.Principal == viewer.Principal {
			return true
		}
		for _, group := range viewer.Groups {
			if entry.Principal == group {
				return true
			}
		}
	}
	return false
}

// rerank asks the model to reorder the head of the list. The tail keeps its
// fused order, and any reranker failure keeps everything as-is.
func (s *Searcher) rerank(ctx context.Context, query string, cands []*candidate) ([]*candidate, bool) {
	n := len(cands)
	if n > rerankTopN {
		n = rerankTopN
	}
	passages := make([]string, n)
	for i := 0; i < n; i++ {
		passages[i] = cands[i].chunk.Text
	}

	order, err := s.reranker.Rerank(ctx, query, passages)
	if err != nil {
		s.logger.Warn("rerank failed, keeping fused order", "err", err)
		return cands, false
	}

	reordered := make([]*candidate, 0, len(cands))
	for _, idx := range order {
		reordered = append(reordered, cands[idx])
	}
	reordered = append(reordered, cands[n:]...)
	return reordered, true
}

func matchIDs(matches []*storage.Match) []uint64 {
	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, uint64(m.Chunk.Id))
	}
	return ids
}

func provenance(c *candidate) core.Provenance {
	p := core.Provenance{
		Speaker:     c.chunk.Speaker,
		StartOffset: c.chunk.StartOffset,
	}
	if c.doc != nil {
		p.Title = c.doc.Title
		p.Source = c.doc.Source
	}
	return p
}
