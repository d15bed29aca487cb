package search

import (
	"slices"
	"time"

	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/storage"
)

// rrfK dampens the contribution of deep ranks in reciprocal rank fusion.
const rrfK = 60

// candidate is a chunk scored by one or both retrieval legs.
type candidate struct {
	chunk    *core.Chunk
	doc      *core.Document
	fused    float64
	lexScore float64
}

// fuse merges the two ranked lists with reciprocal rank fusion:
// score(c) = sum over lists of 1 / (k + rank + 1), rank zero-based.
// Ties break by lexical score, then document recency, then chunk ID, so the
// ordering is deterministic for a fixed index state.
func fuse(lexical, vector []*storage.Match) []*candidate {
	byChunk := make(map[core.ID]*candidate)
	var order []*candidate

	ensure := func(m *storage.Match) *candidate {
		c, ok := byChunk[m.Chunk.Id]
		if !ok {
			c = &candidate{chunk: m.Chunk, doc: m.Doc}
			byChunk[m.Chunk.Id] = c
			order = append(order, c)
		}
		return c
	}

	for rank, m := range lexical {
		c := ensure(m)
		c.fused += 1.0 / float64(rrfK+rank+1)
		c.lexScore = m.Score
	}
	for rank, m := range vector {
		c := ensure(m)
		c.fused += 1.0 / float64(rrfK+rank+1)
	}

	slices.SortFunc(order, func(a, b *candidate) int {
		if a.fused != b.fused {
			if a.fused > b.fused {
				return -1
			}
			return 1
		}
		if a.lexScore != b.lexScore {
			if a.lexScore > b.lexScore {
				return -1
			}
			return 1
		}
		at, bt := docRecency(a.doc), docRecency(b.doc)
		if !at.Equal(bt) {
			if at.After(bt) {
				return -1
			}
			return 1
		}
		if a.chunk.Id < b.chunk.Id {
			return -1
		}
		if a.chunk.Id > b.chunk.Id {
			return 1
		}
		return 0
	})

	return order
}

func docRecency(doc *core.Document) time.Time {
	if doc == nil {
		return time.Time{}
	}
	if !doc.UpdatedAt.IsZero() {
		return doc.UpdatedAt
	}
	return doc.CreatedAt
}
