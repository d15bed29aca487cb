package search

import (
	"github.com/savaslabs/kb/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterLexicalSearch(chunkIDs []uint64)
	AfterVectorSearch(chunkIDs []uint64)
	VectorSearchFailed(err error)
	AfterFusion(candidates int)
	AfterAccessFilter(kept, dropped int)
	RerankApplied(used bool)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                    {}
func (n *noopMonitor) AfterLexicalSearch(_ []uint64)     {}
func (n *noopMonitor) AfterVectorSearch(_ []uint64)      {}
func (n *noopMonitor) VectorSearchFailed(_ error)        {}
func (n *noopMonitor) AfterFusion(_ int)                 {}
func (n *noopMonitor) AfterAccessFilter(_, _ int)        {}
func (n *noopMonitor) RerankApplied(_ bool)              {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)     {}
