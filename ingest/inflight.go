package ingest

import (
	"sync"

	"github.com/savaslabs/kb/core"
)

// inflightTable serializes jobs that share a document id. The index writer's
// replace semantics would race if two workers rewrote the same document
// concurrently, so a worker must hold the document's slot for the duration of
// its job. Created at startup and passed to the worker, never ambient.
type inflightTable struct {
	mu   sync.Mutex
	busy map[core.ID]bool
}

func newInflightTable() *inflightTable {
	return &inflightTable{busy: make(map[core.ID]bool)}
}

// tryAcquire claims the document's slot. Returns false if another worker
// holds it; the caller should requeue the job rather than wait.
func (t *inflightTable) tryAcquire(docID core.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.busy[docID] {
		return false
	}
	t.busy[docID] = true
	return true
}

func (t *inflightTable) release(docID core.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.busy, docID)
}
