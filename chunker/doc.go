// Package chunker splits normalized document bodies into retrieval-sized
// chunks.
//
// Three strategies cover the source shapes:
//
//   - Transcript bodies (speaker turns) group contiguous same-speaker turns,
//     or turns within a time window, and carry a fixed-length overlap suffix
//     between adjacent chunks.
//   - Thread bodies (chat messages) pack whole messages first-fit and never
//     split inside a message unless a single message exceeds the bound.
//   - Raw bodies fall back to fixed-size character windowing, which is also
//     the recovery path for malformed structural hints.
//
// Every chunk opens with a context prefix (document title and thread id) so
// it remains meaningful in isolation, and carries a token count for the
// embedding batcher's budget.
package chunker
