// Package search implements hybrid retrieval over the chunk index.
//
// A query runs both a lexical leg (token-frequency scoring) and a vector leg
// (cosine nearest-neighbor over stored embeddings), then merges them with
// reciprocal rank fusion. Candidates are filtered against each document's
// access list before an optional model rerank of the head of the list.
//
// The pipeline degrades gracefully: if the embedding provider or the vector
// leg fails, results come from the lexical leg alone, and a rerank failure
// keeps the fused order. Only a lexical index failure aborts a query.
//
// Use NewSearcher to construct a Searcher, then call Search, or
// SearchWithMonitor to observe each pipeline stage.
package search
