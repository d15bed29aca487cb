package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// ModelID identifies the embedding model. Vectors from different models are
	// never comparable, so the index stores embeddings keyed by this value.
	ModelID() string
}

// SignalCategory names a risk or opportunity category the classifier can judge.
// Values mirror core.AlertType names ("risk-budget", "risk-schedule",
// "risk-satisfaction", "opportunity").
type SignalCategory string

// SignalJudgment is the classifier's verdict on one candidate category.
type SignalJudgment struct {
	// Category is the candidate category being judged.
	Category SignalCategory

	// Confirmed reports whether the classifier agrees the signal is present.
	Confirmed bool

	// Confidence is the classifier's confidence in its verdict, 0.0-1.0.
	Confidence float32
}

// SignalClassifier disambiguates keyword-detected signal candidates.
// It only ever judges categories it is handed; it never promotes a chunk that
// produced no keyword match. Implementations must be thread-safe.
type SignalClassifier interface {
	// ClassifySignals judges each candidate category against the text.
	// The returned slice contains one judgment per candidate, in input order.
	// Returns an error if classification fails; callers treat failure as
	// "unclassified" and keep the keyword verdict.
	ClassifySignals(ctx context.Context, text string, candidates []SignalCategory) ([]SignalJudgment, error)
}

// Reranker reorders retrieved passages by relevance to a query.
// Implementations must be thread-safe.
type Reranker interface {
	// Rerank returns a permutation of passage indices, most relevant first.
	// Every input index appears exactly once in the result.
	// Returns an error if reranking fails; callers fall back to the input order.
	Rerank(ctx context.Context, query string, passages []string) ([]int, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder, SignalClassifier, and Reranker
// instances, ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// SignalClassifier returns the signal classification service.
	// The returned SignalClassifier is safe for concurrent use.
	SignalClassifier() SignalClassifier

	// Reranker returns the search reranking service.
	// The returned Reranker is safe for concurrent use.
	Reranker() Reranker

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
