package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/savaslabs/kb/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Reranker implements ai.Reranker using OpenAI-compatible chat APIs.
type Reranker struct {
	client llms.Model
	logger *slog.Logger
}

// rerankResponse is an internal type used for JSON unmarshaling.
type rerankResponse struct {
	Order []int `json:"order"`
}

// newReranker is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newReranker(config *ai.Config) (*Reranker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken("none"),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}

	return &Reranker{
		client: client,
		logger: slog.Default().With("component", "openai-reranker"),
	}, nil
}

// NewReranker creates a new reranker using the provided configuration.
//
// Returns ai.Reranker interface to enforce abstraction.
func NewReranker(config *ai.Config) (ai.Reranker, error) {
	return newReranker(config)
}

// Rerank returns a permutation of passage indices, most relevant first.
// The response is validated: any permutation that drops or duplicates an index
// is rejected so that callers fall back to their existing order.
func (r *Reranker) Rerank(ctx context.Context, query string, passages []string) ([]int, error) {
	if len(passages) == 0 {
		return []int{}, nil
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildRerankPrompt(query)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(formatPassages(passages)),
			},
		},
	}

	response, err := r.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		r.logger.Error("failed to generate rerank response", "err", err)
		return nil, err
	}

	if len(response.Choices) < 1 {
		return nil, fmt.Errorf("reranker returned no choices")
	}

	responseText := stripCodeFences(response.Choices[0].Content)
	responseText = repairJSON(responseText)

	var parsed rerankResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		return nil, fmt.Errorf("malformed rerank response: %w", err)
	}

	if err := validatePermutation(parsed.Order, len(passages)); err != nil {
		return nil, err
	}

	return parsed.Order, nil
}

// validatePermutation checks that order contains each index in [0, n) exactly once.
func validatePermutation(order []int, n int) error {
	if len(order) != n {
		return fmt.Errorf("rerank order has %d entries, want %d", len(order), n)
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n {
			return fmt.Errorf("rerank order contains out-of-range index %d", idx)
		}
		if seen[idx] {
			return fmt.Errorf("rerank order repeats index %d", idx)
		}
		seen[idx] = true
	}
	return nil
}
