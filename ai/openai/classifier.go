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


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/savaslabs/kb/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// SignalClassifier implements ai.SignalClassifier using OpenAI-compatible chat APIs.
type SignalClassifier struct {
	client        llms.Model
	minConfidence float32
	logger        *slog.Logger
}

// judgment is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type judgment struct {
	Category   string  `json:"category"`
	Confirmed  bool    `json:"confirmed"`
	Confidence float32 `json:"confidence"`
}

// verdict is the wrapper structure for the LLM's JSON response.
type verdict struct {
	Judgments []judgment `json:"judgments"`
}

// newSignalClassifier is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newSignalClassifier(config *ai.Config) (*SignalClassifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat/classification
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken("none"),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}

	return &SignalClassifier{
		client:        client,
		minConfidence: config.MinConfidence,
		logger:        slog.Default().With("component", "openai-classifier"),
	}, nil
}

// NewSignalClassifier creates a new signal classifier using the provided configuration.
//
// Returns ai.SignalClassifier interface to enforce abstraction.
func NewSignalClassifier(config *ai.Config) (ai.SignalClassifier, error) {
	return newSignalClassifier(config)
}

// ClassifySignals judges keyword-detected candidate categories against the text.
// Judgments whose confidence falls below the configured minimum are returned
// unconfirmed so that the caller keeps its keyword verdict.
func (c *SignalClassifier) ClassifySignals(ctx context.Context, text string, candidates []ai.SignalCategory) ([]ai.SignalJudgment, error) {
	if len(candidates) == 0 {
		return []ai.SignalJudgment{}, nil
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildClassifierPrompt(candidates)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result verdict
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			c.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			c.logger.Debug("no choices returned from model")
			return []ai.SignalJudgment{}, nil
		}

		responseText := stripCodeFences(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = fmt.Errorf("malformed classifier response: %w", err)
			c.logger.Warn("failed to parse classifier response", "attempt", attempt+1, "err", err)
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return nil, lastErr
	}

	// Map responses back onto the candidate list; anything the model failed to
	// judge stays unconfirmed with zero confidence.
	byCategory := make(map[ai.SignalCategory]judgment, len(result.Judgments))
	for _, j := range result.Judgments {
		byCategory[ai.SignalCategory(strings.ToLower(strings.TrimSpace(j.Category)))] = j
	}

	judgments := make([]ai.SignalJudgment, 0, len(candidates))
	for _, candidate := range candidates {
		j, ok := byCategory[candidate]
		if !ok {
			judgments = append(judgments, ai.SignalJudgment{Category: candidate})
			continue
		}

		confirmed := j.Confirmed && j.Confidence >= c.minConfidence
		judgments = append(judgments, ai.SignalJudgment{
			Category:   candidate,
			Confirmed:  confirmed,
			Confidence: clampConfidence(j.Confidence),
		})
	}

	return judgments, nil
}

func clampConfidence(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
