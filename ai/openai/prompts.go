package openai

import (
	"fmt"
	"strings"

	"github.com/savaslabs/kb/ai"
)

const classifierResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "judgments": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "category": {
            "type": "string"
          },
          "confirmed": {
            "type": "boolean"
          },
          "confidence": {
            "type": "number",
            "minimum": 0,
            "maximum": 1
          }
        },
        "required": ["category", "confirmed", "confidence"],
        "additionalProperties": false
      }
    }
  },
  "required": ["judgments"],
  "additionalProperties": false
}`

const classifierPromptTemplate = `You review excerpts from client meetings and project conversations. Keyword rules
flagged this excerpt as possibly containing the following signals: %s.

Category meanings:
- risk-budget: the client expresses budget or cost concerns
- risk-schedule: concerns about the timeline, deadlines, or delays
- risk-satisfaction: frustration, dissatisfaction, or quality complaints
- opportunity: interest in additional work, expansion, or a referral

For EACH flagged category, judge whether the signal is genuinely present in the
excerpt, as opposed to an incidental keyword match (e.g. "under budget" is not a
budget risk; "ahead of schedule" is not a schedule risk). Judge only the flagged
categories; do not add new ones.

Output ONLY valid JSON which complies with the schema given below. Do not include
any preamble, explanation, greeting, or acknowledgment. Start your response
directly with the opening brace { and end with the closing brace }. Your output
must exactly follow this schema:

%s

Rules:
- Include exactly one judgment per flagged category.
- "confirmed" is true only when the excerpt genuinely expresses the signal.
- "confidence" is your confidence in the judgment from 0.0 to 1.0.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.`

// buildClassifierPrompt renders the system prompt for a set of candidate categories.
func buildClassifierPrompt(candidates []ai.SignalCategory) string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = string(c)
	}
	return fmt.Sprintf(classifierPromptTemplate, strings.Join(names, ", "), classifierResponseSchema)
}

const rerankPromptTemplate = `You rank search results by relevance to a query.

Query: %s

Passages are numbered starting at 0. Output ONLY a JSON object of the form
{"order": [2, 0, 1]} listing EVERY passage index exactly once, most relevant
first. No extraneous text outside the object.`

// buildRerankPrompt renders the system prompt for a rerank request.
func buildRerankPrompt(query string) string {
	return fmt.Sprintf(rerankPromptTemplate, query)
}

// formatPassages numbers passages for the rerank user message.
func formatPassages(passages []string) string {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n\n", i, p)
	}
	return b.String()
}
