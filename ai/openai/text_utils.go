package openai

import "strings"

// stripCodeFences removes markdown code fences an LLM may wrap around JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// repairJSON attempts to fix common JSON formatting issues from LLM responses:
// trailing commas before a closing bracket or brace, which small local models
// emit frequently in JSON mode.
func repairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	inString := false
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if ch == '"' && (i == 0 || runes[i-1] != '\\') {
			inString = !inString
		}

		if ch == ',' && !inString {
			// Look ahead past whitespace for a closing bracket
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\n' || runes[j] == '\t' || runes[j] == '\r') {
				j++
			}
			if j < len(runes) && (runes[j] == ']' || runes[j] == '}') {
				continue // Drop the trailing comma
			}
		}

		b.WriteRune(ch)
	}

	return b.String()
}
