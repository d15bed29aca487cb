package search

import "github.com/savaslabs/kb/core"

// Stop words to drop during query normalization
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "we": true, "our": true, "about": true,
}

// normalizeQuery lowercases, tokenizes, and strips stop words. A query made
// entirely of stop words keeps its raw tokens so it still matches something.
func normalizeQuery(text string) []string {
	tokens := core.Tokenize(text)
	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !stopWords[token] {
			filtered = append(filtered, token)
		}
	}
	if len(filtered) == 0 {
		return tokens
	}
	return filtered
}
