package core

import (
	"strings"
	"unicode"
)

// Tokenize splits text into lowercase alphanumeric terms. Punctuation and
// whitespace are separators. Both the lexical index scan and query
// normalization use this so stored text and queries agree on term boundaries.
func Tokenize(text string) []string {
	var terms []string
	var b strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if b.Len() > 0 {
			terms = append(terms, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		terms = append(terms, b.String())
	}
	return terms
}

// TermFrequencies counts each term's occurrences in text.
func TermFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, term := range Tokenize(text) {
		freq[term]++
	}
	return freq
}
