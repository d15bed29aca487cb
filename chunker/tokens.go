package chunker

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates the token length of a piece of text.
type TokenCounter interface {
	Count(text string) int
}

const tokenEncoding = "cl100k_base"

// NewTokenCounter returns a tiktoken-backed counter, or the len/4 heuristic
// when the encoding cannot be initialized (first use downloads the BPE ranks).
func NewTokenCounter() TokenCounter {
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		slog.Default().Warn("tiktoken unavailable, falling back to length heuristic",
			"component", "chunker", "error", err)
		return heuristicCounter{}
	}
	return &tiktokenCounter{enc: enc}
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// heuristicCounter approximates one token per four characters, which tracks
// cl100k closely enough for batch budgeting on English text.
type heuristicCounter struct{}

func (heuristicCounter) Count(text string) int {
	return (len(text) + 3) / 4
}
