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


package chunker

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/savaslabs/kb/core"
)

const (
	// DefaultOverlapLen is the suffix length carried between adjacent
	// transcript chunks.
	DefaultOverlapLen = 200

	// DefaultTurnWindow groups transcript turns whose start times fall
	// within this span even when the speaker changes.
	DefaultTurnWindow = 150 * time.Second

	// maxPrefixLen caps the context prefix so it never eats the chunk body.
	maxPrefixLen = core.MaxChunkLen / 4
)

// Chunker splits document bodies into retrieval-sized chunks.
type Chunker struct {
	maxChunkLen int
	overlapLen  int
	turnWindow  time.Duration
	counter     TokenCounter
	logger      *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithMaxChunkLen overrides the chunk size bound.
// Default is core.MaxChunkLen.
func WithMaxChunkLen(n int) Option {
	return func(c *Chunker) error {
		if n < 1 || n > core.MaxChunkLen {
			return fmt.Errorf("%w: max chunk length %d", ErrInvalidOption, n)
		}
		c.maxChunkLen = n
		return nil
	}
}

// WithOverlap sets the overlap suffix length. Zero disables overlap.
// Default is DefaultOverlapLen.
func WithOverlap(n int) Option {
	return func(c *Chunker) error {
		if n < 0 {
			return fmt.Errorf("%w: overlap %d", ErrInvalidOption, n)
		}
		c.overlapLen = n
		return nil
	}
}

// WithTurnWindow sets the transcript grouping window.
// Default is DefaultTurnWindow.
func WithTurnWindow(d time.Duration) Option {
	return func(c *Chunker) error {
		if d <= 0 {
			return fmt.Errorf("%w: turn window %s", ErrInvalidOption, d)
		}
		c.turnWindow = d
		return nil
	}
}

// WithTokenCounter sets a custom token counter.
// Default is NewTokenCounter().
func WithTokenCounter(counter TokenCounter) Option {
	return func(c *Chunker) error {
		if counter == nil {
			return fmt.Errorf("%w: nil token counter", ErrInvalidOption)
		}
		c.counter = counter
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// New creates a new Chunker.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		maxChunkLen: core.MaxChunkLen,
		overlapLen:  DefaultOverlapLen,
		turnWindow:  DefaultTurnWindow,
		counter:     NewTokenCounter(),
		logger:      slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.overlapLen >= c.maxChunkLen {
		return nil, fmt.Errorf("%w: overlap %d must be under chunk length %d",
			ErrInvalidOption, c.overlapLen, c.maxChunkLen)
	}
	return c, nil
}

// piece is an indivisible packing unit: a formatted turn segment, a thread
// message, or a window of raw text.
type piece struct {
	text    string
	speaker string
	startMs int64
	endMs   int64
}

// Chunk splits a document body into ordered chunks. The strategy follows the
// populated body field: speaker turns, thread messages, or raw text. Malformed
// turn hints fall back to character windowing over whatever text is available.
// The result is never empty.
func (c *Chunker) Chunk(doc *core.Document, body core.DocumentBody) ([]*core.Chunk, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	prefix := contextPrefix(doc, body.ThreadID)
	budget := c.maxChunkLen - len(prefix)
	if budget < 1 {
		// A tiny configured bound leaves no room for the prefix.
		prefix = ""
		budget = c.maxChunkLen
	}

	switch {
	case len(body.Turns) > 0:
		if !turnsWellFormed(body.Turns) {
			c.logger.Warn("malformed turn hints, windowing raw text",
				"document", doc.ExternalID, "turns", len(body.Turns))
			return c.finish(doc, prefix, c.windowText(recoverRaw(body), budget)), nil
		}
		pieces := c.turnPieces(body.Turns, budget)
		return c.finish(doc, prefix, c.pack(pieces, budget, true)), nil
	case len(body.Messages) > 0:
		pieces := c.messagePieces(body.Messages, budget)
		return c.finish(doc, prefix, c.pack(pieces, budget, false)), nil
	default:
		// Raw windows are already budget-sized with overlap applied.
		return c.finish(doc, prefix, c.windowText(body.Raw, budget)), nil
	}
}

// turnPieces groups contiguous turns by speaker or time window into packing
// units. A group closes when the next turn both changes speaker and starts
// outside the window relative to the group's first turn.
func (c *Chunker) turnPieces(turns []core.Turn, budget int) []piece {
	windowMs := c.turnWindow.Milliseconds()
	var pieces []piece

	var segTurns []core.Turn
	flush := func() {
		if len(segTurns) == 0 {
			return
		}
		speaker := segTurns[0].Speaker
		texts := make([]string, 0, len(segTurns))
		for _, turn := range segTurns {
			if turn.Speaker != speaker {
				speaker = ""
			}
			texts = append(texts, strings.TrimSpace(turn.Text))
		}
		text := strings.Join(texts, " ")
		if speaker != "" {
			text = speaker + ": " + text
		}
		seg := piece{
			text:    text,
			speaker: speaker,
			startMs: segTurns[0].StartMs,
			endMs:   segTurns[len(segTurns)-1].EndMs,
		}
		// A single oversize group is split at character windows; the
		// attribution and offsets are shared across the splits.
		for _, part := range splitByLen(seg.text, budget) {
			pieces = append(pieces, piece{text: part, speaker: seg.speaker, startMs: seg.startMs, endMs: seg.endMs})
		}
		segTurns = segTurns[:0]
	}

	for _, turn := range turns {
		if len(segTurns) > 0 {
			sameSpeaker := turn.Speaker == segTurns[0].Speaker
			inWindow := turn.StartMs-segTurns[0].StartMs <= windowMs
			if !sameSpeaker && !inWindow {
				flush()
			}
		}
		segTurns = append(segTurns, turn)
	}
	flush()
	return pieces
}

// messagePieces turns thread messages into packing units, never splitting a
// message unless it alone exceeds the budget.
func (c *Chunker) messagePieces(messages []core.Message, budget int) []piece {
	var pieces []piece
	for _, msg := range messages {
		text := strings.TrimSpace(msg.Text)
		if msg.Author != "" {
			text = msg.Author + ": " + text
		}
		for _, part := range splitByLen(text, budget) {
			pieces = append(pieces, piece{text: part, speaker: msg.Author, startMs: msg.SentMs, endMs: msg.SentMs})
		}
	}
	return pieces
}

// windowText cuts raw text into fixed-size windows with overlap carry.
// Windows are measured in bytes and cut on rune boundaries so multibyte
// text never exceeds the budget. Offsets are byte positions into raw.
func (c *Chunker) windowText(raw string, budget int) []piece {
	if raw == "" {
		return nil
	}
	overlap := 0
	if c.overlapLen > 0 && c.overlapLen < budget {
		overlap = c.overlapLen
	}
	var pieces []piece
	for start := 0; start < len(raw); {
		end := start + budget
		if end >= len(raw) {
			end = len(raw)
		} else {
			for end > start && !isRuneStart(raw[end]) {
				end--
			}
			if end == start {
				// Budget smaller than one rune; take it whole.
				_, size := utf8.DecodeRuneInString(raw[start:])
				end = start + size
			}
		}
		pieces = append(pieces, piece{
			text:    raw[start:end],
			startMs: int64(start),
			endMs:   int64(end),
		})
		if end == len(raw) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		for next < len(raw) && !isRuneStart(raw[next]) {
			next++
		}
		start = next
	}
	return pieces
}

// pack joins pieces first-fit into chunk bodies within budget. With overlap
// enabled, each chunk after the first opens with the previous chunk's suffix.
func (c *Chunker) pack(pieces []piece, budget int, overlap bool) []piece {
	var packed []piece
	var cur piece
	var curParts []string

	emit := func() {
		if len(curParts) == 0 {
			return
		}
		cur.text = strings.Join(curParts, "\n")
		packed = append(packed, cur)
		curParts = nil
	}

	for _, p := range pieces {
		if len(curParts) > 0 {
			projected := len(strings.Join(curParts, "\n")) + 1 + len(p.text)
			if projected > budget {
				prev := strings.Join(curParts, "\n")
				emit()
				if overlap && c.overlapLen > 0 {
					carry := tail(prev, c.overlapLen)
					if len(carry)+1+len(p.text) <= budget {
						curParts = append(curParts, carry)
						cur = piece{speaker: p.speaker, startMs: p.startMs, endMs: p.endMs}
					}
				}
			}
		}
		if len(curParts) == 0 {
			cur = piece{speaker: p.speaker, startMs: p.startMs, endMs: p.endMs}
		} else if cur.speaker != p.speaker {
			cur.speaker = ""
		}
		curParts = append(curParts, p.text)
		cur.endMs = p.endMs
	}
	emit()
	return packed
}

// finish materializes packed bodies as validated chunk records. Degenerate
// input still yields exactly one chunk.
func (c *Chunker) finish(doc *core.Document, prefix string, packed []piece) []*core.Chunk {
	if len(packed) == 0 {
		packed = []piece{{text: ""}}
	}
	chunks := make([]*core.Chunk, 0, len(packed))
	for i, p := range packed {
		text := prefix + p.text
		if strings.TrimSpace(text) == "" {
			text = doc.ExternalID
		}
		chunks = append(chunks, &core.Chunk{
			Id:            core.ChunkID(doc.Id, i),
			DocumentID:    doc.Id,
			SequenceIndex: i,
			Text:          text,
			Speaker:       p.speaker,
			StartOffset:   p.startMs,
			EndOffset:     p.endMs,
			TokenCount:    c.counter.Count(text),
			ContentHash:   core.ContentHash(text),
		})
	}
	return chunks
}

// contextPrefix builds the retrieval context line every chunk opens with.
func contextPrefix(doc *core.Document, threadID string) string {
	var parts []string
	if t := strings.TrimSpace(doc.Title); t != "" {
		parts = append(parts, t)
	}
	if t := strings.TrimSpace(threadID); t != "" {
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		parts = append(parts, doc.Source.String()+" "+doc.ExternalID)
	}
	prefix := "[" + strings.Join(parts, " | ") + "]\n"
	if len(prefix) > maxPrefixLen {
		cut := maxPrefixLen - 2
		for cut > 0 && !isRuneStart(prefix[cut]) {
			cut--
		}
		prefix = prefix[:cut] + "]\n"
	}
	return prefix
}

// turnsWellFormed rejects negative or inverted offsets and out-of-order turns.
func turnsWellFormed(turns []core.Turn) bool {
	prevStart := int64(0)
	hasText := false
	for _, turn := range turns {
		if turn.StartMs < 0 || turn.EndMs < turn.StartMs {
			return false
		}
		if turn.StartMs < prevStart {
			return false
		}
		prevStart = turn.StartMs
		if strings.TrimSpace(turn.Text) != "" {
			hasText = true
		}
	}
	return hasText
}

// recoverRaw salvages text for the windowing fallback.
func recoverRaw(body core.DocumentBody) string {
	if body.Raw != "" {
		return body.Raw
	}
	texts := make([]string, 0, len(body.Turns))
	for _, turn := range body.Turns {
		if t := strings.TrimSpace(turn.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n")
}

// splitByLen cuts text into rune-boundary windows of at most n bytes each.
func splitByLen(text string, n int) []string {
	if len(text) <= n {
		return []string{text}
	}
	var parts []string
	var b strings.Builder
	for _, r := range text {
		if b.Len()+len(string(r)) > n {
			parts = append(parts, b.String())
			b.Reset()
		}
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts
}

// tail returns the trailing n bytes of text on a rune boundary.
func tail(text string, n int) string {
	if len(text) <= n {
		return text
	}
	cut := len(text) - n
	for cut < len(text) && !isRuneStart(text[cut]) {
		cut++
	}
	return text[cut:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
