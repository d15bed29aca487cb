package chunker

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/savaslabs/kb/core"
)

// stubCounter keeps tests off the network that tiktoken's encoding init uses.
type stubCounter struct{}

func (stubCounter) Count(text string) int { return (len(text) + 3) / 4 }

func newTestChunker(t *testing.T, opts ...Option) *Chunker {
	t.Helper()
	opts = append([]Option{WithTokenCounter(stubCounter{})}, opts...)
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("Failed to create chunker: %v", err)
	}
	return c
}

func testDocument(source core.Source, externalID, title string) *core.Document {
	return &core.Document{
		Id:         core.DocumentID(source, externalID),
		Source:     source,
		ExternalID: externalID,
		Title:      title,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestTranscriptSameSpeakerGrouping(t *testing.T) {
	c := newTestChunker(t)
	doc := testDocument(core.SourceTranscript, "meeting-1", "Sprint review")

	body := core.DocumentBody{
		ThreadID: "rec-1",
		Turns: []core.Turn{
			{Speaker: "Alice", StartMs: 0, EndMs: 4000, Text: "We reviewed the budget."},
			{Speaker: "Alice", StartMs: 4000, EndMs: 9000, Text: "It still looks tight."},
			{Speaker: "Bob", StartMs: 400000, EndMs: 410000, Text: "Timeline is fine though."},
		},
	}

	chunks, err := c.Chunk(doc, body)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk for a short transcript, got %d", len(chunks))
	}
	text := chunks[0].Text
	if !strings.Contains(text, "Alice: We reviewed the budget. It still looks tight.") {
		t.Errorf("Expected merged same-speaker turns, got %q", text)
	}
	if !strings.Contains(text, "Bob: Timeline is fine though.") {
		t.Errorf("Expected Bob's turn, got %q", text)
	}
	// Mixed speakers in one chunk means no single attribution.
	if chunks[0].Speaker != "" {
		t.Errorf("Expected empty speaker for mixed chunk, got %q", chunks[0].Speaker)
	}
	if chunks[0].StartOffset != 0 || chunks[0].EndOffset != 410000 {
		t.Errorf("Unexpected offsets %d-%d", chunks[0].StartOffset, chunks[0].EndOffset)
	}
}

func TestTranscriptTimeWindowGrouping(t *testing.T) {
	c := newTestChunker(t)
	doc := testDocument(core.SourceTranscript, "meeting-2", "Standup")

	// Different speakers inside 150s stay in one group.
	body := core.DocumentBody{
		Turns: []core.Turn{
			{Speaker: "Alice", StartMs: 0, EndMs: 5000, Text: "Quick update."},
			{Speaker: "Bob", StartMs: 10000, EndMs: 15000, Text: "Same here."},
		},
	}

	chunks, err := c.Chunk(doc, body)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "Quick update. Same here.") {
		t.Errorf("Expected window-grouped turns joined, got %q", chunks[0].Text)
	}
}

func TestTranscriptOverlapCarry(t *testing.T) {
	c := newTestChunker(t, WithMaxChunkLen(300), WithOverlap(40))
	doc := testDocument(core.SourceTranscript, "meeting-3", "Long call")

	var turns []core.Turn
	for i := 0; i < 12; i++ {
		speaker := "Alice"
		if i%2 == 1 {
			speaker = "Bob"
		}
		turns = append(turns, core.Turn{
			Speaker: speaker,
			StartMs: int64(i) * 200000,
			EndMs:   int64(i)*200000 + 100000,
			Text:    fmt.Sprintf("Turn number %d carries enough words to force chunk boundaries.", i),
		})
	}

	chunks, err := c.Chunk(doc, core.DocumentBody{Turns: turns})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	prefix := "[Long call]\n"
	for i := 1; i < len(chunks); i++ {
		prevBody := strings.TrimPrefix(chunks[i-1].Text, prefix)
		curBody := strings.TrimPrefix(chunks[i].Text, prefix)
		carry := prevBody
		if len(carry) > 40 {
			carry = carry[len(carry)-40:]
		}
		if !strings.HasPrefix(curBody, carry) {
			t.Errorf("Chunk %d does not open with the previous suffix.\nwant prefix %q\ngot %q", i, carry, curBody[:min(len(curBody), 60)])
		}
	}
	for i, chunk := range chunks {
		if len(chunk.Text) > 300 {
			t.Errorf("Chunk %d exceeds bound: %d chars", i, len(chunk.Text))
		}
	}
}

func TestThreadSingleChunk(t *testing.T) {
	c := newTestChunker(t)
	doc := testDocument(core.SourceChat, "thread-1", "Deploy question")

	body := core.DocumentBody{
		ThreadID: "C042/17123",
		Messages: []core.Message{
			{Author: "carol", SentMs: 1000, Text: "Can we deploy today?"},
			{Author: "dave", SentMs: 2000, Text: "After the migration finishes."},
		},
	}

	chunks, err := c.Chunk(doc, body)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected whole thread in one chunk, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Text, "[Deploy question | C042/17123]\n") {
		t.Errorf("Expected context prefix, got %q", chunks[0].Text[:min(len(chunks[0].Text), 40)])
	}
}

func TestThreadSplitsAtMessageBoundaries(t *testing.T) {
	c := newTestChunker(t, WithMaxChunkLen(400))
	doc := testDocument(core.SourceChat, "thread-2", "Incident channel")

	var messages []core.Message
	for i := 0; i < 120; i++ {
		messages = append(messages, core.Message{
			Author: fmt.Sprintf("user%d", i%5),
			SentMs: int64(i) * 1000,
			Text:   fmt.Sprintf("Message %03d about the deployment incident.", i),
		})
	}

	chunks, err := c.Chunk(doc, core.DocumentBody{Messages: messages})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Expected the long thread to split, got %d chunks", len(chunks))
	}

	joined := ""
	for i, chunk := range chunks {
		if len(chunk.Text) > 400 {
			t.Errorf("Chunk %d exceeds bound: %d chars", i, len(chunk.Text))
		}
		if chunk.SequenceIndex != i {
			t.Errorf("Chunk %d has sequence index %d", i, chunk.SequenceIndex)
		}
		joined += chunk.Text
	}
	// No message may be cut in half across a boundary.
	for i := 0; i < 120; i++ {
		msg := fmt.Sprintf("Message %03d about the deployment incident.", i)
		if !strings.Contains(joined, msg) {
			t.Errorf("Message %d was split across chunks", i)
		}
	}
}

func TestDegenerateInputs(t *testing.T) {
	c := newTestChunker(t)

	tests := []struct {
		name string
		body core.DocumentBody
	}{
		{"empty body", core.DocumentBody{}},
		{"single message", core.DocumentBody{Messages: []core.Message{{Author: "eve", Text: "ping"}}}},
		{"raw only", core.DocumentBody{Raw: "a single note"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDocument(core.SourceFileStore, "file-1", "Notes")
			chunks, err := c.Chunk(doc, tt.body)
			if err != nil {
				t.Fatalf("Chunk failed: %v", err)
			}
			if len(chunks) != 1 {
				t.Fatalf("Expected exactly 1 chunk, got %d", len(chunks))
			}
			if chunks[0].Text == "" {
				t.Error("Expected non-empty chunk text")
			}
			if err := core.ValidateChunk(chunks[0]); err != nil {
				t.Errorf("Degenerate chunk fails validation: %v", err)
			}
		})
	}
}

func TestMalformedTurnsFallBackToWindowing(t *testing.T) {
	c := newTestChunker(t, WithMaxChunkLen(100), WithOverlap(0))
	doc := testDocument(core.SourceTranscript, "meeting-4", "Broken export")

	raw := strings.Repeat("recovered transcript text ", 20)
	body := core.DocumentBody{
		Raw: raw,
		Turns: []core.Turn{
			{Speaker: "Alice", StartMs: 5000, EndMs: 1000, Text: "inverted offsets"},
		},
	}

	chunks, err := c.Chunk(doc, body)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Expected windowed fallback chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if strings.Contains(chunk.Text, "inverted offsets") {
			t.Error("Malformed turn text leaked into fallback output")
		}
	}
}

func TestWindowingMultibyteStaysWithinBound(t *testing.T) {
	c := newTestChunker(t)
	doc := testDocument(core.SourceFileStore, "file-2", "Notes accentuées")

	// 3000 two-byte runes: 6000 bytes, well past the default bound.
	body := core.DocumentBody{Raw: strings.Repeat("é", 3000)}

	chunks, err := c.Chunk(doc, body)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple windows for oversize text, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk.Text) > core.MaxChunkLen {
			t.Errorf("Chunk %d is %d bytes, exceeds bound %d", i, len(chunk.Text), core.MaxChunkLen)
		}
		if !utf8.ValidString(chunk.Text) {
			t.Errorf("Chunk %d contains invalid UTF-8", i)
		}
		if err := core.ValidateChunk(chunk); err != nil {
			t.Errorf("Chunk %d fails validation: %v", i, err)
		}
	}
}

func TestWindowingMultibyteCoversAllText(t *testing.T) {
	c := newTestChunker(t, WithMaxChunkLen(100), WithOverlap(10))
	doc := testDocument(core.SourceFileStore, "file-3", "")

	raw := strings.Repeat("žluťoučký kůň ", 30)
	chunks, err := c.Chunk(doc, core.DocumentBody{Raw: raw})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	// Windows advance by budget minus overlap, so stripping each chunk's
	// prefix and joining them must contain every rune of the input.
	total := 0
	for _, chunk := range chunks {
		if len(chunk.Text) > 100 {
			t.Errorf("Chunk is %d bytes, exceeds configured bound", len(chunk.Text))
		}
		if !utf8.ValidString(chunk.Text) {
			t.Error("Chunk contains invalid UTF-8")
		}
		total += len(chunk.Text)
	}
	if total < len(raw) {
		t.Errorf("Windows cover %d bytes of %d input bytes", total, len(raw))
	}
}

func TestMultibyteTitlePrefixStaysWithinBound(t *testing.T) {
	c := newTestChunker(t)
	doc := testDocument(core.SourceFileStore, "file-4", strings.Repeat("ü", 600))

	chunks, err := c.Chunk(doc, core.DocumentBody{Raw: "short note"})
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	for _, chunk := range chunks {
		if !utf8.ValidString(chunk.Text) {
			t.Error("Prefix truncation produced invalid UTF-8")
		}
		if err := core.ValidateChunk(chunk); err != nil {
			t.Errorf("Chunk fails validation: %v", err)
		}
	}
}

func TestChunkIdentityIsDeterministic(t *testing.T) {
	c := newTestChunker(t)
	doc := testDocument(core.SourceChat, "thread-3", "Repeatable")
	body := core.DocumentBody{Messages: []core.Message{{Author: "frank", Text: "same input"}}}

	first, err := c.Chunk(doc, body)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	second, err := c.Chunk(doc, body)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if first[0].Id != second[0].Id || first[0].ContentHash != second[0].ContentHash {
		t.Error("Expected identical IDs and hashes for identical input")
	}
	if first[0].Id != core.ChunkID(doc.Id, 0) {
		t.Error("Chunk ID must derive from document ID and sequence index")
	}
}
