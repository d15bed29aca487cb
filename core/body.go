package core

// Turn is one speaker turn of a transcript, with millisecond offsets into the
// recording.
type Turn struct {
	Speaker string
	StartMs int64
	EndMs   int64
	Text    string
}

// Message is one message of a chat thread.
type Message struct {
	Author string
	SentMs int64
	Text   string
}

// DocumentBody is the structured content of a document as delivered by a
// source adapter. Exactly one of Turns, Messages, or Raw is expected to be
// populated; the chunker picks its strategy from which one is. It is never
// persisted, only the chunks derived from it are.
type DocumentBody struct {
	Turns    []Turn
	Messages []Message
	Raw      string

	// ThreadID names the channel, thread, or recording the body came from
	// and is folded into each chunk's context prefix.
	ThreadID string
}
