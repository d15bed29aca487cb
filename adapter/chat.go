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


package adapter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/savaslabs/kb/core"
)

// chatPayload is a chat-thread event: one channel thread with its ordered
// messages, as exported or delivered by the chat system.
type chatPayload struct {
	EventID      string               `json:"event_id"`
	Channel      string               `json:"channel"`
	ThreadTS     string               `json:"thread_ts"`
	Topic        string               `json:"topic"`
	Tags         []string             `json:"tags"`
	Participants []participantPayload `json:"participants"`
	Messages     []messagePayload     `json:"messages"`
}

type messagePayload struct {
	Author string `json:"author"`
	SentMs int64  `json:"sent_ms"`
	Text   string `json:"text"`
}

// ChatNormalizer converts chat-thread payloads into documents with
// message-structured bodies.
type ChatNormalizer struct{}

// NewChatNormalizer creates a chat normalizer.
func NewChatNormalizer() *ChatNormalizer {
	return &ChatNormalizer{}
}

// Source identifies the chat source.
func (n *ChatNormalizer) Source() core.Source {
	return core.SourceChat
}

// Normalize parses a chat-thread payload. The external id is the channel plus
// thread timestamp so re-delivery of a grown thread replaces the same document.
func (n *ChatNormalizer) Normalize(raw []byte) (*core.Document, core.DocumentBody, string, error) {
	var payload chatPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, core.DocumentBody{}, "", fmt.Errorf("%w: malformed chat payload: %v", core.ErrValidation, err)
	}
	if payload.Channel == "" || payload.ThreadTS == "" {
		return nil, core.DocumentBody{}, "", fmt.Errorf("%w: chat payload missing channel or thread_ts", core.ErrValidation)
	}
	if payload.EventID == "" {
		return nil, core.DocumentBody{}, "", fmt.Errorf("%w: chat payload missing event_id", core.ErrValidation)
	}
	if len(payload.Messages) == 0 {
		return nil, core.DocumentBody{}, "", fmt.Errorf("%w: chat payload has no messages", core.ErrValidation)
	}

	externalID := payload.Channel + ":" + payload.ThreadTS

	title := payload.Topic
	if title == "" {
		title = "#" + payload.Channel
	}

	doc := &core.Document{
		Id:           core.DocumentID(core.SourceChat, externalID),
		Source:       core.SourceChat,
		ExternalID:   externalID,
		Title:        title,
		CreatedAt:    time.UnixMilli(payload.Messages[0].SentMs),
		UpdatedAt:    time.UnixMilli(payload.Messages[len(payload.Messages)-1].SentMs),
		Tags:         payload.Tags,
		Participants: parseParticipants(payload.Participants),
	}

	body := core.DocumentBody{
		ThreadID: "#" + payload.Channel,
		Messages: make([]core.Message, len(payload.Messages)),
	}
	for i, m := range payload.Messages {
		body.Messages[i] = core.Message{
			Author: m.Author,
			SentMs: m.SentMs,
			Text:   m.Text,
		}
	}

	if err := core.ValidateDocument(doc); err != nil {
		return nil, core.DocumentBody{}, "", err
	}
	return doc, body, payload.EventID, nil
}
