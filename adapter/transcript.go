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

// transcriptPayload is the call-completed event shape delivered by the
// meeting-recorder webhook.
type transcriptPayload struct {
	EventID      string               `json:"event_id"`
	CallID       string               `json:"call_id"`
	Title        string               `json:"title"`
	StartedAt    time.Time            `json:"started_at"`
	EndedAt      time.Time            `json:"ended_at"`
	Tags         []string             `json:"tags"`
	Participants []participantPayload `json:"participants"`
	Segments     []segmentPayload     `json:"segments"`
}

type participantPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"` // "internal" or "external"
}

type segmentPayload struct {
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// TranscriptNormalizer converts meeting-transcript webhook payloads into
// documents with turn-structured bodies.
type TranscriptNormalizer struct{}

// NewTranscriptNormalizer creates a transcript normalizer.
func NewTranscriptNormalizer() *TranscriptNormalizer {
	return &TranscriptNormalizer{}
}

// Source identifies the transcript source.
func (n *TranscriptNormalizer) Source() core.Source {
	return core.SourceTranscript
}

// Normalize parses a call-completed payload.
func (n *TranscriptNormalizer) Normalize(raw []byte) (*core.Document, core.DocumentBody, string, error) {
	var payload transcriptPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, core.DocumentBody{}, "", fmt.Errorf("%w: malformed transcript payload: %v", core.ErrValidation, err)
	}
	if payload.CallID == "" {
		return nil, core.DocumentBody{}, "", fmt.Errorf("%w: transcript payload missing call_id", core.ErrValidation)
	}
	if payload.EventID == "" {
		return nil, core.DocumentBody{}, "", fmt.Errorf("%w: transcript payload missing event_id", core.ErrValidation)
	}
	if len(payload.Segments) == 0 {
		return nil, core.DocumentBody{}, "", fmt.Errorf("%w: transcript payload has no segments", core.ErrValidation)
	}

	createdAt := payload.StartedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	doc := &core.Document{
		Id:           core.DocumentID(core.SourceTranscript, payload.CallID),
		Source:       core.SourceTranscript,
		ExternalID:   payload.CallID,
		Title:        payload.Title,
		CreatedAt:    createdAt,
		UpdatedAt:    payload.EndedAt,
		Tags:         payload.Tags,
		Participants: parseParticipants(payload.Participants),
	}

	body := core.DocumentBody{
		ThreadID: payload.CallID,
		Turns:    make([]core.Turn, len(payload.Segments)),
	}
	for i, seg := range payload.Segments {
		body.Turns[i] = core.Turn{
			Speaker: seg.Speaker,
			StartMs: seg.StartMs,
			EndMs:   seg.EndMs,
			Text:    seg.Text,
		}
	}

	if err := core.ValidateDocument(doc); err != nil {
		return nil, core.DocumentBody{}, "", err
	}
	return doc, body, payload.EventID, nil
}

func parseParticipants(payloads []participantPayload) []core.Participant {
	if len(payloads) == 0 {
		return nil
	}
	participants := make([]core.Participant, len(payloads))
	for i, p := range payloads {
		role := core.RoleInternal
		if p.Role == "external" {
			role = core.RoleExternal
		}
		participants[i] = core.Participant{
			Name:  p.Name,
			Email: p.Email,
			Role:  role,
		}
	}
	return participants
}
