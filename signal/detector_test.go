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


package signal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savaslabs/kb/ai"
	"github.com/savaslabs/kb/ai/mock"
	"github.com/savaslabs/kb/core"
	badgerstore "github.com/savaslabs/kb/storage/badger"
)

func newTestDetector(t *testing.T, opts ...Option) (*Detector, *badgerstore.MemoryStores) {
	t.Helper()

	stores, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	detector, err := NewDetector(stores.Alerts, opts...)
	require.NoError(t, err)
	return detector, stores
}

func makeDoc(externalID string, participants ...core.Participant) *core.Document {
	return &core.Document{
		Id:           core.DocumentID(core.SourceTranscript, externalID),
		Source:       core.SourceTranscript,
		ExternalID:   externalID,
		Title:        "Weekly sync",
		CreatedAt:    time.Now().Add(-time.Hour),
		Participants: participants,
	}
}

func makeChunk(doc *core.Document, seq int, speaker, text string) *core.Chunk {
	return &core.Chunk{
		Id:            core.ChunkID(doc.Id, seq),
		DocumentID:    doc.Id,
		SequenceIndex: seq,
		Speaker:       speaker,
		Text:          text,
		ContentHash:   core.ContentHash(text),
	}
}

func TestNewDetectorRequiresAlertRepository(t *testing.T) {
	_, err := NewDetector(nil)
	assert.ErrorIs(t, err, ErrAlertsRequired)
}

func TestScanEmitsAlertPerMatchedCategory(t *testing.T) {
	detector, _ := newTestDetector(t)

	doc := makeDoc("call-1")
	chunks := []*core.Chunk{
		makeChunk(doc, 0, "Dana", "We are over budget on this phase and the cost overrun keeps growing."),
		makeChunk(doc, 1, "Dana", "Also the launch got pushed back again, we are behind schedule."),
		makeChunk(doc, 2, "Dana", "Nothing remarkable in the closing remarks."),
	}

	alerts, err := detector.Scan(context.Background(), doc, chunks)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	types := map[core.AlertType]bool{}
	for _, a := range alerts {
		types[a.Type] = true
		assert.Equal(t, doc.Id, a.DocumentID)
		assert.Equal(t, core.AlertStatusNew, a.Status)
		assert.Greater(t, a.Score, float32(0))
		assert.NotEmpty(t, a.Evidence)
	}
	assert.True(t, types[core.AlertRiskBudget])
	assert.True(t, types[core.AlertRiskSchedule])
}

func TestScanEvidenceExcerptKeepsValidUTF8(t *testing.T) {
	detector, _ := newTestDetector(t)

	doc := makeDoc("call-7")
	// The 33-byte lead puts every two-byte rune on an odd offset, so a
	// naive byte cut at the excerpt bound lands inside a rune.
	text := "We are over budget on this phase." + strings.Repeat("é", excerptLen)
	chunks := []*core.Chunk{makeChunk(doc, 0, "Dana", text)}

	alerts, err := detector.Scan(context.Background(), doc, chunks)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.NotEmpty(t, alerts[0].Evidence)

	got := alerts[0].Evidence[0].Excerpt
	assert.True(t, utf8.ValidString(got), "excerpt must be valid UTF-8, got %q", got)
	assert.LessOrEqual(t, len(got), excerptLen+len("..."))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestScanWordBoundaryAvoidsPartialMatches(t *testing.T) {
	detector, _ := newTestDetector(t)

	doc := makeDoc("call-2")
	chunks := []*core.Chunk{
		// "budgetary" must not trigger the budget rules.
		makeChunk(doc, 0, "Sam", "The budgetary framework overview was well received."),
	}

	alerts, err := detector.Scan(context.Background(), doc, chunks)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestScanBoostsExternalSpeaker(t *testing.T) {
	detector, _ := newTestDetector(t)
	ctx := context.Background()

	text := "Honestly we are frustrated with the pace."

	internal := makeDoc("internal-call", core.Participant{Name: "Pat", Role: core.RoleInternal})
	internalAlerts, err := detector.Scan(ctx, internal, []*core.Chunk{makeChunk(internal, 0, "Pat", text)})
	require.NoError(t, err)
	require.Len(t, internalAlerts, 1)

	external := makeDoc("client-call", core.Participant{Name: "Pat", Role: core.RoleExternal})
	externalAlerts, err := detector.Scan(ctx, external, []*core.Chunk{makeChunk(external, 0, "Pat", text)})
	require.NoError(t, err)
	require.Len(t, externalAlerts, 1)

	assert.Greater(t, externalAlerts[0].Score, internalAlerts[0].Score)
}

func TestScanClassifierRejectsCandidate(t *testing.T) {
	classifier := mock.NewMockSignalClassifier()
	classifier.ClassifySignalsFunc = func(ctx context.Context, text string, candidates []ai.SignalCategory) ([]ai.SignalJudgment, error) {
		judgments := make([]ai.SignalJudgment, len(candidates))
		for i, c := range candidates {
			judgments[i] = ai.SignalJudgment{Category: c, Confirmed: false, Confidence: 0.95}
		}
		return judgments, nil
	}

	detector, _ := newTestDetector(t, WithClassifier(classifier))

	doc := makeDoc("call-3")
	chunks := []*core.Chunk{
		makeChunk(doc, 0, "Sam", "The delayed shipment of office chairs is fine."),
	}

	alerts, err := detector.Scan(context.Background(), doc, chunks)
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, 1, classifier.CallCount())
}

func TestScanClassifierConfirmationRaisesScore(t *testing.T) {
	classifier := mock.NewMockSignalClassifier()
	classifier.ClassifySignalsFunc = func(ctx context.Context, text string, candidates []ai.SignalCategory) ([]ai.SignalJudgment, error) {
		judgments := make([]ai.SignalJudgment, len(candidates))
		for i, c := range candidates {
			judgments[i] = ai.SignalJudgment{Category: c, Confirmed: true, Confidence: 0.99}
		}
		return judgments, nil
	}

	detector, _ := newTestDetector(t, WithClassifier(classifier))

	doc := makeDoc("call-4")
	chunks := []*core.Chunk{
		makeChunk(doc, 0, "Sam", "We are concerned about the quality issues."),
	}

	alerts, err := detector.Scan(context.Background(), doc, chunks)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, float32(0.99), alerts[0].Score)
}

func TestScanClassifierFailureKeepsKeywordVerdict(t *testing.T) {
	classifier := mock.NewMockSignalClassifier()
	classifier.ClassifySignalsFunc = func(ctx context.Context, text string, candidates []ai.SignalCategory) ([]ai.SignalJudgment, error) {
		return nil, errors.New("classifier down")
	}

	detector, _ := newTestDetector(t, WithClassifier(classifier))

	doc := makeDoc("call-5")
	chunks := []*core.Chunk{
		makeChunk(doc, 0, "Sam", "Client mentioned a follow-up project and maybe another project next year."),
	}

	alerts, err := detector.Scan(context.Background(), doc, chunks)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, core.AlertOpportunity, alerts[0].Type)
}

func TestScanLowConfidenceLeavesUnclassified(t *testing.T) {
	classifier := mock.NewMockSignalClassifier()
	classifier.ClassifySignalsFunc = func(ctx context.Context, text string, candidates []ai.SignalCategory) ([]ai.SignalJudgment, error) {
		judgments := make([]ai.SignalJudgment, len(candidates))
		for i, c := range candidates {
			// Confident enough to matter it is not, so the keyword score stands.
			judgments[i] = ai.SignalJudgment{Category: c, Confirmed: false, Confidence: 0.2}
		}
		return judgments, nil
	}

	detector, _ := newTestDetector(t, WithClassifier(classifier))

	doc := makeDoc("call-6")
	chunks := []*core.Chunk{
		makeChunk(doc, 0, "Sam", "We are unhappy with the rework this sprint required."),
	}

	alerts, err := detector.Scan(context.Background(), doc, chunks)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, core.AlertRiskSatisfaction, alerts[0].Type)
}

func TestScanDedupesWithinWindowByMerging(t *testing.T) {
	detector, stores := newTestDetector(t)
	ctx := context.Background()

	doc := makeDoc("call-7")
	first := []*core.Chunk{
		makeChunk(doc, 0, "Sam", "We are over budget again."),
	}
	second := []*core.Chunk{
		makeChunk(doc, 1, "Sam", "The cost overrun is worse than projected, budget issue for sure."),
	}

	created, err := detector.Scan(ctx, doc, first)
	require.NoError(t, err)
	require.Len(t, created, 1)
	alertID := created[0].Id

	// Same document, same category, inside the window: merged, not re-created.
	created, err = detector.Scan(ctx, doc, second)
	require.NoError(t, err)
	assert.Empty(t, created)

	merged, err := stores.Alerts.GetAlert(ctx, alertID)
	require.NoError(t, err)
	assert.Len(t, merged.Evidence, 2)

	// The stronger second chunk takes over as the top evidence.
	assert.Equal(t, core.ChunkID(doc.Id, 1), merged.ChunkID)
}

func TestScanDedupeDropModeDiscardsDuplicate(t *testing.T) {
	detector, stores := newTestDetector(t, WithMergeOnDuplicate(false))
	ctx := context.Background()

	doc := makeDoc("call-8")
	first := makeChunk(doc, 0, "Sam", "Deployment is behind schedule.")
	second := makeChunk(doc, 1, "Sam", "Still delayed, the deadline slip continues.")

	created, err := detector.Scan(ctx, doc, []*core.Chunk{first})
	require.NoError(t, err)
	require.Len(t, created, 1)
	alertID := created[0].Id

	created, err = detector.Scan(ctx, doc, []*core.Chunk{second})
	require.NoError(t, err)
	assert.Empty(t, created)

	// Drop mode leaves the stored alert untouched.
	stored, err := stores.Alerts.GetAlert(ctx, alertID)
	require.NoError(t, err)
	assert.Len(t, stored.Evidence, 1)
	assert.Equal(t, first.Id, stored.ChunkID)
}
