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
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/savaslabs/kb/ai"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/storage"
)

const (
	// DefaultDedupeWindow is the rolling window within which a second alert
	// for the same document and category is merged or dropped.
	DefaultDedupeWindow = 24 * time.Hour

	// DefaultMinConfidence gates classifier verdicts. A judgment below it
	// leaves the candidate unclassified, keeping the keyword score.
	DefaultMinConfidence float32 = 0.5

	// maxEvidence caps supporting chunks attached to one alert.
	maxEvidence = 3

	// excerptLen bounds the evidence excerpt taken from a chunk.
	excerptLen = 200
)

// verdict is the terminal state of one chunk-category candidate after both
// detection tiers have run.
type verdict int

const (
	verdictCandidate verdict = iota + 1 // keyword tier only, classifier off
	verdictConfirmed
	verdictRejected
	verdictUnclassified // classifier failed or was unsure
)

// candidate is one chunk flagged by the keyword tier for one category.
type candidate struct {
	chunk    *core.Chunk
	external bool
	score    float32
	verdict  verdict
}

// Detector scans document chunks for risk and opportunity signals and emits
// deduplicated alerts.
//
// Detection is two-tiered. The keyword tier matches compiled per-category
// rule sets and produces candidates with a score from pattern-match count and
// a boost when the speaker is an external participant. The optional classifier
// tier judges only those candidates; it never promotes a chunk the keyword
// tier passed over. A classifier failure leaves candidates unclassified and
// the keyword score stands.
type Detector struct {
	alerts        storage.AlertRepository
	classifier    ai.SignalClassifier
	rules         []ruleSet
	window        time.Duration
	minConfidence float32
	mergeOnDupe   bool
	logger        *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector) error

// WithClassifier enables the second detection tier.
// A nil classifier keeps detection keyword-only.
func WithClassifier(classifier ai.SignalClassifier) Option {
	return func(d *Detector) error {
		d.classifier = classifier
		return nil
	}
}

// WithDedupeWindow sets the rolling alert dedupe window.
// Default is DefaultDedupeWindow.
func WithDedupeWindow(window time.Duration) Option {
	return func(d *Detector) error {
		if window <= 0 {
			return ErrInvalidWindow
		}
		d.window = window
		return nil
	}
}

// WithMinConfidence sets the confidence gate for classifier verdicts.
func WithMinConfidence(min float32) Option {
	return func(d *Detector) error {
		d.minConfidence = min
		return nil
	}
}

// WithMergeOnDuplicate controls what happens when a new alert collides with
// an active one inside the window: merge appends the new evidence to the
// existing alert, otherwise the new alert is dropped.
// Default is merge.
func WithMergeOnDuplicate(merge bool) Option {
	return func(d *Detector) error {
		d.mergeOnDupe = merge
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// NewDetector creates a new signal detector.
func NewDetector(alerts storage.AlertRepository, opts ...Option) (*Detector, error) {
	if alerts == nil {
		return nil, ErrAlertsRequired
	}

	d := &Detector{
		alerts:        alerts,
		rules:         defaultRules,
		window:        DefaultDedupeWindow,
		minConfidence: DefaultMinConfidence,
		mergeOnDupe:   true,
		logger:        slog.Default().With("component", "signal"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Scan runs both detection tiers over the document's chunks and persists at
// most one alert per category, respecting the dedupe window. It returns the
// alerts that were newly created (not merged or dropped duplicates).
func (d *Detector) Scan(ctx context.Context, doc *core.Document, chunks []*core.Chunk) ([]*core.Alert, error) {
	external := externalSpeakers(doc)

	// Keyword tier: every chunk goes from unscanned to keyword-scanned and
	// either drops out or becomes a candidate per matched category.
	byCategory := make(map[core.AlertType][]*candidate)
	for _, chunk := range chunks {
		for _, rules := range d.rules {
			matches := rules.matchCount(chunk.Text)
			if matches == 0 {
				continue
			}
			c := &candidate{
				chunk:    chunk,
				external: external[chunk.Speaker],
				verdict:  verdictCandidate,
			}
			c.score = keywordScore(matches, c.external)
			byCategory[rules.alertType] = append(byCategory[rules.alertType], c)
		}
	}
	if len(byCategory) == 0 {
		return nil, nil
	}

	if d.classifier != nil {
		d.classify(ctx, byCategory)
	}

	var created []*core.Alert
	now := time.Now()
	for _, alertType := range core.AlertTypes() {
		cands := surviving(byCategory[alertType])
		if len(cands) == 0 {
			continue
		}
		alert := d.buildAlert(doc, alertType, cands, now)

		fresh, err := d.persist(ctx, alert, now)
		if err != nil {
			return created, err
		}
		if fresh {
			created = append(created, alert)
		}
	}
	return created, nil
}

// classify runs the second tier over every candidate chunk. Judgments below
// the confidence gate, and any classifier error, leave candidates
// unclassified with their keyword scores intact.
func (d *Detector) classify(ctx context.Context, byCategory map[core.AlertType][]*candidate) {
	// Regroup per chunk so each chunk is submitted once with all its
	// candidate categories.
	type chunkCands struct {
		text       string
		categories []core.AlertType
		cands      []*candidate
	}
	byChunk := make(map[core.ID]*chunkCands)
	for alertType, cands := range byCategory {
		for _, c := range cands {
			cc, ok := byChunk[c.chunk.Id]
			if !ok {
				cc = &chunkCands{text: c.chunk.Text}
				byChunk[c.chunk.Id] = cc
			}
			cc.categories = append(cc.categories, alertType)
			cc.cands = append(cc.cands, c)
		}
	}

	for _, cc := range byChunk {
		categories := make([]ai.SignalCategory, len(cc.categories))
		for i, t := range cc.categories {
			categories[i] = ai.SignalCategory(t.String())
		}

		judgments, err := d.classifier.ClassifySignals(ctx, cc.text, categories)
		if err != nil || len(judgments) != len(categories) {
			d.logger.Warn("classification failed, keeping keyword verdicts", "err", err)
			for _, c := range cc.cands {
				c.verdict = verdictUnclassified
			}
			continue
		}

		for i, j := range judgments {
			c := cc.cands[i]
			if j.Confidence < d.minConfidence {
				c.verdict = verdictUnclassified
				continue
			}
			if !j.Confirmed {
				c.verdict = verdictRejected
				continue
			}
			c.verdict = verdictConfirmed
			if j.Confidence > c.score {
				c.score = j.Confidence
			}
		}
	}
}

// buildAlert assembles one alert for a category from its surviving
// candidates, best-scoring chunk first.
func (d *Detector) buildAlert(doc *core.Document, alertType core.AlertType, cands []*candidate, now time.Time) *core.Alert {
	sortCandidates(cands)

	top := cands[0]
	evidence := make([]core.AlertEvidence, 0, maxEvidence)
	for i, c := range cands {
		if i == maxEvidence {
			break
		}
		evidence = append(evidence, core.AlertEvidence{
			ChunkID: c.chunk.Id,
			Excerpt: excerpt(c.chunk.Text),
			Speaker: c.chunk.Speaker,
		})
	}

	return &core.Alert{
		Id:         core.IDFromContent(uuid.NewString()),
		DocumentID: doc.Id,
		ChunkID:    top.chunk.Id,
		Type:       alertType,
		Score:      top.score,
		Status:     core.AlertStatusNew,
		CreatedAt:  now,
		DedupeKey:  core.AlertDedupeKey(doc.Id, alertType),
		Evidence:   evidence,
	}
}

// persist stores the alert unless an active one with the same dedupe key
// exists inside the window. On collision the new evidence is merged into the
// existing alert or dropped, per configuration. Returns whether a new alert
// record was created.
func (d *Detector) persist(ctx context.Context, alert *core.Alert, now time.Time) (bool, error) {
	existing, err := d.alerts.FindActiveByDedupeKey(ctx, alert.DedupeKey, now.Add(-d.window))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return false, err
		}
		if err := d.alerts.AddAlert(ctx, alert); err != nil {
			return false, err
		}
		d.logger.Info("alert created",
			"type", alert.Type.String(),
			"document_id", alert.DocumentID,
			"score", alert.Score)
		return true, nil
	}

	if !d.mergeOnDupe {
		d.logger.Debug("duplicate alert dropped",
			"type", alert.Type.String(),
			"document_id", alert.DocumentID)
		return false, nil
	}

	existing.Evidence = mergeEvidence(existing.Evidence, alert.Evidence)
	if alert.Score > existing.Score {
		existing.Score = alert.Score
		existing.ChunkID = alert.ChunkID
	}
	if err := d.alerts.UpdateAlert(ctx, existing); err != nil {
		return false, err
	}
	d.logger.Debug("duplicate alert merged",
		"type", alert.Type.String(),
		"document_id", alert.DocumentID)
	return false, nil
}

// keywordScore maps a pattern-match count to a base score, boosted when the
// speaker is an external participant.
func keywordScore(matches int, external bool) float32 {
	score := 0.3 + 0.15*float32(matches)
	if external {
		score += 0.15
	}
	if score > 0.95 {
		score = 0.95
	}
	return score
}

// surviving drops rejected candidates.
func surviving(cands []*candidate) []*candidate {
	kept := cands[:0]
	for _, c := range cands {
		if c.verdict != verdictRejected {
			kept = append(kept, c)
		}
	}
	return kept
}

// sortCandidates orders by score descending with chunk sequence as a
// deterministic tie-break.
func sortCandidates(cands []*candidate) {
	slices.SortFunc(cands, func(a, b *candidate) int {
		if a.score != b.score {
			if a.score > b.score {
				return -1
			}
			return 1
		}
		return a.chunk.SequenceIndex - b.chunk.SequenceIndex
	})
}

// externalSpeakers maps participant names with an external role.
func externalSpeakers(doc *core.Document) map[string]bool {
	external := make(map[string]bool)
	for _, p := range doc.Participants {
		if p.Role == core.RoleExternal {
			external[p.Name] = true
		}
	}
	return external
}

// excerpt truncates evidence text to excerptLen bytes on a rune boundary.
func excerpt(text string) string {
	if len(text) <= excerptLen {
		return text
	}
	cut := excerptLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func mergeEvidence(existing, incoming []core.AlertEvidence) []core.AlertEvidence {
	seen := make(map[core.ID]bool, len(existing))
	for _, e := range existing {
		seen[e.ChunkID] = true
	}
	for _, e := range incoming {
		if !seen[e.ChunkID] {
			existing = append(existing, e)
			seen[e.ChunkID] = true
		}
	}
	return existing
}
