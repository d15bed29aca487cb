package badger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/storage"
)

func makeTestAlert(docID core.ID, alertType core.AlertType, createdAt time.Time) *core.Alert {
	return &core.Alert{
		Id:         core.IDFromContent(fmt.Sprintf("%d|%s", docID, createdAt)),
		DocumentID: docID,
		ChunkID:    core.ChunkID(docID, 0),
		Type:       alertType,
		Score:      0.8,
		Status:     core.AlertStatusNew,
		CreatedAt:  createdAt,
		DedupeKey:  core.AlertDedupeKey(docID, alertType),
	}
}

func TestAlertAddGet(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()

	docID := core.DocumentID(core.SourceTranscript, "call-7")
	alert := makeTestAlert(docID, core.AlertRiskBudget, time.Now().UTC())
	if err := stores.Alerts.AddAlert(ctx, alert); err != nil {
		t.Fatalf("Failed to add alert: %v", err)
	}

	got, err := stores.Alerts.GetAlert(ctx, alert.Id)
	if err != nil {
		t.Fatalf("Failed to get alert: %v", err)
	}
	if got.Type != core.AlertRiskBudget {
		t.Errorf("Expected budget risk, got %s", got.Type)
	}
}

func TestAlertDedupeWindow(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()

	docID := core.DocumentID(core.SourceTranscript, "call-8")
	now := time.Now().UTC()

	stale := makeTestAlert(docID, core.AlertRiskSchedule, now.Add(-48*time.Hour))
	if err := stores.Alerts.AddAlert(ctx, stale); err != nil {
		t.Fatalf("Failed to add stale alert: %v", err)
	}

	// Outside the window nothing is active.
	key := core.AlertDedupeKey(docID, core.AlertRiskSchedule)
	_, err = stores.Alerts.FindActiveByDedupeKey(ctx, key, now.Add(-24*time.Hour))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound outside window, got %v", err)
	}

	recent := makeTestAlert(docID, core.AlertRiskSchedule, now.Add(-1*time.Hour))
	if err := stores.Alerts.AddAlert(ctx, recent); err != nil {
		t.Fatalf("Failed to add recent alert: %v", err)
	}

	found, err := stores.Alerts.FindActiveByDedupeKey(ctx, key, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Expected active alert in window: %v", err)
	}
	if found.Id != recent.Id {
		t.Errorf("Expected the recent alert, got %d", found.Id)
	}

	// A different category does not collide.
	otherKey := core.AlertDedupeKey(docID, core.AlertOpportunity)
	_, err = stores.Alerts.FindActiveByDedupeKey(ctx, otherKey, now.Add(-24*time.Hour))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other category, got %v", err)
	}
}

func TestAlertSuppressedExcludedFromWindow(t *testing.T) {
	stores, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer stores.Close()

	ctx := context.Background()

	docID := core.DocumentID(core.SourceChat, "thread-11")
	now := time.Now().UTC()

	alert := makeTestAlert(docID, core.AlertOpportunity, now.Add(-2*time.Hour))
	if err := stores.Alerts.AddAlert(ctx, alert); err != nil {
		t.Fatalf("Failed to add alert: %v", err)
	}

	alert.Status = core.AlertStatusSuppressed
	if err := stores.Alerts.UpdateAlert(ctx, alert); err != nil {
		t.Fatalf("Failed to update alert: %v", err)
	}

	key := core.AlertDedupeKey(docID, core.AlertOpportunity)
	_, err = stores.Alerts.FindActiveByDedupeKey(ctx, key, now.Add(-24*time.Hour))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected suppressed alert to be ignored, got %v", err)
	}
}
