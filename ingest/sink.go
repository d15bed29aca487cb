package ingest

import (
	"context"
	"log/slog"

	"github.com/savaslabs/kb/core"
)

// AlertSink receives alerts detected during ingestion. Delivery failures are
// treated like any other stage failure: the job is retried with backoff, and
// the detector's dedupe window keeps retries from duplicating alerts.
type AlertSink interface {
	Deliver(ctx context.Context, alert *core.Alert) error
}

// LogSink is the default sink; it writes alerts to the log. Deployments wire
// a real notification sink in its place.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs deliveries.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Deliver logs the alert.
func (s *LogSink) Deliver(_ context.Context, alert *core.Alert) error {
	s.logger.Info("alert",
		"type", alert.Type.String(),
		"document_id", alert.DocumentID,
		"score", alert.Score,
		"evidence", len(alert.Evidence))
	return nil
}
