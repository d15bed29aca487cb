package embed

import "time"

// Telemetry receives callbacks as embedding batches complete or fail.
// Implementations must be fast; they run inline in the batching loop.
type Telemetry interface {
	// BatchCompleted fires after a batch of texts was embedded successfully.
	BatchCompleted(chunks, tokens int, latency time.Duration, attempts int)

	// BatchExhausted fires when a batch used up its retry budget and its
	// chunks were left pending-embedding.
	BatchExhausted(chunks int, err error)
}

// noopTelemetry is used when no telemetry is provided.
type noopTelemetry struct{}

func (noopTelemetry) BatchCompleted(chunks, tokens int, latency time.Duration, attempts int) {}
func (noopTelemetry) BatchExhausted(chunks int, err error)                                   {}
