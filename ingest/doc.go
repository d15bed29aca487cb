// Package ingest orchestrates the ingestion side of the system.
//
// Intake and processing are decoupled by a durable queue. Pipeline.Submit
// validates raw source events, deduplicates them by source event id, and
// enqueues jobs; the Worker drains the queue with a bounded pool and runs
// each job through normalize, chunk, embed, index write, and signal scan.
//
// Failure handling follows the error taxonomy in core: validation and
// permanent provider errors dead-letter a job immediately, transient errors
// retry with exponential backoff up to a fixed attempt cap, and exhausted
// jobs land in the dead-letter area for manual inspection. Jobs sharing a
// document id never run concurrently; the index writer's atomic replace plus
// this serialization give the single-writer-per-document guarantee.
package ingest
