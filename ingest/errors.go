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


package ingest

import "errors"

var (
	// ErrRegistryRequired is returned when no adapter registry is provided.
	ErrRegistryRequired = errors.New("adapter registry required")

	// ErrQueueRequired is returned when no job queue is provided.
	ErrQueueRequired = errors.New("job queue required")

	// ErrIdempotencyRequired is returned when no idempotency store is provided.
	ErrIdempotencyRequired = errors.New("idempotency store required")

	// ErrIndexRequired is returned when no index repository is provided.
	ErrIndexRequired = errors.New("index repository required")

	// ErrChunkerRequired is returned when no chunker is provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrBatcherRequired is returned when no embedding batcher is provided.
	ErrBatcherRequired = errors.New("embedding batcher required")

	// ErrDetectorRequired is returned when no signal detector is provided.
	ErrDetectorRequired = errors.New("signal detector required")

	// ErrInvalidOption is returned for out-of-range option values.
	ErrInvalidOption = errors.New("invalid option")

	// ErrAlreadyRunning is returned when Start is called on a running worker.
	ErrAlreadyRunning = errors.New("worker already running")
)
