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


package badger

// MemoryStores bundles in-memory repositories for testing.
// Caller must close Queue and Backend when done.
type MemoryStores struct {
	Index       *IndexRepository
	Alerts      *AlertRepository
	Queue       *JobQueue
	Dedupe      *DedupeCache
	Idempotency *IdempotencyStore
	Backend     *Backend
}

// NewMemoryStores creates in-memory repositories for testing.
func NewMemoryStores() (*MemoryStores, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	queue, err := NewJobQueue(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &MemoryStores{
		Index:       NewIndexRepository(backend),
		Alerts:      NewAlertRepository(backend),
		Queue:       queue,
		Dedupe:      NewDedupeCache(backend),
		Idempotency: NewIdempotencyStore(backend),
		Backend:     backend,
	}, nil
}

// Close closes the queue and the backend.
func (m *MemoryStores) Close() error {
	if err := m.Queue.Close(); err != nil {
		m.Backend.Close()
		return err
	}
	return m.Backend.Close()
}
