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


package storage

import (
	"github.com/savaslabs/kb/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	var id core.ID
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, core.DocumentMUS.Size(*doc))
	core.DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := core.DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalEmbedding serializes an Embedding to bytes.
func MarshalEmbedding(emb *core.Embedding) []byte {
	buf := make([]byte, core.EmbeddingMUS.Size(*emb))
	core.EmbeddingMUS.Marshal(*emb, buf)
	return buf
}

// UnmarshalEmbedding deserializes an Embedding from bytes.
func UnmarshalEmbedding(data []byte) (*core.Embedding, error) {
	emb, _, err := core.EmbeddingMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &emb, nil
}

// MarshalAccessEntry serializes an AccessEntry to bytes.
func MarshalAccessEntry(entry *core.AccessEntry) []byte {
	buf := make([]byte, core.AccessEntryMUS.Size(*entry))
	core.AccessEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalAccessEntry deserializes an AccessEntry from bytes.
func UnmarshalAccessEntry(data []byte) (*core.AccessEntry, error) {
	entry, _, err := core.AccessEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarshalAlert serializes an Alert to bytes.
func MarshalAlert(alert *core.Alert) []byte {
	buf := make([]byte, core.AlertMUS.Size(*alert))
	core.AlertMUS.Marshal(*alert, buf)
	return buf
}

// UnmarshalAlert deserializes an Alert from bytes.
func UnmarshalAlert(data []byte) (*core.Alert, error) {
	alert, _, err := core.AlertMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// MarshalIngestJob serializes an IngestJob to bytes.
func MarshalIngestJob(job *core.IngestJob) []byte {
	buf := make([]byte, core.IngestJobMUS.Size(*job))
	core.IngestJobMUS.Marshal(*job, buf)
	return buf
}

// UnmarshalIngestJob deserializes an IngestJob from bytes.
func UnmarshalIngestJob(data []byte) (*core.IngestJob, error) {
	job, _, err := core.IngestJobMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
