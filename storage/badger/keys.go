package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/savaslabs/kb/core"
)

// Key prefixes for different data types
const (
	documentPrefix      = "docrec"
	chunkPrefix         = "churec"
	embeddingPrefix     = "embrec"
	aclPrefix           = "aclrec"
	alertPrefix         = "alrrec"
	alertDedupePrefix   = "alrdk"
	queueReadyPrefix    = "qrdy"
	queueInflightPrefix = "qinf"
	queueDeadPrefix     = "qdlq"
	queueIDSeq          = "qseq"
	eventSeenPrefix     = "evtseen"
	vectorCachePrefix   = "veccac"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeChunkKey generates a composite key for a chunk.
// Format: prefix:documentID:sequenceIndex, both BigEndian so iteration over a
// document's prefix yields chunks in sequence order.
func makeChunkKey(documentID core.ID, sequenceIndex int) []byte {
	prefix := chunkPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(sequenceIndex))
	return buf
}

// makePartialChunkKey generates the iteration prefix for a document's chunks.
func makePartialChunkKey(documentID core.ID) []byte {
	prefix := chunkPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makeEmbeddingKey generates a composite key for a chunk's vector under one model.
// Format: prefix:chunkID:modelID
func makeEmbeddingKey(chunkID core.ID, modelID string) []byte {
	prefix := embeddingPrefix + ":"
	buf := make([]byte, len(prefix)+8+len(modelID))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	offset += 8
	copy(buf[offset:], modelID)
	return buf
}

// makePartialEmbeddingKey generates the iteration prefix for all of a chunk's
// vectors across models.
func makePartialEmbeddingKey(chunkID core.ID) []byte {
	prefix := embeddingPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makeAccessKey generates a composite key for an ACL entry.
// Format: prefix:documentID:principal
func makeAccessKey(documentID core.ID, principal string) []byte {
	prefix := aclPrefix + ":"
	buf := make([]byte, len(prefix)+8+len(principal))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	copy(buf[offset:], principal)
	return buf
}

// makePartialAccessKey generates the iteration prefix for a document's ACL.
func makePartialAccessKey(documentID core.ID) []byte {
	prefix := aclPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makeAlertKey generates a key for an alert by ID.
func makeAlertKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", alertPrefix, id))
}

// makeAlertDedupeKey generates a composite key for the dedupe index.
// Format: prefix:dedupeKey:createdAt, BigEndian so iteration over one dedupe
// key's prefix walks alerts oldest first.
func makeAlertDedupeKey(dedupeKey core.ID, createdAt time.Time) []byte {
	prefix := alertDedupePrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(dedupeKey))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	return buf
}

// makePartialAlertDedupeKey generates the iteration prefix for one dedupe key.
func makePartialAlertDedupeKey(dedupeKey core.ID) []byte {
	prefix := alertDedupePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(dedupeKey))
	return buf
}

// makeQueueReadyKey generates a composite key for a ready or delayed job.
// Format: prefix:readyAt:seq, BigEndian so iteration pops jobs in ready-time
// order with the sequence breaking ties FIFO.
func makeQueueReadyKey(readyAt time.Time, seq uint64) []byte {
	prefix := queueReadyPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(readyAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeQueueInflightKey generates a key for an in-flight job by job ID.
func makeQueueInflightKey(jobID string) []byte {
	return []byte(queueInflightPrefix + ":" + jobID)
}

// makeQueueDeadKey generates a composite key for a dead-lettered job.
// Format: prefix:deadAt:seq
func makeQueueDeadKey(deadAt time.Time, seq uint64) []byte {
	prefix := queueDeadPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(deadAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeEventSeenKey generates a key for an idempotency entry.
func makeEventSeenKey(eventID string) []byte {
	return []byte(eventSeenPrefix + ":" + eventID)
}

// makeVectorCacheKey generates a composite key for a cached vector.
// Format: prefix:contentHash:modelID
func makeVectorCacheKey(contentHash core.ID, modelID string) []byte {
	prefix := vectorCachePrefix + ":"
	buf := make([]byte, len(prefix)+8+len(modelID))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(contentHash))
	offset += 8
	copy(buf[offset:], modelID)
	return buf
}
