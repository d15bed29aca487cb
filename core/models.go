package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so that re-ingesting the same
// external record always maps to the same identity.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentID derives the stable document identity for a source record.
// Upserts are keyed by (source, external id), so replays of the same record
// resolve to the same ID.
func DocumentID(source Source, externalID string) ID {
	return IDFromContent(source.String() + ":" + externalID)
}

// ChunkID derives the identity of a chunk from its owning document and
// position. Re-chunking a document reproduces the same IDs for the same
// positions, which keeps replace-on-reingest idempotent.
func ChunkID(documentID ID, sequenceIndex int) ID {
	return IDFromContent(strconv.FormatUint(uint64(documentID), 10) + "#" + strconv.Itoa(sequenceIndex))
}

// ContentHash hashes chunk text for embedding deduplication.
// Identical text always produces the same hash regardless of which document
// or position it came from.
func ContentHash(text string) ID {
	return IDFromContent(text)
}

// Source identifies the system a document originated from.
type Source int

const (
	// SourceChat represents chat threads (e.g. Slack).
	SourceChat Source = iota + 1
	// SourceTranscript represents meeting transcripts.
	SourceTranscript
	// SourceTaskTracker represents project-management items.
	SourceTaskTracker
	// SourceFileStore represents documents from a file store.
	SourceFileStore
	// SourceTimeTracker represents time-tracking entries.
	SourceTimeTracker
	// SourceCodeHost represents issues and pull requests from a code host.
	SourceCodeHost
)

var sourceNames = map[Source]string{
	SourceChat:        "chat",
	SourceTranscript:  "transcript",
	SourceTaskTracker: "task-tracker",
	SourceFileStore:   "file-store",
	SourceTimeTracker: "time-tracker",
	SourceCodeHost:    "code-host",
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSource maps a source name back to its enum value.
// Returns false if the name is not a known source.
func ParseSource(name string) (Source, bool) {
	for source, n := range sourceNames {
		if n == name {
			return source, true
		}
	}
	return 0, false
}

// Sources lists all known sources in declaration order.
func Sources() []Source {
	return []Source{
		SourceChat, SourceTranscript, SourceTaskTracker,
		SourceFileStore, SourceTimeTracker, SourceCodeHost,
	}
}

// ParticipantRole distinguishes internal staff from external (client) identities.
type ParticipantRole int

const (
	// RoleInternal represents a member of the organization.
	RoleInternal ParticipantRole = iota + 1
	// RoleExternal represents a client or other outside identity.
	RoleExternal
)

// Participant is an identity attached to a document.
type Participant struct {
	Name  string
	Email string
	Role  ParticipantRole
}

// PrincipalPublic is the synthetic principal granting read access to everyone.
// Every viewer implicitly carries it.
const PrincipalPublic = "public"

// Document is the normalized record shape shared by all sources.
// Its chunk set is fully replaced on re-ingestion of the same external id.
type Document struct {
	Id           ID
	Source       Source
	ExternalID   string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Participants []Participant
	Tags         []string
	Visibility   []string // Principals beyond participants; may contain PrincipalPublic
}

// Chunk is a bounded unit of retrievable text derived from a Document.
// Chunks of one document are ordered by SequenceIndex; concatenating them in
// that order reconstructs the source content modulo configured overlap.
type Chunk struct {
	Id            ID
	DocumentID    ID
	SequenceIndex int
	Text          string
	Speaker       string // Optional; set for turn-structured sources
	StartOffset   int64  // Milliseconds from recording start; 0 when not applicable
	EndOffset     int64
	TokenCount    int
	ContentHash   ID // BLAKE2b of Text, keys the embedding dedupe cache
}

// Embedding is a vector for one chunk under one model.
// Re-embedding with a different model creates a new Embedding rather than
// mutating an existing one.
type Embedding struct {
	ChunkID   ID
	ModelID   string
	Dimension int
	Vector    []float32
}

// AccessLevel enumerates permission levels on a document.
type AccessLevel int

const (
	// AccessRead grants read access.
	AccessRead AccessLevel = iota + 1
)

// AccessEntry grants a principal access to a document.
// A viewer with no matching entry never sees the document (deny-by-default).
type AccessEntry struct {
	DocumentID ID
	Principal  string
	Level      AccessLevel
}

// AlertType categorizes a detected signal.
type AlertType int

const (
	// AlertRiskBudget flags budget or cost concerns.
	AlertRiskBudget AlertType = iota + 1
	// AlertRiskSchedule flags timeline or deadline concerns.
	AlertRiskSchedule
	// AlertRiskSatisfaction flags client frustration or quality concerns.
	AlertRiskSatisfaction
	// AlertOpportunity flags interest in additional or expanded work.
	AlertOpportunity
)

var alertTypeNames = map[AlertType]string{
	AlertRiskBudget:       "risk-budget",
	AlertRiskSchedule:     "risk-schedule",
	AlertRiskSatisfaction: "risk-satisfaction",
	AlertOpportunity:      "opportunity",
}

func (t AlertType) String() string {
	if name, ok := alertTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// AlertTypes lists all alert types in declaration order.
func AlertTypes() []AlertType {
	return []AlertType{AlertRiskBudget, AlertRiskSchedule, AlertRiskSatisfaction, AlertOpportunity}
}

// AlertStatus tracks an alert through delivery.
type AlertStatus int

const (
	// AlertStatusNew is the initial state of an emitted alert.
	AlertStatusNew AlertStatus = iota + 1
	// AlertStatusDelivered marks a successfully delivered alert.
	AlertStatusDelivered
	// AlertStatusSuppressed marks an alert manually suppressed by an operator.
	AlertStatusSuppressed
)

// AlertEvidence is a supporting chunk excerpt attached to an alert.
type AlertEvidence struct {
	ChunkID ID
	Excerpt string
	Speaker string
}

// Alert is a risk or opportunity signal detected in a document.
// At most one non-suppressed alert exists per DedupeKey within the detector's
// rolling window.
type Alert struct {
	Id         ID
	DocumentID ID
	ChunkID    ID
	Type       AlertType
	Score      float32 // 0.0 - 1.0
	Status     AlertStatus
	CreatedAt  time.Time
	DedupeKey  ID
	Evidence   []AlertEvidence
}

// AlertDedupeKey derives the dedupe identity for a document+category pair.
func AlertDedupeKey(documentID ID, alertType AlertType) ID {
	return IDFromContent(strconv.FormatUint(uint64(documentID), 10) + "|" + alertType.String())
}

// IngestJob is a queued unit of ingestion work. Payload carries the raw
// source event bytes; EventID is the source's delivery identifier used for
// idempotency. Attempts counts deliveries to a worker, and LastError records
// the failure that caused the most recent requeue or dead-letter.
type IngestJob struct {
	Id         string
	EventID    string
	Source     Source
	DocumentID ID
	Payload    []byte
	Attempts   int
	EnqueuedAt time.Time
	LastError  string
}

// Provenance locates a search result within its source.
type Provenance struct {
	Speaker     string
	StartOffset int64
	Title       string
	Source      Source
}

// SearchResult is an ephemeral ranked hit returned by the retriever.
// It is never persisted.
type SearchResult struct {
	ChunkID    ID
	DocumentID ID
	FusedScore float64
	Rank       int
	Text       string
	Provenance Provenance
}
