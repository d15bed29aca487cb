// Code generated by musgen-go. DO NOT EDIT.

package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

var (
	sliceFCzulxnm8QWΔLLgm46GRBwΞΞ = ord.NewSliceSer[float32](varint.Float32)
	sliceKWTHVYcoZUFlIDNxmWcTEgΞΞ = ord.NewSliceSer[Participant](ParticipantMUS)
	slicedeGR50aTUΔxslZIrpeQA1AΞΞ = ord.NewSliceSer[AlertEvidence](AlertEvidenceMUS)
	slicedtbFvtΔClXZsJmkDTvaYvAΞΞ = ord.NewSliceSer[string](ord.String)
)

var IDMUS = iDMUS{}

type iDMUS struct{}

func (s iDMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s iDMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = ID(tmp)
	return
}

func (s iDMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s iDMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

var SourceMUS = sourceMUS{}

type sourceMUS struct{}

func (s sourceMUS) Marshal(v Source, bs []byte) (n int) {
	return varint.Int.Marshal(int(v), bs)
}

func (s sourceMUS) Unmarshal(bs []byte) (v Source, n int, err error) {
	tmp, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	v = Source(tmp)
	return
}

func (s sourceMUS) Size(v Source) (size int) {
	return varint.Int.Size(int(v))
}

func (s sourceMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int.Skip(bs)
}

var ParticipantRoleMUS = participantRoleMUS{}

type participantRoleMUS struct{}

func (s participantRoleMUS) Marshal(v ParticipantRole, bs []byte) (n int) {
	return varint.Int.Marshal(int(v), bs)
}

func (s participantRoleMUS) Unmarshal(bs []byte) (v ParticipantRole, n int, err error) {
	tmp, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	v = ParticipantRole(tmp)
	return
}

func (s participantRoleMUS) Size(v ParticipantRole) (size int) {
	return varint.Int.Size(int(v))
}

func (s participantRoleMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int.Skip(bs)
}

var AccessLevelMUS = accessLevelMUS{}

type accessLevelMUS struct{}

func (s accessLevelMUS) Marshal(v AccessLevel, bs []byte) (n int) {
	return varint.Int.Marshal(int(v), bs)
}

func (s accessLevelMUS) Unmarshal(bs []byte) (v AccessLevel, n int, err error) {
	tmp, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	v = AccessLevel(tmp)
	return
}

func (s accessLevelMUS) Size(v AccessLevel) (size int) {
	return varint.Int.Size(int(v))
}

func (s accessLevelMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int.Skip(bs)
}

var AlertTypeMUS = alertTypeMUS{}

type alertTypeMUS struct{}

func (s alertTypeMUS) Marshal(v AlertType, bs []byte) (n int) {
	return varint.Int.Marshal(int(v), bs)
}

func (s alertTypeMUS) Unmarshal(bs []byte) (v AlertType, n int, err error) {
	tmp, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	v = AlertType(tmp)
	return
}

func (s alertTypeMUS) Size(v AlertType) (size int) {
	return varint.Int.Size(int(v))
}

func (s alertTypeMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int.Skip(bs)
}

var AlertStatusMUS = alertStatusMUS{}

type alertStatusMUS struct{}

func (s alertStatusMUS) Marshal(v AlertStatus, bs []byte) (n int) {
	return varint.Int.Marshal(int(v), bs)
}

func (s alertStatusMUS) Unmarshal(bs []byte) (v AlertStatus, n int, err error) {
	tmp, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	v = AlertStatus(tmp)
	return
}

func (s alertStatusMUS) Size(v AlertStatus) (size int) {
	return varint.Int.Size(int(v))
}

func (s alertStatusMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int.Skip(bs)
}

var ParticipantMUS = participantMUS{}

type participantMUS struct{}

func (s participantMUS) Marshal(v Participant, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += ord.String.Marshal(v.Email, bs[n:])
	return n + ParticipantRoleMUS.Marshal(v.Role, bs[n:])
}

func (s participantMUS) Unmarshal(bs []byte) (v Participant, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Email, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Role, n1, err = ParticipantRoleMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s participantMUS) Size(v Participant) (size int) {
	size = ord.String.Size(v.Name)
	size += ord.String.Size(v.Email)
	return size + ParticipantRoleMUS.Size(v.Role)
}

func (s participantMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ParticipantRoleMUS.Skip(bs[n:])
	n += n1
	return
}

var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += SourceMUS.Marshal(v.Source, bs[n:])
	n += ord.String.Marshal(v.ExternalID, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.CreatedAt, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.UpdatedAt, bs[n:])
	n += sliceKWTHVYcoZUFlIDNxmWcTEgΞΞ.Marshal(v.Participants, bs[n:])
	n += slicedtbFvtΔClXZsJmkDTvaYvAΞΞ.Marshal(v.Tags, bs[n:])
	return n + slicedtbFvtΔClXZsJmkDTvaYvAΞΞ.Marshal(v.Visibility, bs[n:])
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Source, n1, err = SourceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ExternalID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Participants, n1, err = sliceKWTHVYcoZUFlIDNxmWcTEgΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Tags, n1, err = slicedtbFvtΔClXZsJmkDTvaYvAΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Visibility, n1, err = slicedtbFvtΔClXZsJmkDTvaYvAΞΞ.Unmarshal(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = IDMUS.Size(v.Id)
	size += SourceMUS.Size(v.Source)
	size += ord.String.Size(v.ExternalID)
	size += ord.String.Size(v.Title)
	size += raw.TimeUnixMicro.Size(v.CreatedAt)
	size += raw.TimeUnixMicro.Size(v.UpdatedAt)
	size += sliceKWTHVYcoZUFlIDNxmWcTEgΞΞ.Size(v.Participants)
	size += slicedtbFvtΔClXZsJmkDTvaYvAΞΞ.Size(v.Tags)
	return size + slicedtbFvtΔClXZsJmkDTvaYvAΞΞ.Size(v.Visibility)
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = SourceMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = sliceKWTHVYcoZUFlIDNxmWcTEgΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = slicedtbFvtΔClXZsJmkDTvaYvAΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = slicedtbFvtΔClXZsJmkDTvaYvAΞΞ.Skip(bs[n:])
	n += n1
	return
}

var ChunkMUS = chunkMUS{}

type chunkMUS struct{}

func (s chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.DocumentID, bs[n:])
	n += varint.Int.Marshal(v.SequenceIndex, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += ord.String.Marshal(v.Speaker, bs[n:])
	n += varint.Int64.Marshal(v.StartOffset, bs[n:])
	n += varint.Int64.Marshal(v.EndOffset, bs[n:])
	n += varint.Int.Marshal(v.TokenCount, bs[n:])
	return n + IDMUS.Marshal(v.ContentHash, bs[n:])
}

func (s chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.DocumentID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SequenceIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Speaker, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.StartOffset, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EndOffset, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.TokenCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ContentHash, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s chunkMUS) Size(v Chunk) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.DocumentID)
	size += varint.Int.Size(v.SequenceIndex)
	size += ord.String.Size(v.Text)
	size += ord.String.Size(v.Speaker)
	size += varint.Int64.Size(v.StartOffset)
	size += varint.Int64.Size(v.EndOffset)
	size += varint.Int.Size(v.TokenCount)
	return size + IDMUS.Size(v.ContentHash)
}

func (s chunkMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	return
}

var EmbeddingMUS = embeddingMUS{}

type embeddingMUS struct{}

func (s embeddingMUS) Marshal(v Embedding, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ChunkID, bs)
	n += ord.String.Marshal(v.ModelID, bs[n:])
	n += varint.Int.Marshal(v.Dimension, bs[n:])
	return n + sliceFCzulxnm8QWΔLLgm46GRBwΞΞ.Marshal(v.Vector, bs[n:])
}

func (s embeddingMUS) Unmarshal(bs []byte) (v Embedding, n int, err error) {
	v.ChunkID, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.ModelID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Dimension, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = sliceFCzulxnm8QWΔLLgm46GRBwΞΞ.Unmarshal(bs[n:])
	n += n1
	return
}

func (s embeddingMUS) Size(v Embedding) (size int) {
	size = IDMUS.Size(v.ChunkID)
	size += ord.String.Size(v.ModelID)
	size += varint.Int.Size(v.Dimension)
	return size + sliceFCzulxnm8QWΔLLgm46GRBwΞΞ.Size(v.Vector)
}

func (s embeddingMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = sliceFCzulxnm8QWΔLLgm46GRBwΞΞ.Skip(bs[n:])
	n += n1
	return
}

var AccessEntryMUS = accessEntryMUS{}

type accessEntryMUS struct{}

func (s accessEntryMUS) Marshal(v AccessEntry, bs []byte) (n int) {
	n = IDMUS.Marshal(v.DocumentID, bs)
	n += ord.String.Marshal(v.Principal, bs[n:])
	return n + AccessLevelMUS.Marshal(v.Level, bs[n:])
}

func (s accessEntryMUS) Unmarshal(bs []byte) (v AccessEntry, n int, err error) {
	v.DocumentID, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Principal, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Level, n1, err = AccessLevelMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s accessEntryMUS) Size(v AccessEntry) (size int) {
	size = IDMUS.Size(v.DocumentID)
	size += ord.String.Size(v.Principal)
	return size + AccessLevelMUS.Size(v.Level)
}

func (s accessEntryMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = AccessLevelMUS.Skip(bs[n:])
	n += n1
	return
}

var AlertEvidenceMUS = alertEvidenceMUS{}

type alertEvidenceMUS struct{}

func (s alertEvidenceMUS) Marshal(v AlertEvidence, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ChunkID, bs)
	n += ord.String.Marshal(v.Excerpt, bs[n:])
	return n + ord.String.Marshal(v.Speaker, bs[n:])
}

func (s alertEvidenceMUS) Unmarshal(bs []byte) (v AlertEvidence, n int, err error) {
	v.ChunkID, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Excerpt, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Speaker, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s alertEvidenceMUS) Size(v AlertEvidence) (size int) {
	size = IDMUS.Size(v.ChunkID)
	size += ord.String.Size(v.Excerpt)
	return size + ord.String.Size(v.Speaker)
}

func (s alertEvidenceMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	return
}

var AlertMUS = alertMUS{}

type alertMUS struct{}

func (s alertMUS) Marshal(v Alert, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.DocumentID, bs[n:])
	n += IDMUS.Marshal(v.ChunkID, bs[n:])
	n += AlertTypeMUS.Marshal(v.Type, bs[n:])
	n += varint.Float32.Marshal(v.Score, bs[n:])
	n += AlertStatusMUS.Marshal(v.Status, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.CreatedAt, bs[n:])
	n += IDMUS.Marshal(v.DedupeKey, bs[n:])
	return n + slicedeGR50aTUΔxslZIrpeQA1AΞΞ.Marshal(v.Evidence, bs[n:])
}

func (s alertMUS) Unmarshal(bs []byte) (v Alert, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.DocumentID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ChunkID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Type, n1, err = AlertTypeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Score, n1, err = varint.Float32.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Status, n1, err = AlertStatusMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DedupeKey, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Evidence, n1, err = slicedeGR50aTUΔxslZIrpeQA1AΞΞ.Unmarshal(bs[n:])
	n += n1
	return
}

func (s alertMUS) Size(v Alert) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.DocumentID)
	size += IDMUS.Size(v.ChunkID)
	size += AlertTypeMUS.Size(v.Type)
	size += varint.Float32.Size(v.Score)
	size += AlertStatusMUS.Size(v.Status)
	size += raw.TimeUnixMicro.Size(v.CreatedAt)
	size += IDMUS.Size(v.DedupeKey)
	return size + slicedeGR50aTUΔxslZIrpeQA1AΞΞ.Size(v.Evidence)
}

func (s alertMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = AlertTypeMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Float32.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = AlertStatusMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = slicedeGR50aTUΔxslZIrpeQA1AΞΞ.Skip(bs[n:])
	n += n1
	return
}

var IngestJobMUS = ingestJobMUS{}

type ingestJobMUS struct{}

func (s ingestJobMUS) Marshal(v IngestJob, bs []byte) (n int) {
	n = ord.String.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.EventID, bs[n:])
	n += SourceMUS.Marshal(v.Source, bs[n:])
	n += IDMUS.Marshal(v.DocumentID, bs[n:])
	n += ord.ByteSlice.Marshal(v.Payload, bs[n:])
	n += varint.Int.Marshal(v.Attempts, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.EnqueuedAt, bs[n:])
	return n + ord.String.Marshal(v.LastError, bs[n:])
}

func (s ingestJobMUS) Unmarshal(bs []byte) (v IngestJob, n int, err error) {
	v.Id, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.EventID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Source, n1, err = SourceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DocumentID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Payload, n1, err = ord.ByteSlice.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Attempts, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EnqueuedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.LastError, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s ingestJobMUS) Size(v IngestJob) (size int) {
	size = ord.String.Size(v.Id)
	size += ord.String.Size(v.EventID)
	size += SourceMUS.Size(v.Source)
	size += IDMUS.Size(v.DocumentID)
	size += ord.ByteSlice.Size(v.Payload)
	size += varint.Int.Size(v.Attempts)
	size += raw.TimeUnixMicro.Size(v.EnqueuedAt)
	return size + ord.String.Size(v.LastError)
}

func (s ingestJobMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = SourceMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.ByteSlice.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	return
}
