package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single immutable conversation turn within a session.
type Message struct {
	Session   string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Document is the full raw text of one uploaded file, scoped to a session.
// IDs increase monotonically; the latest document is the one with the max ID.
type Document struct {
	ID      int64
	Session string
	Content string
}

// Chunk is a bounded-length fragment of a document, the unit of embedding
// and retrieval. Embedding is nil when the chunk was stored on the degraded
// path (embedding provider unavailable at ingest time).
type Chunk struct {
	ID        int64
	Session   string
	Content   string
	Embedding []float64
}

// IngestSummary reports the outcome of one ingestion: how many fragments the
// document was split into and how many of them were successfully embedded.
// Embedded < Chunks means the embedding provider failed for some fragments;
// the document itself is still durably stored.
type IngestSummary struct {
	DocumentID int64
	Chunks     int
	Embedded   int
}
