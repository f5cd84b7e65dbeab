package domain

import "context"

// Embedder converts free text into a numeric vector representation of a
// fixed, provider-specific dimension. Implementations call out over the
// network and may fail per-call with a *ProviderError.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator produces a model reply for an assembled prompt. Fails with a
// *ProviderError on quota, auth or network errors.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// DocumentStore persists full documents and per-chunk embeddings, scoped by
// session. All records are append-only. Failures surface as *StorageError.
type DocumentStore interface {
	// SaveDocument stores the full raw text and returns its id.
	SaveDocument(ctx context.Context, session, content string) (int64, error)
	// SaveEmbedding stores one chunk together with its vector.
	SaveEmbedding(ctx context.Context, session, content string, vector []float64) error
	// SaveChunk stores a chunk without a vector (degraded ingest path);
	// such chunks are reachable only through the latest-document fallback.
	SaveChunk(ctx context.Context, session, content string) error
	// LatestDocument returns the most recently stored document text for the
	// session, or ok=false when the session has none.
	LatestDocument(ctx context.Context, session string) (content string, ok bool, err error)
	// SimilaritySearch returns up to k chunk contents ordered nearest-first
	// by vector distance.
	SimilaritySearch(ctx context.Context, session string, vector []float64, k int) ([]string, error)
}

// ConversationStore persists chronological conversation turns per session.
type ConversationStore interface {
	Append(ctx context.Context, session string, role Role, content string) error
	// RecentHistory returns the most recent limit turns in chronological
	// order, oldest first.
	RecentHistory(ctx context.Context, session string, limit int) ([]Message, error)
}
