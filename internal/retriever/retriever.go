package retriever

import (
	"context"
	"strings"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
)

// Retriever produces the best available grounding context for a query via an
// ordered fallback chain: vector similarity, then the latest raw document,
// then empty context. Each tier is attempted at most once and transitions
// are one-directional; a tier failure degrades to the next tier instead of
// failing the call, so retrieval never prevents a reply.
type Retriever struct {
	embedder domain.Embedder
	docs     domain.DocumentStore
	topK     int
	log      *logger.Logger
}

func New(embedder domain.Embedder, docs domain.DocumentStore, topK int, log *logger.Logger) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{
		embedder: embedder,
		docs:     docs,
		topK:     topK,
		log:      log.With("component", "retriever"),
	}
}

// tier is one retrieval strategy. It reports a hit (ok=true), a miss
// (ok=false) or a failure; misses and failures both fall through to the
// next tier.
type tier struct {
	name string
	run  func(ctx context.Context, session, query string) (result string, ok bool, err error)
}

// Retrieve returns the grounding context for the query, or an empty string
// when no tier produces one. It never returns an error.
func (r *Retriever) Retrieve(ctx context.Context, session, query string) string {
	tiers := []tier{
		{name: "vector", run: r.vectorSearch},
		{name: "latest_document", run: r.latestDocument},
	}
	for _, t := range tiers {
		result, ok, err := t.run(ctx, session, query)
		if err != nil {
			r.log.Warn("retrieval tier failed", "tier", t.name, "error", err)
			continue
		}
		if ok {
			return result
		}
	}
	return ""
}

// vectorSearch embeds the query and returns the nearest chunk contents
// joined nearest-first.
func (r *Retriever) vectorSearch(ctx context.Context, session, query string) (string, bool, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return "", false, err
	}
	contents, err := r.docs.SimilaritySearch(ctx, session, vector, r.topK)
	if err != nil {
		return "", false, err
	}
	if len(contents) == 0 {
		return "", false, nil
	}
	return strings.Join(contents, "\n\n"), true, nil
}

// latestDocument returns the full text of the session's most recent upload.
func (r *Retriever) latestDocument(ctx context.Context, session, _ string) (string, bool, error) {
	content, ok, err := r.docs.LatestDocument(ctx, session)
	if err != nil {
		return "", false, err
	}
	return content, ok, nil
}
