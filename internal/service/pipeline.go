package service

import (
	"context"
	"fmt"

	"ragchat/internal/chunker"
	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/prompt"
	"ragchat/internal/retriever"
	"ragchat/internal/summarizer"
)

// Pipeline wires chunking, embedding, retrieval, prompt assembly and
// generation into the two public operations of the backend: Ingest and
// Respond. Provider and store handles are fixed at construction; the
// pipeline holds no mutable shared state.
type Pipeline struct {
	chunker       *chunker.FixedChunker
	embedder      domain.Embedder
	generator     domain.Generator
	documents     domain.DocumentStore
	conversations domain.ConversationStore
	retriever     *retriever.Retriever
	summarizer    *summarizer.FrequencySummarizer
	historyLimit  int
	log           *logger.Logger
}

// Config collects the pipeline's collaborators and tunables.
type Config struct {
	Embedder      domain.Embedder
	Generator     domain.Generator
	Documents     domain.DocumentStore
	Conversations domain.ConversationStore
	ChunkSize     int
	TopK          int
	HistoryLimit  int
	Logger        *logger.Logger
}

func NewPipeline(cfg Config) *Pipeline {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		chunker:       chunker.NewFixedChunker(cfg.ChunkSize),
		embedder:      cfg.Embedder,
		generator:     cfg.Generator,
		documents:     cfg.Documents,
		conversations: cfg.Conversations,
		retriever:     retriever.New(cfg.Embedder, cfg.Documents, cfg.TopK, log),
		summarizer:    summarizer.NewFrequencySummarizer(),
		historyLimit:  cfg.HistoryLimit,
		log:           log.With("component", "pipeline"),
	}
}

// Ingest stores the document, then embeds its fragments best-effort.
// Ingestion success means "document durably stored": a fragment whose
// embedding fails is kept without a vector and counted, never aborting the
// loop. Only the initial document save can fail the call.
func (p *Pipeline) Ingest(ctx context.Context, session, text string) (domain.IngestSummary, error) {
	docID, err := p.documents.SaveDocument(ctx, session, text)
	if err != nil {
		return domain.IngestSummary{}, err
	}

	fragments := p.chunker.Chunk(text)
	summary := domain.IngestSummary{DocumentID: docID, Chunks: len(fragments)}
	for i, fragment := range fragments {
		if p.embedFragment(ctx, session, fragment, i) {
			summary.Embedded++
		}
	}
	p.log.Info("document ingested",
		"session", session, "document_id", docID,
		"chunks", summary.Chunks, "embedded", summary.Embedded)
	return summary, nil
}

// embedFragment attempts one fragment and reports whether it ended up stored
// with a vector. Failures degrade to a vectorless chunk record so the text
// stays reachable through the latest-document fallback.
func (p *Pipeline) embedFragment(ctx context.Context, session, fragment string, idx int) bool {
	vector, err := p.embedder.Embed(ctx, fragment)
	if err != nil {
		p.log.Warn("fragment embedding failed, storing without vector",
			"session", session, "fragment", idx, "error", err)
		if err := p.documents.SaveChunk(ctx, session, fragment); err != nil {
			p.log.Error("degraded chunk save failed", "session", session, "fragment", idx, "error", err)
		}
		return false
	}
	if err := p.documents.SaveEmbedding(ctx, session, fragment, vector); err != nil {
		p.log.Warn("embedding save failed", "session", session, "fragment", idx, "error", err)
		return false
	}
	return true
}

// Respond runs one chat turn: persist the user message, retrieve grounding
// context, assemble the prompt, generate (or synthesize a degraded reply),
// and persist the assistant turn. Only the user-turn save can abort; every
// later stage has a defined fallback.
func (p *Pipeline) Respond(ctx context.Context, session, message string) (string, error) {
	if err := p.conversations.Append(ctx, session, domain.RoleUser, message); err != nil {
		return "", err
	}

	contextText := p.retriever.Retrieve(ctx, session, message)

	history, err := p.conversations.RecentHistory(ctx, session, p.historyLimit)
	if err != nil {
		p.log.Warn("history read failed, continuing without it", "session", session, "error", err)
		history = nil
	}

	rendered := prompt.Render(contextText, history, message)

	reply, err := p.generator.Generate(ctx, rendered)
	if err != nil {
		p.log.Warn("generation failed, synthesizing degraded reply", "session", session, "error", err)
		reply = p.degradedReply(message, contextText, history)
	}

	if err := p.conversations.Append(ctx, session, domain.RoleAssistant, reply); err != nil {
		p.log.Error("assistant turn save failed", "session", session, "error", err)
	}
	return reply, nil
}

// degradedReply is the deterministic stand-in produced when the generation
// backend is down. It proves the retrieval half of the pipeline worked by
// echoing the message, the context verbatim and a digest of the history.
func (p *Pipeline) degradedReply(message, contextText string, history []domain.Message) string {
	if contextText == "" {
		contextText = "none"
	}
	digest := "none"
	if len(history) > 0 {
		digest = p.summarizer.Summarize(prompt.HistoryLines(history), 3)
	}
	return fmt.Sprintf(
		"The generation backend is currently unavailable; retrieval ran normally, "+
			"but no model reply could be produced.\n\n"+
			"Your message: %s\n\n"+
			"Retrieved context:\n%s\n\n"+
			"Recent conversation:\n%s",
		message, contextText, digest)
}
