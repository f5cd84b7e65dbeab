package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
	"ragchat/internal/prompt"
	"ragchat/internal/store/memory"
)

// fakeProvider implements both capabilities with switchable failures and a
// deterministic toy embedding so similarity search behaves.
type fakeProvider struct {
	embedErr   error
	genErr     error
	reply      string
	lastPrompt string
	embedCalls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	var sum float64
	for _, r := range text {
		sum += float64(r)
	}
	return []float64{float64(len(text)), sum}, nil
}

func (f *fakeProvider) Generate(ctx context.Context, promptText string) (string, error) {
	f.lastPrompt = promptText
	if f.genErr != nil {
		return "", f.genErr
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "generated reply", nil
}

type failingDocStore struct{}

func (failingDocStore) SaveDocument(ctx context.Context, session, content string) (int64, error) {
	return 0, domain.NewStorageError("save document", errors.New("db down"))
}

func (failingDocStore) SaveEmbedding(ctx context.Context, session, content string, vector []float64) error {
	return domain.NewStorageError("save embedding", errors.New("db down"))
}

func (failingDocStore) SaveChunk(ctx context.Context, session, content string) error {
	return domain.NewStorageError("save chunk", errors.New("db down"))
}

func (failingDocStore) LatestDocument(ctx context.Context, session string) (string, bool, error) {
	return "", false, domain.NewStorageError("latest document", errors.New("db down"))
}

func (failingDocStore) SimilaritySearch(ctx context.Context, session string, vector []float64, k int) ([]string, error) {
	return nil, domain.NewStorageError("similarity search", errors.New("db down"))
}

type failingConvStore struct{}

func (failingConvStore) Append(ctx context.Context, session string, role domain.Role, content string) error {
	return domain.NewStorageError("append message", errors.New("db down"))
}

func (failingConvStore) RecentHistory(ctx context.Context, session string, limit int) ([]domain.Message, error) {
	return nil, domain.NewStorageError("recent history", errors.New("db down"))
}

func newTestPipeline(provider *fakeProvider, st *memory.Store) *Pipeline {
	return NewPipeline(Config{
		Embedder:      provider,
		Generator:     provider,
		Documents:     st,
		Conversations: st,
		ChunkSize:     1000,
		TopK:          5,
		HistoryLimit:  10,
	})
}

func TestIngestSplitsAndEmbeds(t *testing.T) {
	provider := &fakeProvider{}
	st := memory.New()
	p := newTestPipeline(provider, st)

	text := strings.Repeat("alpha ", 300) // 1800 chars
	summary, err := p.Ingest(context.Background(), "s1", text)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Chunks)
	assert.Equal(t, 2, summary.Embedded)

	stored, ok, err := st.LatestDocument(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, text, stored)
}

func TestIngestEmbedderDownStillSucceeds(t *testing.T) {
	provider := &fakeProvider{
		embedErr: domain.NewProviderError("fake", "embed", errors.New("quota exhausted")),
	}
	st := memory.New()
	p := newTestPipeline(provider, st)

	text := strings.Repeat("alpha ", 300)
	summary, err := p.Ingest(context.Background(), "s1", text)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Chunks)
	assert.Equal(t, 0, summary.Embedded)

	// the document survives even though no fragment was embedded
	stored, ok, err := st.LatestDocument(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, text, stored)
}

func TestIngestDocumentSaveFailureAborts(t *testing.T) {
	provider := &fakeProvider{}
	p := NewPipeline(Config{
		Embedder:      provider,
		Generator:     provider,
		Documents:     failingDocStore{},
		Conversations: memory.New(),
	})

	_, err := p.Ingest(context.Background(), "s1", "some text")
	require.Error(t, err)
	assert.True(t, domain.IsStorageError(err))
	assert.Zero(t, provider.embedCalls)
}

func TestIngestTwiceKeepsIndependentDocuments(t *testing.T) {
	provider := &fakeProvider{}
	st := memory.New()
	p := newTestPipeline(provider, st)

	first, err := p.Ingest(context.Background(), "s1", "same text")
	require.NoError(t, err)
	second, err := p.Ingest(context.Background(), "s1", "same text")
	require.NoError(t, err)
	assert.NotEqual(t, first.DocumentID, second.DocumentID)
	assert.GreaterOrEqual(t, second.Embedded, 0)
}

func TestRespondGroundedReply(t *testing.T) {
	provider := &fakeProvider{reply: "it is about alpha"}
	st := memory.New()
	p := newTestPipeline(provider, st)

	_, err := p.Ingest(context.Background(), "s1", "alpha beta gamma")
	require.NoError(t, err)

	reply, err := p.Respond(context.Background(), "s1", "what is this about?")
	require.NoError(t, err)
	assert.Equal(t, "it is about alpha", reply)
	assert.Contains(t, provider.lastPrompt, "Document Context:")
	assert.Contains(t, provider.lastPrompt, "alpha beta gamma")
	assert.Contains(t, provider.lastPrompt, "User: what is this about?")

	history, err := st.RecentHistory(context.Background(), "s1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
}

func TestRespondFreshSessionSignalsNoContext(t *testing.T) {
	provider := &fakeProvider{}
	st := memory.New()
	p := newTestPipeline(provider, st)

	reply, err := p.Respond(context.Background(), "fresh", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	assert.Contains(t, provider.lastPrompt, prompt.NoContextMarker)
}

func TestRespondGenerationFallback(t *testing.T) {
	provider := &fakeProvider{
		genErr: domain.NewProviderError("fake", "generate", errors.New("quota exhausted")),
	}
	st := memory.New()
	p := newTestPipeline(provider, st)

	_, err := p.Ingest(context.Background(), "s1", "grounding text here")
	require.NoError(t, err)

	reply, err := p.Respond(context.Background(), "s1", "my question")
	require.NoError(t, err)
	assert.Contains(t, reply, "my question")
	assert.Contains(t, reply, "grounding text here")
	assert.Contains(t, reply, "unavailable")

	// the degraded reply is still persisted as the assistant turn
	history, err := st.RecentHistory(context.Background(), "s1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, reply, history[1].Content)
}

func TestRespondGenerationFallbackWithoutContext(t *testing.T) {
	provider := &fakeProvider{
		embedErr: domain.NewProviderError("fake", "embed", errors.New("down")),
		genErr:   domain.NewProviderError("fake", "generate", errors.New("down")),
	}
	st := memory.New()
	p := newTestPipeline(provider, st)

	reply, err := p.Respond(context.Background(), "fresh", "hello")
	require.NoError(t, err)
	assert.Contains(t, reply, "hello")
	assert.Contains(t, reply, "none")
}

func TestRespondUserTurnSaveFailureAborts(t *testing.T) {
	provider := &fakeProvider{}
	p := NewPipeline(Config{
		Embedder:      provider,
		Generator:     provider,
		Documents:     memory.New(),
		Conversations: failingConvStore{},
	})

	_, err := p.Respond(context.Background(), "s1", "hello")
	require.Error(t, err)
	assert.True(t, domain.IsStorageError(err))
}

func TestRespondRetrievalFallbackToDocument(t *testing.T) {
	// embedding is down at query time, but the session has a stored document:
	// the reply must be grounded in the full document text (tier 2).
	provider := &fakeProvider{reply: "grounded"}
	st := memory.New()
	p := newTestPipeline(provider, st)

	_, err := p.Ingest(context.Background(), "s1", "the full document body")
	require.NoError(t, err)

	provider.embedErr = domain.NewProviderError("fake", "embed", errors.New("down"))
	reply, err := p.Respond(context.Background(), "s1", "question")
	require.NoError(t, err)
	assert.Equal(t, "grounded", reply)
	assert.Contains(t, provider.lastPrompt, "the full document body")
}

func TestConversationHistoryOrdering(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	turns := []struct {
		role    domain.Role
		content string
	}{
		{domain.RoleUser, "one"},
		{domain.RoleAssistant, "two"},
		{domain.RoleUser, "three"},
		{domain.RoleAssistant, "four"},
	}
	for _, turn := range turns {
		require.NoError(t, st.Append(ctx, "s1", turn.role, turn.content))
	}

	history, err := st.RecentHistory(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i, turn := range turns {
		assert.Equal(t, turn.role, history[i].Role)
		assert.Equal(t, turn.content, history[i].Content)
	}
}
