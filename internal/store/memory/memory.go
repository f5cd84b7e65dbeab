package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ragchat/internal/domain"
)

// Store is an in-process implementation of the document and conversation
// stores using brute-force vector search. It backs the dev/test storage mode
// and mirrors the Postgres store's semantics, session partitioning included.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	docs   map[string][]domain.Document
	chunks map[string][]domain.Chunk
	msgs   map[string][]domain.Message
}

func New() *Store {
	return &Store{
		docs:   make(map[string][]domain.Document),
		chunks: make(map[string][]domain.Chunk),
		msgs:   make(map[string][]domain.Message),
	}
}

// Ping always succeeds: the store lives in process memory.
func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) SaveDocument(ctx context.Context, session, content string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.docs[session] = append(s.docs[session], domain.Document{
		ID:      s.nextID,
		Session: session,
		Content: content,
	})
	return s.nextID, nil
}

func (s *Store) SaveEmbedding(ctx context.Context, session, content string, vector []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	vec := make([]float64, len(vector))
	copy(vec, vector)
	s.chunks[session] = append(s.chunks[session], domain.Chunk{
		ID:        s.nextID,
		Session:   session,
		Content:   content,
		Embedding: vec,
	})
	return nil
}

func (s *Store) SaveChunk(ctx context.Context, session, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.chunks[session] = append(s.chunks[session], domain.Chunk{
		ID:      s.nextID,
		Session: session,
		Content: content,
	})
	return nil
}

func (s *Store) LatestDocument(ctx context.Context, session string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.docs[session]
	if len(docs) == 0 {
		return "", false, nil
	}
	return docs[len(docs)-1].Content, true, nil
}

func (s *Store) SimilaritySearch(ctx context.Context, session string, vector []float64, k int) ([]string, error) {
	if k <= 0 {
		k = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	type scored struct {
		content  string
		distance float64
	}
	var candidates []scored
	for _, ch := range s.chunks[session] {
		if len(ch.Embedding) != len(vector) || len(ch.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{ch.Content, l2Distance(ch.Embedding, vector)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	contents := make([]string, 0, k)
	for i := 0; i < k; i++ {
		contents = append(contents, candidates[i].content)
	}
	return contents, nil
}

func (s *Store) Append(ctx context.Context, session string, role domain.Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs[session] = append(s.msgs[session], domain.Message{
		Session:   session,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *Store) RecentHistory(ctx context.Context, session string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.msgs[session]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func l2Distance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
