package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
)

// Store implements the document and conversation stores over Postgres.
// Similarity search relies on the pgvector extension; when the extension is
// unavailable the store still persists everything and vector search degrades
// to a StorageError that the retriever handles.
type Store struct {
	pool     *pgxpool.Pool
	log      *logger.Logger
	vectorOK bool
}

// New connects to Postgres and bootstraps the schema.
func New(ctx context.Context, databaseURL string, log *logger.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, domain.NewStorageError("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, domain.NewStorageError("ping", err)
	}
	s := &Store{pool: pool, log: log.With("store", "postgres")}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	// pgvector is optional: without it the embeddings column falls back to
	// text and similarity search reports a StorageError instead of crashing.
	embeddingType := "vector"
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		s.log.Warn("pgvector extension unavailable, similarity search disabled", "error", err)
		embeddingType = "text"
	} else {
		s.vectorOK = true
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding ` + embeddingType + `
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_session ON documents (session_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_session ON embeddings (session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, created_at, id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return domain.NewStorageError("migrate", err)
		}
	}
	return nil
}

// Ping reports whether the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return domain.NewStorageError("ping", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

func (s *Store) SaveDocument(ctx context.Context, session, content string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO documents (session_id, content) VALUES ($1, $2) RETURNING id`,
		session, content,
	).Scan(&id)
	if err != nil {
		return 0, domain.NewStorageError("save document", err)
	}
	return id, nil
}

func (s *Store) SaveEmbedding(ctx context.Context, session, content string, vector []float64) error {
	var err error
	if s.vectorOK {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO embeddings (session_id, content, embedding) VALUES ($1, $2, $3::vector)`,
			session, content, encodeVector(vector),
		)
	} else {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO embeddings (session_id, content, embedding) VALUES ($1, $2, $3)`,
			session, content, encodeVector(vector),
		)
	}
	if err != nil {
		return domain.NewStorageError("save embedding", err)
	}
	return nil
}

func (s *Store) SaveChunk(ctx context.Context, session, content string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO embeddings (session_id, content) VALUES ($1, $2)`,
		session, content,
	)
	if err != nil {
		return domain.NewStorageError("save chunk", err)
	}
	return nil
}

func (s *Store) LatestDocument(ctx context.Context, session string) (string, bool, error) {
	var content string
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM documents WHERE session_id = $1 ORDER BY id DESC LIMIT 1`,
		session,
	).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.NewStorageError("latest document", err)
	}
	return content, true, nil
}

func (s *Store) SimilaritySearch(ctx context.Context, session string, vector []float64, k int) ([]string, error) {
	if !s.vectorOK {
		return nil, domain.NewStorageError("similarity search", errors.New("pgvector extension not installed"))
	}
	if k <= 0 {
		k = 5
	}
	rows, err := s.pool.Query(ctx,
		`SELECT content FROM embeddings
		 WHERE session_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <-> $2::vector LIMIT $3`,
		session, encodeVector(vector), k,
	)
	if err != nil {
		return nil, domain.NewStorageError("similarity search", err)
	}
	defer rows.Close()
	var contents []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, domain.NewStorageError("similarity search", err)
		}
		contents = append(contents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("similarity search", err)
	}
	return contents, nil
}

func (s *Store) Append(ctx context.Context, session string, role domain.Role, content string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (session_id, role, content) VALUES ($1, $2, $3)`,
		session, string(role), content,
	)
	if err != nil {
		return domain.NewStorageError("append message", err)
	}
	return nil
}

func (s *Store) RecentHistory(ctx context.Context, session string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT role, content, created_at FROM messages
		 WHERE session_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		session, limit,
	)
	if err != nil {
		return nil, domain.NewStorageError("recent history", err)
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		m := domain.Message{Session: session}
		var role string
		if err := rows.Scan(&role, &m.Content, &m.CreatedAt); err != nil {
			return nil, domain.NewStorageError("recent history", err)
		}
		m.Role = domain.Role(role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("recent history", err)
	}
	// rows came newest-first; callers expect chronological order
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// encodeVector renders a vector in the pgvector text format, e.g. [1,2,3].
func encodeVector(vector []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
