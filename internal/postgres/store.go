// Package postgres stores the knowledge base in PostgreSQL with the
// pgvector extension.
package postgres

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfenderov/kb-assistant/internal/vectorstore"
	"github.com/mfenderov/kb-assistant/pkg/models"
	"github.com/pgvector/pgvector-go"
)

// Config holds pgvector store configuration.
type Config struct {
	DSN       string
	Table     string
	Dimension int
}

// Store is a pgvector-backed vectorstore.Store.
type Store struct {
	pool      *pgxpool.Pool
	table     string
	ident     string
	dimension int
}

// New connects to Postgres and creates the extension, table and index when
// absent. The table is never dropped.
func New(ctx context.Context, config Config) (*Store, error) {
	if config.Table == "" {
		return nil, fmt.Errorf("table is required")
	}
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", config.Dimension)
	}

	pool, err := pgxpool.New(ctx, config.DSN)
	if err != nil {
		return nil, &vectorstore.Error{Op: "connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &vectorstore.Error{Op: "connect", Err: err}
	}

	s := &Store{
		pool:      pool,
		table:     config.Table,
		ident:     pgx.Identifier{config.Table}.Sanitize(),
		dimension: config.Dimension,
	}
	if err := s.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	index := pgx.Identifier{s.table + "_embedding_idx"}.Sanitize()
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			embedding_id UUID PRIMARY KEY,
			text TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.ident, s.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`, index, s.ident),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &vectorstore.Error{Op: "init", Err: err}
		}
	}
	slog.Debug("pgvector table ready", "table", s.table, "dimension", s.dimension)
	return nil
}

// Add inserts docs in a single transaction.
func (s *Store) Add(ctx context.Context, docs []models.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	for _, d := range docs {
		if err := vectorstore.CheckDimension("add", s.dimension, d.Embedding); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &vectorstore.Error{Op: "add", Err: err}
	}
	defer tx.Rollback(ctx)

	insert := fmt.Sprintf(`INSERT INTO %s (embedding_id, text, embedding) VALUES ($1, $2, $3)`, s.ident)
	batch := &pgx.Batch{}
	for _, d := range docs {
		id, err := documentID(d.ID)
		if err != nil {
			return &vectorstore.Error{Op: "add", Err: err}
		}
		batch.Queue(insert, id, d.Text, pgvector.NewVector(d.Embedding))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return &vectorstore.Error{Op: "add", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &vectorstore.Error{Op: "add", Err: err}
	}
	return nil
}

func documentID(id string) (uuid.UUID, error) {
	if id == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(id)
}

// defaultEFSearch is pgvector's default hnsw.ef_search.
const defaultEFSearch = 40

// efSearch returns the HNSW candidate list size for a query returning
// maxResults rows. The index scan yields at most ef_search rows.
func efSearch(maxResults int) int {
	return max(defaultEFSearch, maxResults)
}

// Search ranks documents by cosine similarity using the HNSW index. The
// index supplies the maxResults nearest rows and minScore is applied to
// those, so the threshold never discards index candidates.
func (s *Store) Search(ctx context.Context, query []float32, maxResults int, minScore float64) ([]models.SearchMatch, error) {
	if err := vectorstore.CheckDimension("search", s.dimension, query); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, &vectorstore.Error{Op: "search", Err: err}
	}
	defer tx.Rollback(ctx)

	// SET does not take bind parameters.
	if _, err := tx.Exec(ctx, fmt.Sprintf(`SET LOCAL hnsw.ef_search = %d`, efSearch(maxResults))); err != nil {
		return nil, &vectorstore.Error{Op: "search", Err: err}
	}

	sql := fmt.Sprintf(`
		SELECT text, score FROM (
			SELECT text, 1 - (embedding <=> $1) AS score
			FROM %s
			ORDER BY embedding <=> $1
			LIMIT $2
		) nearest
		WHERE score >= $3
		ORDER BY score DESC`, s.ident)

	rows, err := tx.Query(ctx, sql, pgvector.NewVector(query), maxResults, minScore)
	if err != nil {
		return nil, &vectorstore.Error{Op: "search", Err: err}
	}
	defer rows.Close()

	var matches []models.SearchMatch
	for rows.Next() {
		var m models.SearchMatch
		if err := rows.Scan(&m.Text, &m.Score); err != nil {
			return nil, &vectorstore.Error{Op: "search", Err: err}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &vectorstore.Error{Op: "search", Err: err}
	}

	return vectorstore.Rank(matches, maxResults, minScore), nil
}

// Populated reports whether the table exists in the current schema and has
// at least one row.
func (s *Store) Populated(ctx context.Context) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, s.table).Scan(&exists)
	if err != nil {
		return false, &vectorstore.Error{Op: "inspect", Err: err}
	}
	if !exists {
		return false, nil
	}

	var hasRows bool
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s)`, s.ident)).Scan(&hasRows); err != nil {
		return false, &vectorstore.Error{Op: "inspect", Err: err}
	}
	return hasRows, nil
}

// Count returns the number of rows in the table.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.ident)).Scan(&n); err != nil {
		return 0, &vectorstore.Error{Op: "count", Err: err}
	}
	return n, nil
}

// Lock takes a session-level advisory lock keyed on the table name. The
// returned func releases it.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, &vectorstore.Error{Op: "lock", Err: err}
	}

	key := lockKey(s.table)
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		conn.Release()
		return nil, &vectorstore.Error{Op: "lock", Err: err}
	}

	return func() {
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, key); err != nil {
			slog.Warn("failed to release advisory lock", "table", s.table, "error", err)
		}
		conn.Release()
	}, nil
}

func lockKey(table string) int64 {
	h := fnv.New64a()
	h.Write([]byte("kb-assistant:" + table))
	return int64(h.Sum64())
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
