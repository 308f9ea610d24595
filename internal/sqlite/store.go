// Package sqlite is an embedded vectorstore.Store on a single SQLite file.
// Vectors are stored as little-endian float32 BLOBs and ranked with a full
// scan, which is fine for a knowledge base built from one page.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"github.com/mfenderov/kb-assistant/internal/vectorstore"
	"github.com/mfenderov/kb-assistant/pkg/models"

	_ "modernc.org/sqlite" // SQLite driver
)

var validTable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds SQLite store configuration.
type Config struct {
	Path      string
	Table     string
	Dimension int
}

// Store is a SQLite-backed vectorstore.Store.
type Store struct {
	db        *sql.DB
	table     string
	dimension int
}

// New opens (or creates) the database file and the documents table.
func New(config Config) (*Store, error) {
	if !validTable.MatchString(config.Table) {
		return nil, fmt.Errorf("invalid table name %q", config.Table)
	}
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", config.Dimension)
	}
	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.Path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &vectorstore.Error{Op: "open", Err: err}
	}

	s := &Store{db: db, table: config.Table, dimension: config.Dimension}
	_, err = db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %q (
			embedding_id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			embedding BLOB NOT NULL
		)`, s.table))
	if err != nil {
		db.Close()
		return nil, &vectorstore.Error{Op: "init", Err: err}
	}
	return s, nil
}

// Add inserts docs in a single transaction.
func (s *Store) Add(ctx context.Context, docs []models.IndexedDocument) error {
	for _, d := range docs {
		if err := vectorstore.CheckDimension("add", s.dimension, d.Embedding); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &vectorstore.Error{Op: "add", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (embedding_id, text, embedding) VALUES (?, ?, ?)`, s.table))
	if err != nil {
		return &vectorstore.Error{Op: "add", Err: err}
	}
	defer stmt.Close()

	for _, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, id, d.Text, encodeVector(d.Embedding)); err != nil {
			return &vectorstore.Error{Op: "add", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &vectorstore.Error{Op: "add", Err: err}
	}
	return nil
}

// Search scans every row and ranks by cosine similarity.
func (s *Store) Search(ctx context.Context, query []float32, maxResults int, minScore float64) ([]models.SearchMatch, error) {
	if err := vectorstore.CheckDimension("search", s.dimension, query); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT text, embedding FROM %q`, s.table))
	if err != nil {
		return nil, &vectorstore.Error{Op: "search", Err: err}
	}
	defer rows.Close()

	var matches []models.SearchMatch
	for rows.Next() {
		var text string
		var blob []byte
		if err := rows.Scan(&text, &blob); err != nil {
			return nil, &vectorstore.Error{Op: "search", Err: err}
		}
		matches = append(matches, models.SearchMatch{
			Text:  text,
			Score: vectorstore.Cosine(query, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &vectorstore.Error{Op: "search", Err: err}
	}

	return vectorstore.Rank(matches, maxResults, minScore), nil
}

// Populated reports whether the table exists and has at least one row.
func (s *Store) Populated(ctx context.Context) (bool, error) {
	var tables int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, s.table).Scan(&tables)
	if err != nil {
		return false, &vectorstore.Error{Op: "inspect", Err: err}
	}
	if tables == 0 {
		return false, nil
	}

	var hasRows bool
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %q)`, s.table)).Scan(&hasRows); err != nil {
		return false, &vectorstore.Error{Op: "inspect", Err: err}
	}
	return hasRows, nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT count(*) FROM %q`, s.table)).Scan(&n); err != nil {
		return 0, &vectorstore.Error{Op: "count", Err: err}
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
