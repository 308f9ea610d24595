// Package redis stores the knowledge base in Redis Stack using a RediSearch
// HNSW vector index over hashes.
package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mfenderov/kb-assistant/internal/vectorstore"
	"github.com/mfenderov/kb-assistant/pkg/models"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultEFConstruction = 200
	defaultM              = 16

	fieldText   = "text"
	fieldVector = "embedding"
	fieldScore  = "score"
)

// Config holds Redis connection and index configuration.
type Config struct {
	Addr      string
	Password  string
	DB        int
	Index     string
	Dimension int
}

// Store is a Redis-backed vectorstore.Store.
type Store struct {
	client    *goredis.Client
	index     string
	prefix    string
	dimension int
}

// New connects to Redis and creates the vector index when absent.
func New(ctx context.Context, config Config) (*Store, error) {
	if config.Index == "" {
		return nil, fmt.Errorf("index is required")
	}
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", config.Dimension)
	}

	// RESP2 keeps FT.* replies as flat arrays.
	client := goredis.NewClient(&goredis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		Protocol: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &vectorstore.Error{Op: "connect", Err: err}
	}

	s := &Store{
		client:    client,
		index:     config.Index,
		prefix:    config.Index + ":",
		dimension: config.Dimension,
	}
	if err := s.ensureIndex(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndex(ctx context.Context) error {
	if _, err := s.client.Do(ctx, "FT.INFO", s.index).Result(); err == nil {
		return nil
	}

	_, err := s.client.Do(ctx, "FT.CREATE", s.index,
		"ON", "HASH",
		"PREFIX", "1", s.prefix,
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dimension),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(defaultEFConstruction),
		"M", strconv.Itoa(defaultM),
		fieldText, "TEXT",
	).Result()
	if err != nil {
		return &vectorstore.Error{Op: "init", Err: fmt.Errorf("failed to create index: %w", err)}
	}
	return nil
}

// Add writes docs in one MULTI/EXEC transaction.
func (s *Store) Add(ctx context.Context, docs []models.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	for _, d := range docs {
		if err := vectorstore.CheckDimension("add", s.dimension, d.Embedding); err != nil {
			return err
		}
	}

	pipe := s.client.TxPipeline()
	for _, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		pipe.HSet(ctx, s.prefix+id,
			fieldText, d.Text,
			fieldVector, encodeVector(d.Embedding),
		)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return &vectorstore.Error{Op: "add", Err: fmt.Errorf("failed to insert documents: %w", err)}
	}
	return nil
}

// Search runs a KNN query. RediSearch reports cosine distance, which is
// converted to similarity.
func (s *Store) Search(ctx context.Context, query []float32, maxResults int, minScore float64) ([]models.SearchMatch, error) {
	if err := vectorstore.CheckDimension("search", s.dimension, query); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		return nil, nil
	}

	knn := fmt.Sprintf("*=>[KNN %d @%s $vec AS %s]", maxResults, fieldVector, fieldScore)
	result, err := s.client.Do(ctx, "FT.SEARCH", s.index, knn,
		"PARAMS", "2", "vec", encodeVector(query),
		"RETURN", "2", fieldText, fieldScore,
		"SORTBY", fieldScore,
		"LIMIT", "0", strconv.Itoa(maxResults),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, &vectorstore.Error{Op: "search", Err: fmt.Errorf("vector search failed: %w", err)}
	}

	matches, err := parseSearchResults(result)
	if err != nil {
		return nil, &vectorstore.Error{Op: "search", Err: err}
	}
	return vectorstore.Rank(matches, maxResults, minScore), nil
}

// parseSearchResults reads a RESP2 FT.SEARCH reply:
// [total, key1, [field, value, ...], key2, [...], ...].
func parseSearchResults(result any) ([]models.SearchMatch, error) {
	values, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result format %T", result)
	}

	var matches []models.SearchMatch
	for i := 1; i+1 < len(values); i += 2 {
		fields, ok := values[i+1].([]any)
		if !ok {
			continue
		}

		var m models.SearchMatch
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].(string)
			value, _ := fields[j+1].(string)
			switch name {
			case fieldText:
				m.Text = value
			case fieldScore:
				distance, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid score %q: %w", value, err)
				}
				m.Score = 1 - distance
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Count returns the number of indexed documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	result, err := s.client.Do(ctx, "FT.INFO", s.index).Result()
	if err != nil {
		return 0, &vectorstore.Error{Op: "count", Err: err}
	}
	n, err := numDocs(result)
	if err != nil {
		return 0, &vectorstore.Error{Op: "count", Err: err}
	}
	return n, nil
}

// Populated reports whether the index exists and holds any document.
func (s *Store) Populated(ctx context.Context) (bool, error) {
	result, err := s.client.Do(ctx, "FT.INFO", s.index).Result()
	if err != nil {
		if isUnknownIndex(err) {
			return false, nil
		}
		return false, &vectorstore.Error{Op: "inspect", Err: err}
	}
	n, err := numDocs(result)
	if err != nil {
		return false, &vectorstore.Error{Op: "inspect", Err: err}
	}
	return n > 0, nil
}

func isUnknownIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown index") || strings.Contains(msg, "no such index")
}

// numDocs extracts num_docs from a RESP2 FT.INFO reply.
func numDocs(result any) (int, error) {
	values, ok := result.([]any)
	if !ok {
		return 0, fmt.Errorf("unexpected FT.INFO format %T", result)
	}
	for i := 0; i+1 < len(values); i += 2 {
		if key, _ := values[i].(string); key != "num_docs" {
			continue
		}
		switch v := values[i+1].(type) {
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid num_docs %q: %w", v, err)
			}
			return int(f), nil
		case int64:
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("num_docs missing from FT.INFO")
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}
