// Package retrieval answers knowledge-base queries with the text of the
// most similar stored chunks.
package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mfenderov/kb-assistant/internal/embeddings"
	"github.com/mfenderov/kb-assistant/internal/metrics"
	"github.com/mfenderov/kb-assistant/internal/vectorstore"
	"github.com/mfenderov/kb-assistant/pkg/models"
)

// NoResults is returned by Search when nothing matches.
const NoResults = "No relevant information found"

// Config holds similarity search parameters.
type Config struct {
	MaxResults int
	MinScore   float64
	Timeout    time.Duration
}

// DefaultConfig returns the reference search parameters.
func DefaultConfig() Config {
	return Config{MaxResults: 10, MinScore: 0.1, Timeout: 30 * time.Second}
}

// Service embeds queries and searches the vector store. It holds no
// mutable state and is safe for concurrent use.
type Service struct {
	embedder embeddings.Provider
	store    vectorstore.Store
	metrics  *metrics.Metrics
	config   Config
}

// New creates a retrieval Service.
func New(embedder embeddings.Provider, store vectorstore.Store, m *metrics.Metrics, config Config) *Service {
	return &Service{embedder: embedder, store: store, metrics: m, config: config}
}

// Search returns the matched texts joined by a blank line, or NoResults.
// Embedding and store failures are returned, never hidden behind NoResults.
func (s *Service) Search(ctx context.Context, query string) (string, error) {
	matches, err := s.Matches(ctx, query)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return NoResults, nil
	}
	return strings.Join(models.Texts(matches), "\n\n"), nil
}

// Matches returns the ranked matches for query.
func (s *Service) Matches(ctx context.Context, query string) (matches []models.SearchMatch, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeHit
		switch {
		case err != nil:
			outcome = metrics.OutcomeError
		case len(matches) == 0:
			outcome = metrics.OutcomeMiss
		}
		s.metrics.Retrieval(outcome, time.Since(start))
	}()

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		slog.Error("failed to embed query", "error", err)
		return nil, err
	}

	matches, err = s.store.Search(ctx, vector, s.config.MaxResults, s.config.MinScore)
	if err != nil {
		slog.Error("vector search failed", "error", err)
		return nil, err
	}

	slog.Debug("knowledge base searched", "query", query, "matches", len(matches), "took", time.Since(start))
	return matches, nil
}
