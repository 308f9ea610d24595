// Package ingestion builds the knowledge base: extract chunks from the
// source page, embed them and persist them, at most once per store.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfenderov/kb-assistant/internal/embeddings"
	"github.com/mfenderov/kb-assistant/internal/extractor"
	"github.com/mfenderov/kb-assistant/internal/metrics"
	"github.com/mfenderov/kb-assistant/internal/vectorstore"
	"github.com/mfenderov/kb-assistant/pkg/models"
)

// Extractor produces chunks for a URL.
type Extractor interface {
	Extract(ctx context.Context, url string) ([]string, error)
}

// Config holds ingestion pipeline configuration.
type Config struct {
	SourceURL string
	// FallbackOnEmpty indexes the fallback content when the page was
	// fetched but no chunk survived filtering.
	FallbackOnEmpty bool
	// Force skips the already-ingested check.
	Force bool
}

// Result holds ingestion execution results.
type Result struct {
	Skipped         bool
	UsedFallback    bool
	ChunksExtracted int
	DocsIndexed     int
	Duration        time.Duration
	Err             error
}

// Pipeline wires extraction, embedding and storage together.
type Pipeline struct {
	extractor Extractor
	embedder  embeddings.Provider
	store     vectorstore.Store
	guard     *Guard
	metrics   *metrics.Metrics
	config    Config
}

// New creates a Pipeline. The guard inspects store when it implements
// vectorstore.Inspector.
func New(ext Extractor, embedder embeddings.Provider, store vectorstore.Store, m *metrics.Metrics, config Config) *Pipeline {
	inspector, _ := store.(vectorstore.Inspector)
	return &Pipeline{
		extractor: ext,
		embedder:  embedder,
		store:     store,
		guard:     NewGuard(inspector),
		metrics:   m,
		config:    config,
	}
}

// Run performs one ingestion. It never returns an error or panics; failures
// are logged and recorded in Result.Err.
func (p *Pipeline) Run(ctx context.Context) (result Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("ingestion panicked: %v", r)
			slog.Error("ingestion failed", "error", result.Err)
		}
		result.Duration = time.Since(start)
		p.metrics.IngestionRun(outcome(result), result.DocsIndexed)
	}()

	if locker, ok := p.store.(vectorstore.Locker); ok {
		unlock, err := locker.Lock(ctx)
		if err != nil {
			slog.Warn("failed to acquire ingestion lock, continuing without it", "error", err)
		} else {
			defer unlock()
		}
	}

	if !p.config.Force && p.guard.AlreadyIngested(ctx) {
		slog.Info("knowledge base already ingested, skipping")
		result.Skipped = true
		return result
	}

	slog.Info("starting ingestion", "url", p.config.SourceURL)

	chunks, err := p.extractor.Extract(ctx, p.config.SourceURL)
	switch {
	case errors.Is(err, extractor.ErrEmpty):
		slog.Warn("no content survived filtering", "url", p.config.SourceURL)
		if p.config.FallbackOnEmpty {
			chunks = []string{extractor.FallbackContent}
			result.UsedFallback = true
		}
	case err != nil:
		slog.Error("failed to extract content, using fallback content", "url", p.config.SourceURL, "error", err)
		chunks = []string{extractor.FallbackContent}
		result.UsedFallback = true
	}

	chunks = dedupe(chunks)
	result.ChunksExtracted = len(chunks)
	if len(chunks) == 0 {
		slog.Info("nothing to index", "url", p.config.SourceURL)
		return result
	}

	vectors, err := p.embedder.EmbedAll(ctx, chunks)
	if err != nil {
		result.Err = err
		slog.Error("failed to embed chunks, nothing persisted", "chunks", len(chunks), "error", err)
		return result
	}

	docs := make([]models.IndexedDocument, len(chunks))
	for i, text := range chunks {
		docs[i] = models.IndexedDocument{Text: text, Embedding: vectors[i]}
	}

	if err := p.store.Add(ctx, docs); err != nil {
		result.Err = err
		slog.Error("failed to persist documents", "docs", len(docs), "error", err)
		return result
	}

	result.DocsIndexed = len(docs)

	slog.Info("ingestion complete",
		"url", p.config.SourceURL,
		"docs_indexed", result.DocsIndexed,
		"fallback", result.UsedFallback,
		"duration", time.Since(start))
	return result
}

func outcome(r Result) string {
	switch {
	case r.Err != nil:
		return metrics.OutcomeFailed
	case r.Skipped:
		return metrics.OutcomeSkipped
	case r.UsedFallback:
		return metrics.OutcomeFallback
	default:
		return metrics.OutcomeIngested
	}
}

func dedupe(chunks []string) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := chunks[:0:0]
	for _, c := range chunks {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
