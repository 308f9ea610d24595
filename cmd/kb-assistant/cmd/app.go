package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mfenderov/kb-assistant/internal/assistant"
	"github.com/mfenderov/kb-assistant/internal/chunker"
	"github.com/mfenderov/kb-assistant/internal/config"
	"github.com/mfenderov/kb-assistant/internal/countries"
	"github.com/mfenderov/kb-assistant/internal/elasticsearch"
	"github.com/mfenderov/kb-assistant/internal/embeddings"
	"github.com/mfenderov/kb-assistant/internal/extractor"
	"github.com/mfenderov/kb-assistant/internal/ingestion"
	"github.com/mfenderov/kb-assistant/internal/llm"
	"github.com/mfenderov/kb-assistant/internal/metrics"
	"github.com/mfenderov/kb-assistant/internal/postgres"
	"github.com/mfenderov/kb-assistant/internal/redis"
	"github.com/mfenderov/kb-assistant/internal/retrieval"
	"github.com/mfenderov/kb-assistant/internal/scraper"
	"github.com/mfenderov/kb-assistant/internal/sqlite"
	"github.com/mfenderov/kb-assistant/internal/vectorstore"
	"github.com/mfenderov/kb-assistant/internal/weather"
)

// app holds the components shared by the commands.
type app struct {
	cfg       config.Config
	metrics   *metrics.Metrics
	embedder  embeddings.Provider
	store     vectorstore.Store
	retrieval *retrieval.Service
	closers   []func() error
}

// newApp builds the embedder, vector store and retrieval service.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{cfg: cfg, metrics: metrics.New()}

	embedder, err := newEmbedder(ctx, cfg.Embeddings)
	if err != nil {
		return nil, err
	}
	a.embedder = embedder

	if dim := embeddings.Dimensions(cfg.Embeddings.Model); dim != cfg.VectorStore.Dimension {
		slog.Warn("vector dimension differs from the known model dimension",
			"model", cfg.Embeddings.Model, "model_dimension", dim, "configured", cfg.VectorStore.Dimension)
	}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	a.retrieval = retrieval.New(a.embedder, a.store, a.metrics, retrieval.Config{
		MaxResults: cfg.Retrieval.MaxResults,
		MinScore:   cfg.Retrieval.MinScore,
		Timeout:    cfg.Retrieval.Timeout,
	})

	return a, nil
}

func newEmbedder(ctx context.Context, cfg config.Embeddings) (embeddings.Provider, error) {
	switch cfg.Provider {
	case "openai":
		p, err := embeddings.NewOpenAI(ctx, embeddings.OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai embedder: %w", err)
		}
		return p, nil
	default:
		c, err := embeddings.New(embeddings.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings client: %w", err)
		}
		return c, nil
	}
}

func (a *app) openStore(ctx context.Context) error {
	vs := a.cfg.VectorStore
	slog.Debug("opening vector store", "backend", vs.Backend, "table", vs.Table, "dimension", vs.Dimension)

	switch vs.Backend {
	case "pgvector":
		s, err := postgres.New(ctx, postgres.Config{DSN: vs.Postgres.DSN, Table: vs.Table, Dimension: vs.Dimension})
		if err != nil {
			return fmt.Errorf("failed to open pgvector store: %w", err)
		}
		a.store = s
		a.closers = append(a.closers, s.Close)
	case "sqlite":
		s, err := sqlite.New(sqlite.Config{Path: vs.SQLite.Path, Table: vs.Table, Dimension: vs.Dimension})
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.store = s
		a.closers = append(a.closers, s.Close)
	case "elasticsearch":
		c, err := elasticsearch.New(elasticsearch.Config{
			Addresses: vs.Elasticsearch.Addresses,
			Index:     vs.Table,
			Username:  vs.Elasticsearch.Username,
			Password:  vs.Elasticsearch.Password,
			Dimension: vs.Dimension,
		})
		if err != nil {
			return fmt.Errorf("failed to create ES client: %w", err)
		}
		if err := c.CreateIndex(ctx); err != nil {
			return fmt.Errorf("failed to create ES index: %w", err)
		}
		a.store = c
	case "redis":
		s, err := redis.New(ctx, redis.Config{
			Addr:      vs.Redis.Addr,
			Password:  vs.Redis.Password,
			DB:        vs.Redis.DB,
			Index:     vs.Table,
			Dimension: vs.Dimension,
		})
		if err != nil {
			return fmt.Errorf("failed to open redis store: %w", err)
		}
		a.store = s
		a.closers = append(a.closers, s.Close)
	case "memory":
		a.store = vectorstore.NewMemory(vs.Dimension)
	default:
		return fmt.Errorf("unknown vector store backend %q", vs.Backend)
	}
	return nil
}

// newExtractor builds the page extractor from configuration.
func newExtractor(cfg config.Config) (*extractor.Extractor, error) {
	split, err := chunker.New(chunker.Config{
		Strategy:  chunker.Strategy(cfg.Extraction.ChunkStrategy),
		MaxLength: cfg.Extraction.ChunkSize,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid chunker configuration: %w", err)
	}

	fetcher := scraper.New(scraper.Config{
		UserAgent: cfg.Source.UserAgent,
		Timeout:   cfg.Source.Timeout,
	})

	return extractor.New(fetcher, split, extractor.DefaultConfig()), nil
}

// pipeline builds the ingestion pipeline over the app's store.
func (a *app) pipeline(force bool) (*ingestion.Pipeline, error) {
	ext, err := newExtractor(a.cfg)
	if err != nil {
		return nil, err
	}

	return ingestion.New(ext, a.embedder, a.store, a.metrics, ingestion.Config{
		SourceURL:       a.cfg.Source.URL,
		FallbackOnEmpty: a.cfg.Extraction.FallbackOnEmpty,
		Force:           force,
	}), nil
}

// toolbox builds the assistant tools over the retrieval service and the
// countries and weather clients.
func (a *app) toolbox() (*assistant.Toolbox, error) {
	countriesClient := countries.New(countries.Config{
		BaseURL: a.cfg.Countries.BaseURL,
		Timeout: a.cfg.Countries.Timeout,
	})

	weatherClient, err := weather.New(weather.Config{
		URL:     a.cfg.Weather.URL,
		Units:   a.cfg.Weather.Units,
		Timeout: a.cfg.Weather.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create weather client: %w", err)
	}

	return assistant.NewToolbox(countriesClient, weatherClient, a.retrieval, a.metrics), nil
}

// questionAnswering builds the chat model, agent and question answering
// service.
func (a *app) questionAnswering(ctx context.Context) (*assistant.QuestionAnswering, error) {
	tools, err := a.toolbox()
	if err != nil {
		return nil, err
	}

	chatModel, err := llm.New(ctx, llm.Config{
		BaseURL:     a.cfg.LLM.BaseURL,
		Model:       a.cfg.LLM.Model,
		APIKey:      a.cfg.LLM.APIKey,
		Temperature: a.cfg.LLM.Temperature,
		Timeout:     a.cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	agent, err := assistant.NewAgent(chatModel, tools, a.cfg.LLM.MaxSteps)
	if err != nil {
		return nil, err
	}
	return assistant.NewQuestionAnswering(agent), nil
}

// Close releases store connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
