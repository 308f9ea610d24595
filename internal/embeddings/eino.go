package embeddings

import (
	"context"
	"errors"
	"time"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
)

// EinoProvider adapts an eino Embedder to Provider.
type EinoProvider struct {
	embedder einoEmbedding.Embedder
	timeout  time.Duration
}

// NewEino wraps embedder. A positive timeout bounds every call.
func NewEino(embedder einoEmbedding.Embedder, timeout time.Duration) *EinoProvider {
	return &EinoProvider{embedder: embedder, timeout: timeout}
}

// OpenAIConfig configures an OpenAI-compatible embedding endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewOpenAI builds a Provider backed by the eino OpenAI embedder.
func NewOpenAI(ctx context.Context, config OpenAIConfig) (*EinoProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	if config.Model == "" {
		return nil, errors.New("model is required")
	}

	embedder, err := openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  config.APIKey,
		BaseURL: config.BaseURL,
		Model:   config.Model,
	})
	if err != nil {
		return nil, &Error{Op: "init", Err: err}
	}
	return NewEino(embedder, config.Timeout), nil
}

// Embed generates an embedding vector for the given text.
func (p *EinoProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedAll(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedAll embeds texts in one call, preserving order.
func (p *EinoProvider) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &Error{Op: "embed", Err: errors.New("no input")}
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = truncate(t)
	}

	raw, err := p.embedder.EmbedStrings(ctx, input)
	if err != nil {
		return nil, &Error{Op: "embed", Err: err}
	}

	vectors := make([][]float32, len(raw))
	for i, vec := range raw {
		vectors[i] = make([]float32, len(vec))
		for j, v := range vec {
			vectors[i][j] = float32(v)
		}
	}

	if err := checkVectors("embed", vectors, len(texts)); err != nil {
		return nil, err
	}
	return vectors, nil
}
