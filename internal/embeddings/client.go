package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config holds the Ollama embeddings client configuration.
type Config struct {
	BaseURL string        // e.g. "http://localhost:11434"
	Model   string        // e.g. "nomic-embed-text"
	Timeout time.Duration // per request
}

// Client talks to the Ollama /api/embed endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// New creates a new embeddings client.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		model:      config.Model,
	}, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed generates an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedAll(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedAll embeds texts in a single request, preserving order.
func (c *Client) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &Error{Op: "embed", Err: errors.New("no input")}
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = truncate(t)
	}
	slog.Debug("generating embeddings", "model", c.model, "inputs", len(input))

	body, err := json.Marshal(embedRequest{Model: c.model, Input: input})
	if err != nil {
		return nil, &Error{Op: "embed", Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Op: "embed", Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: "embed", Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: "embed", Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Op: "embed", Err: fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))}
	}

	var out embedResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &Error{Op: "embed", Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	if out.Error != "" {
		return nil, &Error{Op: "embed", Err: fmt.Errorf("API error: %s", out.Error)}
	}

	if err := checkVectors("embed", out.Embeddings, len(texts)); err != nil {
		return nil, err
	}
	return out.Embeddings, nil
}
