// Package llm builds the tool-calling chat model used by the assistant.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Config holds chat model configuration.
type Config struct {
	BaseURL     string  // OpenAI-compatible server, e.g. "http://localhost:11434"
	Model       string  // e.g. "qwen2.5:1.5b"
	APIKey      string  // optional bearer token
	Temperature float64 // sampling temperature
	Timeout     time.Duration
}

// New creates an OpenAI-compatible chat model. BaseURL may be given with or
// without the "/v1" suffix.
func New(ctx context.Context, config Config) (model.ToolCallingChatModel, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}

	temperature := float32(config.Temperature)

	chatModel, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:      config.APIKey,
		BaseURL:     apiBase(config.BaseURL),
		Model:       config.Model,
		Temperature: &temperature,
		Timeout:     config.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return chatModel, nil
}

// apiBase returns the base URL the chat completions path is appended to.
func apiBase(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}
