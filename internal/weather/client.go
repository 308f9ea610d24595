// Package weather reads current temperatures from a weather MCP server over
// JSON-RPC 2.0.
package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const toolName = "get_current_weather"

// Config holds weather client configuration.
type Config struct {
	URL     string // e.g. "http://localhost:3333/mcp"
	Units   string // "metric" or "imperial"
	Timeout time.Duration
}

// Client calls the get_current_weather tool.
type Client struct {
	httpClient *http.Client
	url        string
	units      string
}

// New creates a new weather client.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if config.Units == "" {
		config.Units = "metric"
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		url:        config.URL,
		units:      config.Units,
	}, nil
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result *struct {
		Temperature *float64 `json:"temperature"`
	} `json:"result"`
	Error *rpcError `json:"error,omitempty"`
}

// CurrentTemperature returns the current temperature in city, in the
// configured units (Celsius for metric).
func (c *Client) CurrentTemperature(ctx context.Context, city string) (float64, error) {
	slog.Info("fetching current temperature", "city", city)

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "tools/call",
		Params: rpcParams{
			Name:      toolName,
			Arguments: map[string]any{"city": city, "units": c.units},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call MCP tool %s: %w", toolName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("MCP error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return 0, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return 0, fmt.Errorf("MCP error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil || rpcResp.Result.Temperature == nil {
		return 0, fmt.Errorf("temperature missing in MCP response: %s", string(respBody))
	}

	return *rpcResp.Result.Temperature, nil
}
