package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mfenderov/kb-assistant/internal/assistant"
	"github.com/mfenderov/kb-assistant/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Matcher returns scored knowledge-base matches.
type Matcher interface {
	Matches(ctx context.Context, query string) ([]models.SearchMatch, error)
}

// Server exposes the assistant tools over the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	matcher   Matcher
}

// NewServer registers every tool of the toolbox. When matcher is non-nil a
// search_matches tool returning raw scored chunks is added as well.
func NewServer(config Config, tools *assistant.Toolbox, matcher Matcher) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{mcpServer: mcpServer, matcher: matcher}

	for _, tool := range tools.Tools() {
		mcpTool := mcp.NewTool(tool.Name,
			mcp.WithDescription(tool.Description),
			mcp.WithString(tool.Param.Name,
				mcp.Required(),
				mcp.Description(tool.Param.Description),
			),
		)
		mcpServer.AddTool(mcpTool, toolHandler(tool))
	}

	if matcher != nil {
		matchesTool := mcp.NewTool("search_matches",
			mcp.WithDescription("Search the knowledge base and return the matching chunks with their similarity scores as JSON."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search query string"),
			),
		)
		mcpServer.AddTool(matchesTool, s.matchesHandler)
	}

	return s
}

// toolHandler adapts an assistant tool to an MCP tool handler.
func toolHandler(tool assistant.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		arg, err := req.RequireString(tool.Param.Name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s parameter is required", tool.Param.Name)), nil
		}

		out, err := tool.Call(ctx, arg)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool.Name, err)), nil
		}

		return mcp.NewToolResultText(out), nil
	}
}

// matchesHandler handles the search_matches tool call.
func (s *Server) matchesHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	matches, err := s.matcher.Matches(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	result, err := json.Marshal(matches)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
