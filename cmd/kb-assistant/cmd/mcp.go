package cmd

import (
	"context"
	"fmt"

	"github.com/mfenderov/kb-assistant/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the MCP server exposing the assistant tools.

The server communicates via stdio and provides:
  - getCapitalCity, getCityInformation, getCurrentTemperature
  - searchCDQProductKnowledge: knowledge-base search as text
  - search_matches: knowledge-base search as scored JSON

Example:
  kb-assistant mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	tools, err := a.toolbox()
	if err != nil {
		return err
	}

	server := mcp.NewServer(mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}, tools, a.retrieval)

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
