package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var searchFormat string

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Search the knowledge base the same way the assistant's knowledge tool does.

Examples:
  # Basic search
  kb-assistant search "what is fraud guard"

  # JSON output with similarity scores
  kb-assistant search "trust score" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := args[0]

	a, err := newApp(ctx, GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	if searchFormat != "json" {
		text, err := a.retrieval.Search(ctx, query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		fmt.Println(text)
		return nil
	}

	matches, err := a.retrieval.Matches(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	output, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}
