package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mfenderov/kb-assistant/internal/extractor"
	"github.com/mfenderov/kb-assistant/internal/processor"
	"github.com/mfenderov/kb-assistant/internal/scraper"
	"github.com/spf13/cobra"
)

var (
	extractURL      string
	extractMarkdown bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Show what ingestion would extract from a page",
	Long: `Fetch a page and print the chunks ingestion would embed, without touching
the vector store.

Examples:
  # Chunks of the configured source page
  kb-assistant extract

  # Chunks of another page
  kb-assistant extract --url https://example.com/product

  # The main content rendered as Markdown
  kb-assistant extract --markdown`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractURL, "url", "", "URL to extract (default is source.url)")
	extractCmd.Flags().BoolVar(&extractMarkdown, "markdown", false, "Print the main content as Markdown instead of chunks")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	if extractURL == "" {
		extractURL = cfg.Source.URL
	}
	slog.Debug("extract command starting", "url", extractURL, "markdown", extractMarkdown)

	ext, err := newExtractor(cfg)
	if err != nil {
		return err
	}

	if extractMarkdown {
		page, err := scraper.New(scraper.Config{
			UserAgent: cfg.Source.UserAgent,
			Timeout:   cfg.Source.Timeout,
		}).Fetch(ctx, extractURL)
		if err != nil {
			return err
		}

		markdown, err := processor.New(ext).Markdown(page.Body)
		if err != nil {
			return err
		}

		if title := processor.Title(page.Body); title != "" {
			fmt.Printf("# %s\n\n", title)
		}
		fmt.Println(markdown)
		return nil
	}

	chunks, err := ext.Extract(ctx, extractURL)
	if errors.Is(err, extractor.ErrEmpty) {
		fmt.Println("No content survived filtering.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Extracted %d chunks from %s:\n\n", len(chunks), extractURL)
	for i, chunk := range chunks {
		fmt.Printf("─── Chunk %d (%d chars) ───\n%s\n\n", i+1, len([]rune(chunk)), chunk)
	}
	return nil
}
