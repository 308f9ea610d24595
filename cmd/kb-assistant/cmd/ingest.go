package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the configured source page into the vector store",
	Long: `Fetch the configured source page, extract and embed its chunks and store
them in the vector store.

Ingestion is skipped when the store already holds documents unless --force
is given.

Examples:
  # Ingest once
  kb-assistant ingest

  # Re-ingest even when the store is populated
  kb-assistant ingest --force`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "Skip the already-ingested check")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	slog.Debug("ingest command starting", "source", cfg.Source.URL, "force", ingestForce)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipeline(ingestForce)
	if err != nil {
		return err
	}

	fmt.Printf("Ingesting: %s\n", cfg.Source.URL)

	result := p.Run(ctx)

	if result.Skipped {
		fmt.Println("\nKnowledge base already populated, nothing to do (use --force to re-ingest).")
		return nil
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Chunks extracted: %d\n", result.ChunksExtracted)
	fmt.Printf("  Docs indexed: %d\n", result.DocsIndexed)
	fmt.Printf("  Used fallback: %v\n", result.UsedFallback)
	fmt.Printf("  Duration: %v\n", result.Duration)

	if result.Err != nil {
		return fmt.Errorf("ingestion failed: %w", result.Err)
	}
	return nil
}
