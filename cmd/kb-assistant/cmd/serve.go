package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfenderov/kb-assistant/internal/api"
	"github.com/spf13/cobra"
)

var serveSkipIngest bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ingest the knowledge base, then start the chat API",
	Long: `Run knowledge-base ingestion once and start the HTTP chat API.

Ingestion never prevents startup: when it fails the server still starts and
the knowledge tool answers from whatever the store holds.

Routes:
  POST /api/chat       {"question": "..."} -> {"answer": "..."}
  GET  /check/healthy  liveness
  GET  /metrics        prometheus metrics

Example:
  kb-assistant serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveSkipIngest, "skip-ingest", false, "Start without running ingestion")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	if !serveSkipIngest {
		p, err := a.pipeline(false)
		if err != nil {
			return err
		}
		result := p.Run(ctx)
		slog.Info("startup ingestion finished",
			"skipped", result.Skipped,
			"fallback", result.UsedFallback,
			"docs", result.DocsIndexed,
			"duration", result.Duration)
	}

	qa, err := a.questionAnswering(ctx)
	if err != nil {
		return err
	}

	server := api.NewApp(qa, a.metrics)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("chat API listening", "addr", a.cfg.Server.Addr)
		errCh <- server.Listen(a.cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down chat API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.ShutdownWithContext(shutdownCtx)
}
