package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mfenderov/kb-assistant/internal/config"
	"github.com/mfenderov/kb-assistant/internal/vectorstore"
)

func TestNewApp_Backends(t *testing.T) {
	tests := []struct {
		name    string
		backend string
	}{
		{"memory", "memory"},
		{"sqlite", "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.VectorStore.Backend = tt.backend
			cfg.VectorStore.SQLite.Path = filepath.Join(t.TempDir(), "kb.db")

			a, err := newApp(context.Background(), cfg)
			if err != nil {
				t.Fatalf("newApp() error = %v", err)
			}
			defer a.Close()

			if _, ok := a.store.(vectorstore.Inspector); !ok {
				t.Errorf("%s store does not implement Inspector", tt.backend)
			}
			if a.retrieval == nil {
				t.Error("retrieval service not built")
			}
		})
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.VectorStore.Backend = "cassandra"

	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Error("newApp() expected error for unknown backend")
	}
}

func TestApp_AssistantWiring(t *testing.T) {
	cfg := config.Defaults()
	cfg.VectorStore.Backend = "memory"

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}

	tools, err := a.toolbox()
	if err != nil {
		t.Fatalf("toolbox() error = %v", err)
	}
	if got := len(tools.Tools()); got != 4 {
		t.Errorf("toolbox has %d tools, want 4", got)
	}

	if _, err := a.questionAnswering(context.Background()); err != nil {
		t.Errorf("questionAnswering() error = %v", err)
	}

	if _, err := a.pipeline(false); err != nil {
		t.Errorf("pipeline() error = %v", err)
	}
}
