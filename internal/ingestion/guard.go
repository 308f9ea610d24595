package ingestion

import (
	"context"
	"log/slog"

	"github.com/mfenderov/kb-assistant/internal/vectorstore"
)

// Guard decides whether the knowledge base has already been ingested.
type Guard struct {
	inspector vectorstore.Inspector
}

// NewGuard creates a Guard over inspector. A nil inspector never reports
// the store as ingested.
func NewGuard(inspector vectorstore.Inspector) *Guard {
	return &Guard{inspector: inspector}
}

// AlreadyIngested reports whether the store exists and holds at least one
// document. Check failures are logged and treated as not ingested so the
// run can proceed and surface the real error itself.
func (g *Guard) AlreadyIngested(ctx context.Context) bool {
	if g == nil || g.inspector == nil {
		return false
	}

	populated, err := g.inspector.Populated(ctx)
	if err != nil {
		slog.Warn("ingestion guard check failed, treating store as empty", "error", err)
		return false
	}
	return populated
}
