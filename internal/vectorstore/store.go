// Package vectorstore defines the contract shared by every vector backend
// and provides an in-memory implementation.
//
// Scores are cosine similarity: higher is closer, 1 is identical direction.
// Every backend funnels its candidates through Rank so ordering, the minimum
// score and the result limit behave the same regardless of the index.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mfenderov/kb-assistant/pkg/models"
)

// Store persists documents and answers similarity queries.
type Store interface {
	// Add appends docs. It does not de-duplicate.
	Add(ctx context.Context, docs []models.IndexedDocument) error
	// Search returns at most maxResults matches with score >= minScore,
	// ordered by descending score. No matches is not an error.
	Search(ctx context.Context, query []float32, maxResults int, minScore float64) ([]models.SearchMatch, error)
}

// Inspector reports whether the backing schema object exists and holds at
// least one document.
type Inspector interface {
	Populated(ctx context.Context) (bool, error)
}

// Counter reports the number of stored documents.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Locker serialises ingestion across processes sharing a store.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// Error is returned for any persistence failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("vector store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CheckDimension verifies vec has the configured dimension. A zero
// dimension accepts any length.
func CheckDimension(op string, dimension int, vec []float32) error {
	if len(vec) == 0 {
		return &Error{Op: op, Err: fmt.Errorf("empty embedding")}
	}
	if dimension > 0 && len(vec) != dimension {
		return &Error{Op: op, Err: fmt.Errorf("embedding has dimension %d, want %d", len(vec), dimension)}
	}
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank drops matches below minScore, sorts by descending score and keeps
// the first maxResults. Ties keep their input order.
func Rank(matches []models.SearchMatch, maxResults int, minScore float64) []models.SearchMatch {
	kept := make([]models.SearchMatch, 0, len(matches))
	for _, m := range matches {
		if m.Score >= minScore {
			kept = append(kept, m)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	if maxResults >= 0 && len(kept) > maxResults {
		kept = kept[:maxResults]
	}
	return kept
}
