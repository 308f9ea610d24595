package vectorstore

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/mfenderov/kb-assistant/pkg/models"
)

// Memory is a process-local Store. It is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	docs      []models.IndexedDocument
}

// NewMemory creates an empty store for vectors of the given dimension.
func NewMemory(dimension int) *Memory {
	return &Memory{dimension: dimension}
}

// Add appends docs atomically: either all are stored or none.
func (m *Memory) Add(_ context.Context, docs []models.IndexedDocument) error {
	stored := make([]models.IndexedDocument, len(docs))
	for i, d := range docs {
		if err := CheckDimension("add", m.dimension, d.Embedding); err != nil {
			return err
		}
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.Embedding = slices.Clone(d.Embedding)
		stored[i] = d
	}

	m.mu.Lock()
	m.docs = append(m.docs, stored...)
	m.mu.Unlock()
	return nil
}

// Search scans every document.
func (m *Memory) Search(_ context.Context, query []float32, maxResults int, minScore float64) ([]models.SearchMatch, error) {
	if err := CheckDimension("search", m.dimension, query); err != nil {
		return nil, err
	}

	m.mu.RLock()
	matches := make([]models.SearchMatch, len(m.docs))
	for i, d := range m.docs {
		matches[i] = models.SearchMatch{Text: d.Text, Score: Cosine(query, d.Embedding)}
	}
	m.mu.RUnlock()

	return Rank(matches, maxResults, minScore), nil
}

// Populated reports whether any document has been added.
func (m *Memory) Populated(context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs) > 0, nil
}

// Count returns the number of stored documents.
func (m *Memory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}
