package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mfenderov/kb-assistant/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRank(t *testing.T) {
	matches := []models.SearchMatch{
		{Text: "low", Score: 0.05},
		{Text: "mid", Score: 0.5},
		{Text: "high", Score: 0.9},
		{Text: "edge", Score: 0.1},
		{Text: "mid-2", Score: 0.5},
	}

	t.Run("filters, orders and keeps ties stable", func(t *testing.T) {
		got := Rank(matches, 10, 0.1)
		assert.Equal(t, []string{"high", "mid", "mid-2", "edge"}, models.Texts(got))
	})

	t.Run("truncates to max results", func(t *testing.T) {
		got := Rank(matches, 2, 0)
		assert.Equal(t, []string{"high", "mid"}, models.Texts(got))
	})

	t.Run("zero max results", func(t *testing.T) {
		assert.Empty(t, Rank(matches, 0, 0))
	})

	t.Run("nothing above threshold", func(t *testing.T) {
		assert.Empty(t, Rank(matches, 10, 0.95))
	})
}

func TestMemory_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(3)

	require.NoError(t, store.Add(ctx, []models.IndexedDocument{
		{Text: "fraud", Embedding: []float32{1, 0, 0}},
		{Text: "aml", Embedding: []float32{0.8, 0.6, 0}},
		{Text: "weather", Embedding: []float32{0, 0, 1}},
	}))

	matches, err := store.Search(ctx, []float32{1, 0, 0}, 10, 0.1)
	require.NoError(t, err)

	assert.Equal(t, []string{"fraud", "aml"}, models.Texts(matches))
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Score, 0.1)
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMemory_EmptyStore(t *testing.T) {
	store := NewMemory(2)

	populated, err := store.Populated(context.Background())
	require.NoError(t, err)
	assert.False(t, populated)

	matches, err := store.Search(context.Background(), []float32{1, 0}, 10, 0.1)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemory_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(3)

	err := store.Add(ctx, []models.IndexedDocument{
		{Text: "ok", Embedding: []float32{1, 0, 0}},
		{Text: "bad", Embedding: []float32{1, 0}},
	})
	var storeErr *Error
	require.True(t, errors.As(err, &storeErr))

	count, _ := store.Count(ctx)
	assert.Zero(t, count, "failed batch must not be partially stored")

	_, err = store.Search(ctx, []float32{1}, 10, 0)
	assert.True(t, errors.As(err, &storeErr))
}

func TestMemory_ConcurrentReads(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(2)
	var docs []models.IndexedDocument
	for i := range 50 {
		docs = append(docs, models.IndexedDocument{Text: fmt.Sprintf("doc %d", i), Embedding: []float32{float32(i), 1}})
	}
	require.NoError(t, store.Add(ctx, docs))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			matches, err := store.Search(ctx, []float32{1, 1}, 5, 0)
			assert.NoError(t, err)
			assert.Len(t, matches, 5)
		}()
	}
	wg.Wait()
}

func TestCheckDimension(t *testing.T) {
	assert.NoError(t, CheckDimension("add", 0, []float32{1, 2}))
	assert.NoError(t, CheckDimension("add", 2, []float32{1, 2}))
	assert.Error(t, CheckDimension("add", 3, []float32{1, 2}))
	assert.Error(t, CheckDimension("add", 0, nil))
}
