package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mfenderov/kb-assistant/internal/embeddings"
	"github.com/mfenderov/kb-assistant/internal/vectorstore"
	"github.com/mfenderov/kb-assistant/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// topics are the axes of the keyword embedder.
var topics = [][]string{
	{"fraud"},
	{"aml", "anti-money laundering", "money laundering"},
	{"compliance", "compliant", "regulat"},
	{"risk"},
	{"weather", "temperature", "sunny"},
}

// keywordEmbedder maps text onto topic axes. Text matching no topic gets a
// vector on a private axis, orthogonal to everything else.
type keywordEmbedder struct {
	err   error
	calls int
}

func (e *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(topics)+1)
	hit := false
	for i, words := range topics {
		for _, w := range words {
			if strings.Contains(lower, w) {
				v[i] = 1
				hit = true
				break
			}
		}
	}
	if !hit {
		v[len(topics)] = 1
	}
	return v
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *keywordEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func seed(t *testing.T, embedder *keywordEmbedder, texts ...string) *vectorstore.Memory {
	t.Helper()
	store := vectorstore.NewMemory(len(topics) + 1)
	docs := make([]models.IndexedDocument, len(texts))
	for i, text := range texts {
		docs[i] = models.IndexedDocument{Text: text, Embedding: embedder.vector(text)}
	}
	require.NoError(t, store.Add(context.Background(), docs))
	return store
}

func TestSearch_FindsSeededChunk(t *testing.T) {
	embedder := &keywordEmbedder{}
	chunk := "CDQ Fraud Guard is an AML solution that helps financial institutions detect money laundering risks."
	store := seed(t, embedder, chunk)

	got, err := New(embedder, store, nil, DefaultConfig()).Search(context.Background(), "fraud detection")

	require.NoError(t, err)
	assert.NotEqual(t, NoResults, got)
	assert.Contains(t, got, chunk)
}

func TestSearch_ComplianceScenario(t *testing.T) {
	embedder := &keywordEmbedder{}
	seeded := []string{
		"Anti-Money Laundering (AML) solutions help prevent financial crimes.",
		"Risk assessment tools for compliance.",
	}
	store := seed(t, embedder, seeded...)

	got, err := New(embedder, store, nil, DefaultConfig()).Search(context.Background(), "compliance")

	require.NoError(t, err)
	assert.NotEmpty(t, got)
	assert.True(t, strings.Contains(got, seeded[0]) || strings.Contains(got, seeded[1]))
}

func TestSearch_NoResults(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
	}{
		{"empty store", nil},
		{"unrelated documents", []string{"Sunny weather with mild temperature expected all week."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &keywordEmbedder{}
			store := seed(t, embedder, tt.texts...)

			got, err := New(embedder, store, nil, DefaultConfig()).Search(context.Background(), "fraud detection")

			require.NoError(t, err)
			assert.Equal(t, NoResults, got)
		})
	}
}

func TestSearch_JoinsInScoreOrder(t *testing.T) {
	embedder := &keywordEmbedder{}
	store := seed(t, embedder,
		"Risk scoring for suppliers.",
		"Fraud risk and AML compliance in one platform.",
		"Fraud prevention for payments.",
	)

	got, err := New(embedder, store, nil, DefaultConfig()).Search(context.Background(), "fraud")

	require.NoError(t, err)
	parts := strings.Split(got, "\n\n")
	require.Len(t, parts, 2)
	assert.Equal(t, "Fraud prevention for payments.", parts[0])
}

func TestSearch_RespectsMaxResults(t *testing.T) {
	embedder := &keywordEmbedder{}
	store := seed(t, embedder, "fraud one", "fraud two", "fraud three")

	cfg := DefaultConfig()
	cfg.MaxResults = 2
	matches, err := New(embedder, store, nil, cfg).Matches(context.Background(), "fraud")

	require.NoError(t, err)
	assert.Len(t, matches, 2)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Score, cfg.MinScore)
	}
}

func TestSearch_SurfacesEmbeddingError(t *testing.T) {
	embedder := &keywordEmbedder{}
	store := seed(t, embedder, "fraud")
	embedder.err = &embeddings.Error{Op: "embed", Err: errors.New("connection refused")}

	got, err := New(embedder, store, nil, DefaultConfig()).Search(context.Background(), "fraud")

	var target *embeddings.Error
	require.ErrorAs(t, err, &target)
	assert.Empty(t, got)
}

type brokenStore struct{}

func (brokenStore) Add(context.Context, []models.IndexedDocument) error { return nil }

func (brokenStore) Search(context.Context, []float32, int, float64) ([]models.SearchMatch, error) {
	return nil, &vectorstore.Error{Op: "search", Err: errors.New("pool closed")}
}

func TestSearch_SurfacesStoreError(t *testing.T) {
	_, err := New(&keywordEmbedder{}, brokenStore{}, nil, DefaultConfig()).Search(context.Background(), "fraud")

	var target *vectorstore.Error
	require.ErrorAs(t, err, &target)
}

type slowEmbedder struct{}

func (slowEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	<-ctx.Done()
	return nil, &embeddings.Error{Op: "embed", Err: ctx.Err()}
}

func (slowEmbedder) EmbedAll(ctx context.Context, _ []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSearch_BoundedByTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := New(slowEmbedder{}, vectorstore.NewMemory(0), nil, cfg).Search(context.Background(), "fraud")

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSearch_ReembedsEveryCall(t *testing.T) {
	embedder := &keywordEmbedder{}
	store := seed(t, embedder, "fraud")
	embedder.calls = 0
	svc := New(embedder, store, nil, DefaultConfig())

	svc.Search(context.Background(), "fraud")
	svc.Search(context.Background(), "fraud")

	assert.Equal(t, 2, embedder.calls)
}
