package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/mfenderov/kb-assistant/internal/vectorstore"
	"github.com/mfenderov/kb-assistant/pkg/models"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
	Dimension int
}

// Client stores knowledge-base documents in an Elasticsearch index with a
// dense_vector field and answers kNN queries.
type Client struct {
	es        *elasticsearch.Client
	index     string
	dimension int
}

// New creates a new Elasticsearch client.
func New(config Config) (*Client, error) {
	if config.Index == "" {
		return nil, fmt.Errorf("index is required")
	}
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", config.Dimension)
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return &Client{
		es:        es,
		index:     config.Index,
		dimension: config.Dimension,
	}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

func (c *Client) indexMapping() string {
	return fmt.Sprintf(`{
	"mappings": {
		"properties": {
			"text": { "type": "text", "analyzer": "english" },
			"embedding": {
				"type": "dense_vector",
				"dims": %d,
				"index": true,
				"similarity": "cosine"
			}
		}
	}
}`, c.dimension)
}

// CreateIndex creates the index with the vector mapping if it is absent.
func (c *Client) CreateIndex(ctx context.Context) error {
	exists, err := c.indexExists(ctx)
	if err != nil {
		return &vectorstore.Error{Op: "init", Err: err}
	}
	if exists {
		return nil
	}

	res, err := c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader([]byte(c.indexMapping()))),
	)
	if err != nil {
		return &vectorstore.Error{Op: "init", Err: fmt.Errorf("failed to create index: %w", err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &vectorstore.Error{Op: "init", Err: fmt.Errorf("error creating index: %s", res.String())}
	}
	return nil
}

func (c *Client) indexExists(ctx context.Context) (bool, error) {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()
	return res.StatusCode == 200, nil
}

type indexedSource struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// Add indexes docs with one bulk request and waits for them to become
// searchable.
func (c *Client) Add(ctx context.Context, docs []models.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, d := range docs {
		if err := vectorstore.CheckDimension("add", c.dimension, d.Embedding); err != nil {
			return err
		}
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		meta := map[string]any{"index": map[string]any{"_index": c.index, "_id": id}}
		if err := enc.Encode(meta); err != nil {
			return &vectorstore.Error{Op: "add", Err: err}
		}
		if err := enc.Encode(indexedSource{Text: d.Text, Embedding: d.Embedding}); err != nil {
			return &vectorstore.Error{Op: "add", Err: err}
		}
	}

	res, err := c.es.Bulk(
		&body,
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithRefresh("wait_for"),
	)
	if err != nil {
		return &vectorstore.Error{Op: "add", Err: fmt.Errorf("bulk request failed: %w", err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &vectorstore.Error{Op: "add", Err: fmt.Errorf("bulk error: %s", res.String())}
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return &vectorstore.Error{Op: "add", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if br.Errors {
		for _, item := range br.Items {
			for _, result := range item {
				if result.Error != nil {
					return &vectorstore.Error{Op: "add", Err: fmt.Errorf("bulk item failed (status %d): %s", result.Status, result.Error.Reason)}
				}
			}
		}
		return &vectorstore.Error{Op: "add", Err: fmt.Errorf("bulk request reported errors")}
	}
	return nil
}

// searchResponse represents ES search response structure.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64       `json:"_score"`
			Source indexedSource `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs an approximate kNN query on the embedding field.
//
// With cosine similarity Elasticsearch scores hits as (1+cos)/2; scores are
// mapped back to cosine so thresholds mean the same for every backend.
func (c *Client) Search(ctx context.Context, query []float32, maxResults int, minScore float64) ([]models.SearchMatch, error) {
	if err := vectorstore.CheckDimension("search", c.dimension, query); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		return nil, nil
	}

	searchQuery := map[string]any{
		"knn": map[string]any{
			"field":          "embedding",
			"query_vector":   query,
			"k":              maxResults,
			"num_candidates": max(maxResults*10, 100),
			"similarity":     minScore,
		},
		"_source": []string{"text"},
		"size":    maxResults,
	}

	data, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, &vectorstore.Error{Op: "search", Err: fmt.Errorf("failed to marshal query: %w", err)}
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, &vectorstore.Error{Op: "search", Err: fmt.Errorf("search failed: %w", err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, &vectorstore.Error{Op: "search", Err: fmt.Errorf("search error: %s", res.String())}
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, &vectorstore.Error{Op: "search", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	matches := make([]models.SearchMatch, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		matches[i] = models.SearchMatch{Text: hit.Source.Text, Score: 2*hit.Score - 1}
	}
	return vectorstore.Rank(matches, maxResults, minScore), nil
}

type countResponse struct {
	Count int `json:"count"`
}

// Count returns the number of documents in the index.
func (c *Client) Count(ctx context.Context) (int, error) {
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(c.index),
	)
	if err != nil {
		return 0, &vectorstore.Error{Op: "count", Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, &vectorstore.Error{Op: "count", Err: fmt.Errorf("count error: %s", res.String())}
	}

	var cr countResponse
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return 0, &vectorstore.Error{Op: "count", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return cr.Count, nil
}

// Populated reports whether the index exists and holds any document.
func (c *Client) Populated(ctx context.Context) (bool, error) {
	exists, err := c.indexExists(ctx)
	if err != nil {
		return false, &vectorstore.Error{Op: "inspect", Err: err}
	}
	if !exists {
		return false, nil
	}

	n, err := c.Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
