// Package embeddings turns text into fixed-dimension vectors.
package embeddings

import (
	"context"
	"fmt"
)

// Provider produces embedding vectors. Vectors returned by one Provider
// always share the same dimension.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedAll(ctx context.Context, texts []string) ([][]float32, error)
}

// Error is returned for any embedding failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MaxInputChars limits a single input to stay within the model context
// window. Longer text is truncated from the end.
const MaxInputChars = 8000

func truncate(text string) string {
	if len(text) <= MaxInputChars {
		return text
	}
	// Avoid cutting a multi-byte rune in half.
	cut := MaxInputChars
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut]
}

// checkVectors validates a provider response against the number of inputs.
func checkVectors(op string, vectors [][]float32, want int) error {
	if len(vectors) != want {
		return &Error{Op: op, Err: fmt.Errorf("got %d vectors for %d inputs", len(vectors), want)}
	}
	dim := -1
	for i, v := range vectors {
		if len(v) == 0 {
			return &Error{Op: op, Err: fmt.Errorf("empty vector at index %d", i)}
		}
		if dim >= 0 && len(v) != dim {
			return &Error{Op: op, Err: fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)}
		}
		dim = len(v)
	}
	return nil
}

// Dimensions returns the embedding dimensions for common models.
func Dimensions(model string) int {
	switch model {
	case "nomic-embed-text", "ai/embeddinggemma":
		return 768
	case "mxbai-embed-large", "ai/snowflake-arctic-embed":
		return 1024
	case "all-minilm":
		return 384
	case "text-embedding-3-small":
		return 1536
	case "text-embedding-3-large":
		return 3072
	default:
		return 768
	}
}
