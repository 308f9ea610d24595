// Package chunker splits oversized text blocks into bounded-length chunks.
package chunker

import (
	"fmt"
	"strings"
)

// Strategy selects how chunk boundaries are chosen.
type Strategy string

const (
	// Fixed cuts the text into consecutive windows of at most MaxLength
	// characters, with no overlap.
	Fixed Strategy = "fixed"
	// Sentence accumulates ". "-separated sentences until the next one
	// would exceed MaxLength.
	Sentence Strategy = "sentence"
)

// Config holds chunking configuration.
type Config struct {
	Strategy  Strategy
	MaxLength int // in characters (runes)
}

// DefaultConfig returns the chunking used for page extraction.
func DefaultConfig() Config {
	return Config{
		Strategy:  Sentence,
		MaxLength: 500,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MaxLength <= 0 {
		return fmt.Errorf("MaxLength must be positive, got %d", c.MaxLength)
	}
	switch c.Strategy {
	case Fixed, Sentence:
		return nil
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
}

// Chunker splits text according to its configured strategy.
type Chunker struct {
	config Config
}

// New creates a new Chunker with the given configuration.
func New(cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: cfg}, nil
}

// MustNew creates a new Chunker, panicking on invalid config.
func MustNew(cfg Config) *Chunker {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// NewDefault creates a Chunker with default configuration.
func NewDefault() *Chunker {
	return MustNew(DefaultConfig())
}

// Config returns the chunker configuration.
func (c *Chunker) Config() Config {
	return c.config
}

// Split splits text using the configured strategy.
func (c *Chunker) Split(text string) []string {
	if c.config.Strategy == Fixed {
		return Split(text, c.config.MaxLength)
	}
	return SplitSentences(text, c.config.MaxLength)
}

// Split cuts text into consecutive windows of at most maxLength runes.
// Windows are trimmed and whitespace-only windows are dropped, so joining
// the result loses nothing but boundary whitespace.
func Split(text string, maxLength int) []string {
	if maxLength <= 0 {
		return nil
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += maxLength {
		end := min(start+maxLength, len(runes))
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// SplitSentences splits text on ". " and packs whole sentences into chunks of
// at most budget runes. A single sentence longer than budget is cut with
// Split.
func SplitSentences(text string, budget int) []string {
	if budget <= 0 {
		return nil
	}

	parts := strings.Split(text, ". ")
	var (
		chunks  []string
		current strings.Builder
		size    int
	)

	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		size = 0
	}

	for i, part := range parts {
		sentence := part
		if i < len(parts)-1 {
			sentence += "."
		}
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		n := len([]rune(sentence))
		if n > budget {
			flush()
			chunks = append(chunks, Split(sentence, budget)...)
			continue
		}

		sep := 0
		if size > 0 {
			sep = 1
		}
		if size > 0 && size+sep+n > budget {
			flush()
			sep = 0
		}
		if sep == 1 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
		size += sep + n
	}
	flush()

	return chunks
}
