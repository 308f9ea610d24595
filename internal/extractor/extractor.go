// Package extractor turns a marketing-style web page into de-duplicated,
// quality-filtered text chunks ready for embedding.
//
// Extraction runs as an ordered rule table: strip page chrome, pick the
// main-content root, then emit overview, section, paragraph, key-point and
// heading-context chunks. Every emitted chunk is trimmed, length-filtered and
// de-duplicated before it is returned.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mfenderov/kb-assistant/internal/scraper"
)

// FallbackContent is indexed instead of page content when the page cannot be
// fetched.
const FallbackContent = "CDQ Fraud Guard is an AML (Anti-Money Laundering) solution that helps financial institutions " +
	"detect money laundering risks, monitor transactions, and ensure compliance with global regulations.\n\n" +
	"Key features include real-time transaction monitoring, risk assessment, regulatory compliance automation, " +
	"and machine learning-based fraud detection."

// ErrEmpty is returned when a page was fetched but no chunk survived
// filtering.
var ErrEmpty = errors.New("no content survived filtering")

// Fetcher retrieves raw pages.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*scraper.Page, error)
}

// Splitter breaks long text into bounded chunks.
type Splitter interface {
	Split(text string) []string
}

// Config holds the extraction thresholds. Lengths are in characters and
// every comparison is strict (a chunk must exceed the threshold).
type Config struct {
	MinChunkLength     int
	MinSectionLength   int
	MinParagraphLength int
	MinSectionChunks   int
	MaxHeadingSiblings int
	MinHeadingLength   int
}

// DefaultConfig returns the thresholds tuned for product marketing pages.
func DefaultConfig() Config {
	return Config{
		MinChunkLength:     50,
		MinSectionLength:   100,
		MinParagraphLength: 30,
		MinSectionChunks:   5,
		MaxHeadingSiblings: 5,
		MinHeadingLength:   10,
	}
}

// Extractor fetches a page and extracts its chunks.
type Extractor struct {
	fetcher  Fetcher
	splitter Splitter
	config   Config
}

// New creates an Extractor. Zero-valued thresholds fall back to
// DefaultConfig.
func New(fetcher Fetcher, splitter Splitter, config Config) *Extractor {
	def := DefaultConfig()
	if config.MinChunkLength == 0 {
		config.MinChunkLength = def.MinChunkLength
	}
	if config.MinSectionLength == 0 {
		config.MinSectionLength = def.MinSectionLength
	}
	if config.MinParagraphLength == 0 {
		config.MinParagraphLength = def.MinParagraphLength
	}
	if config.MinSectionChunks == 0 {
		config.MinSectionChunks = def.MinSectionChunks
	}
	if config.MaxHeadingSiblings == 0 {
		config.MaxHeadingSiblings = def.MaxHeadingSiblings
	}
	if config.MinHeadingLength == 0 {
		config.MinHeadingLength = def.MinHeadingLength
	}
	return &Extractor{
		fetcher:  fetcher,
		splitter: splitter,
		config:   config,
	}
}

// Extract fetches url and returns its chunks. A fetch failure is returned
// as *scraper.FetchError; a page with no surviving chunks yields ErrEmpty.
func (e *Extractor) Extract(ctx context.Context, url string) ([]string, error) {
	page, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	chunks, err := e.ExtractHTML(bytes.NewReader(page.Body))
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrEmpty
	}

	slog.Debug("extracted chunks", "url", url, "count", len(chunks))
	return chunks, nil
}

// ExtractHTML runs the extraction rules over an HTML document.
func (e *Extractor) ExtractHTML(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var chunks []string
	chunks = append(chunks, e.overview(doc)...)

	root := mainContent(doc)

	sections := e.sections(root)
	chunks = append(chunks, sections...)
	if len(sections) < e.config.MinSectionChunks {
		chunks = append(chunks, e.paragraphs(root)...)
	}

	chunks = append(chunks, e.keyPoints(root)...)
	chunks = append(chunks, e.headingContext(root)...)

	return e.finalize(chunks), nil
}

// MainContentHTML returns the HTML of the main-content root after noise
// removal.
func (e *Extractor) MainContentHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var b strings.Builder
	mainContent(doc).Each(func(_ int, s *goquery.Selection) {
		h, err := goquery.OuterHtml(s)
		if err == nil {
			b.WriteString(h)
		}
	})
	return b.String(), nil
}

func (e *Extractor) overview(doc *goquery.Document) []string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	description := strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	if title == "" || description == "" {
		return nil
	}
	return []string{title + "\n\n" + description}
}

func (e *Extractor) sections(root *goquery.Selection) []string {
	var chunks []string
	root.Find(sectionSelector).Each(func(_ int, s *goquery.Selection) {
		if isNavigationContainer(s) {
			return
		}
		// Innermost sections only; wrappers would repeat their children.
		if hasNestedSection(s) {
			return
		}

		heading := textOf(s.Find(anyHeadingSelector).First())
		if heading == "" {
			return
		}

		var paragraphs []string
		s.Find("p").Each(func(_ int, p *goquery.Selection) {
			if text := textOf(p); IsRelevantContent(text) {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) == 0 {
			return
		}

		chunk := heading + "\n\n" + strings.Join(paragraphs, "\n")
		if runeLen(chunk) > e.config.MinSectionLength {
			chunks = append(chunks, chunk)
		}
	})
	return chunks
}

func (e *Extractor) paragraphs(root *goquery.Selection) []string {
	var texts []string
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := textOf(p)
		if runeLen(text) > e.config.MinParagraphLength && IsRelevantContent(text) {
			texts = append(texts, text)
		}
	})
	if len(texts) == 0 {
		return nil
	}
	return e.splitter.Split(strings.Join(texts, "\n\n"))
}

func (e *Extractor) keyPoints(root *goquery.Selection) []string {
	var chunks []string
	root.Find(listSelector).Each(func(_ int, list *goquery.Selection) {
		var b strings.Builder
		b.WriteString("KEY POINTS:")
		items := 0
		list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			if text := textOf(li); IsRelevantContent(text) {
				b.WriteString("\n- ")
				b.WriteString(text)
				items++
			}
		})
		if items == 0 {
			return
		}
		if chunk := b.String(); runeLen(chunk) > e.config.MinChunkLength {
			chunks = append(chunks, chunk)
		}
	})
	return chunks
}

func (e *Extractor) headingContext(root *goquery.Selection) []string {
	var chunks []string
	root.Find(headingSelector).Each(func(_ int, h *goquery.Selection) {
		heading := textOf(h)
		if runeLen(heading) <= e.config.MinHeadingLength || !IsRelevantContent(heading) {
			return
		}

		var b strings.Builder
		b.WriteString("SECTION: ")
		b.WriteString(heading)

		sibling := h.Next()
		for i := 0; i < e.config.MaxHeadingSiblings && sibling.Length() > 0; i++ {
			if sibling.Is(anyHeadingSelector) {
				break
			}
			if text := textOf(sibling); text != "" {
				b.WriteString("\n")
				b.WriteString(text)
			}
			sibling = sibling.Next()
		}

		if chunk := b.String(); runeLen(chunk) > e.config.MinChunkLength {
			chunks = append(chunks, chunk)
		}
	})
	return chunks
}

// finalize trims, drops short chunks and removes exact duplicates, keeping
// first occurrences in order.
func (e *Extractor) finalize(chunks []string) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if runeLen(c) <= e.config.MinChunkLength {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
