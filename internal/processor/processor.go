package processor

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// ContentSelector narrows a page down to its main-content HTML.
type ContentSelector interface {
	MainContentHTML(r io.Reader) (string, error)
}

// Processor renders the main content of a page as Markdown, the way the
// extractor sees it.
type Processor struct {
	selector ContentSelector
}

// New creates a Processor. A nil selector converts whole pages.
func New(selector ContentSelector) *Processor {
	return &Processor{selector: selector}
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// Markdown converts the main content of page to Markdown.
func (p *Processor) Markdown(page []byte) (string, error) {
	content := string(page)
	if p.selector != nil {
		var err error
		content, err = p.selector.MainContentHTML(bytes.NewReader(page))
		if err != nil {
			return "", fmt.Errorf("failed to select main content: %w", err)
		}
	}
	return Convert(content)
}

// Convert transforms HTML content into Markdown.
func Convert(htmlContent string) (string, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return "", nil
	}

	markdown, err := htmltomarkdown.ConvertString(htmlContent)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML: %w", err)
	}

	markdown = blankLines.ReplaceAllString(markdown, "\n\n")
	return strings.TrimSpace(markdown), nil
}

// Title returns the <title> of page.
func Title(page []byte) string {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	var title string
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if find(c) {
				return true
			}
		}
		return false
	}
	find(doc)

	return strings.TrimSpace(title)
}
