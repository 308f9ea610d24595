package processor

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		contains []string
	}{
		{
			name:     "converts headings",
			html:     `<main><h1>Fraud Guard</h1><h2>Trust scores</h2></main>`,
			contains: []string{"# Fraud Guard", "## Trust scores"},
		},
		{
			name:     "converts paragraphs",
			html:     `<main><p>Detect fraud early.</p><p>Protect payments.</p></main>`,
			contains: []string{"Detect fraud early.", "Protect payments."},
		},
		{
			name:     "converts lists",
			html:     `<main><ul><li>Item 1</li><li>Item 2</li></ul></main>`,
			contains: []string{"Item 1", "Item 2"},
		},
		{
			name:     "converts links",
			html:     `<p>See <a href="https://example.com">the datasheet</a>.</p>`,
			contains: []string{"[the datasheet](https://example.com)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Convert(tt.html)
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}

			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("expected output to contain %q, got:\n%s", expected, result)
				}
			}
		})
	}
}

func TestConvert_EmptyInput(t *testing.T) {
	result, err := Convert("   ")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if result != "" {
		t.Errorf("Convert() = %q, want empty", result)
	}
}

type fixedSelector struct {
	html string
	err  error
}

func (f fixedSelector) MainContentHTML(io.Reader) (string, error) {
	return f.html, f.err
}

func TestProcessor_MarkdownUsesSelector(t *testing.T) {
	p := New(fixedSelector{html: `<main><h2>Selected</h2></main>`})

	result, err := p.Markdown([]byte(`<html><body><h1>Ignored</h1></body></html>`))
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if !strings.Contains(result, "## Selected") {
		t.Errorf("expected selected content, got:\n%s", result)
	}
	if strings.Contains(result, "Ignored") {
		t.Errorf("content outside the selection leaked:\n%s", result)
	}
}

func TestProcessor_MarkdownSelectorError(t *testing.T) {
	p := New(fixedSelector{err: errors.New("boom")})

	if _, err := p.Markdown([]byte("<html></html>")); err == nil {
		t.Fatal("Markdown() should fail when the selector fails")
	}
}

func TestProcessor_MarkdownWholePage(t *testing.T) {
	result, err := New(nil).Markdown([]byte(`<html><body><h1>Whole</h1></body></html>`))
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if !strings.Contains(result, "# Whole") {
		t.Errorf("expected heading, got:\n%s", result)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{"with title", `<html><head><title> Page Title </title></head><body></body></html>`, "Page Title"},
		{"no title", `<html><body><p>No title here</p></body></html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title([]byte(tt.page)); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}
