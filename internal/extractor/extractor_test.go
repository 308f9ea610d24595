package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mfenderov/kb-assistant/internal/chunker"
	"github.com/mfenderov/kb-assistant/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func newTestExtractor(f Fetcher) *Extractor {
	return New(f, chunker.NewDefault(), DefaultConfig())
}

func extractFixture(t *testing.T, name string) []string {
	t.Helper()
	chunks, err := newTestExtractor(nil).ExtractHTML(strings.NewReader(loadFixture(t, name)))
	require.NoError(t, err)
	return chunks
}

func assertChunkInvariants(t *testing.T, chunks []string) {
	t.Helper()
	seen := make(map[string]bool)
	for _, c := range chunks {
		assert.Equal(t, strings.TrimSpace(c), c, "chunk should be trimmed")
		assert.Greater(t, utf8.RuneCountInString(c), 50, "chunk too short: %q", c)
		assert.False(t, seen[c], "duplicate chunk: %q", c)
		seen[c] = true
	}
}

func findPrefix(chunks []string, prefix string) (string, bool) {
	for _, c := range chunks {
		if strings.HasPrefix(c, prefix) {
			return c, true
		}
	}
	return "", false
}

func TestExtractHTML_ProductPage(t *testing.T) {
	chunks := extractFixture(t, "product_page.html")

	require.NotEmpty(t, chunks)
	assertChunkInvariants(t, chunks)

	t.Run("overview from title and meta description", func(t *testing.T) {
		assert.Contains(t, chunks, "CDQ Fraud Guard | Stop payment fraud before it happens\n\n"+
			"CDQ Fraud Guard protects companies against payment fraud by validating bank account data against a shared trust network.")
	})

	t.Run("section chunk joins heading and paragraphs", func(t *testing.T) {
		assert.Contains(t, chunks, "Real-time transaction monitoring\n\n"+
			"Transactions are screened in real time against fraud patterns, sanctions lists and known risky counterparties.")
	})

	t.Run("class-based section container", func(t *testing.T) {
		_, ok := findPrefix(chunks, "Anti-money laundering compliance\n\n")
		assert.True(t, ok)
	})

	t.Run("irrelevant paragraph dropped from section", func(t *testing.T) {
		hero, ok := findPrefix(chunks, "CDQ Fraud Guard\n\n")
		require.True(t, ok)
		assert.NotContains(t, hero, "Book a demo")
	})

	t.Run("key points skip boilerplate items", func(t *testing.T) {
		kp, ok := findPrefix(chunks, "KEY POINTS:")
		require.True(t, ok)
		assert.Contains(t, kp, "- Detect bank account manipulation before payment runs")
		assert.Contains(t, kp, "- Seamless integration with SAP and other ERP systems")
		assert.NotContains(t, kp, "Follow us")
	})

	t.Run("heading context collects following siblings", func(t *testing.T) {
		sc, ok := findPrefix(chunks, "SECTION: Why finance teams choose Fraud Guard")
		require.True(t, ok)
		assert.Contains(t, sc, "Fraudsters increasingly impersonate suppliers")
		assert.NotContains(t, sc, "Tiny.", "collection stops at the next heading")
	})

	t.Run("short headings ignored", func(t *testing.T) {
		_, ok := findPrefix(chunks, "SECTION: Short")
		assert.False(t, ok)
	})

	t.Run("page chrome stripped", func(t *testing.T) {
		for _, c := range chunks {
			lower := strings.ToLower(c)
			assert.NotContains(t, lower, "cookie")
			assert.NotContains(t, lower, "all rights reserved")
			assert.NotContains(t, lower, "privacy policy")
			assert.NotContains(t, c, "Related article")
		}
	})
}

func TestExtractHTML_BodyFallbackWithoutMainRoot(t *testing.T) {
	chunks := extractFixture(t, "sparse_page.html")

	assert.Equal(t, []string{
		"Fraud Guard validates supplier bank accounts against a trusted data pool maintained by its members.",
	}, chunks)
}

func TestExtractHTML_BoilerplateOnlyPageIsEmpty(t *testing.T) {
	chunks := extractFixture(t, "boilerplate_page.html")

	assert.Empty(t, chunks)
}

func TestExtractHTML_SingleLongParagraphYieldsChunk(t *testing.T) {
	page := `<html><body><div><p>Payment fraud prevention works best when bank data is verified continuously.</p></div></body></html>`

	chunks, err := newTestExtractor(nil).ExtractHTML(strings.NewReader(page))
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Payment fraud prevention works best when bank data is verified continuously.", chunks[0])
}

func TestExtractHTML_DeduplicatesIdenticalSections(t *testing.T) {
	section := `<section><h2>Supplier bank account validation</h2>
		<p>Every supplier bank account is validated against shared fraud cases before the first payment is released.</p></section>`
	page := "<html><body><main>" + section + section + "</main></body></html>"

	chunks, err := newTestExtractor(nil).ExtractHTML(strings.NewReader(page))
	require.NoError(t, err)

	assertChunkInvariants(t, chunks)
	count := 0
	for _, c := range chunks {
		if strings.HasPrefix(c, "Supplier bank account validation\n\n") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtractHTML_NavigationSectionsIgnored(t *testing.T) {
	page := `<html><body><main>
		<div class="section-nav"><h2>Platform overview links</h2>
		<p>Data quality cloud, business partner screening and fraud guard entry points.</p>
		<p>Further links for the platform overview, grouped by product family and region.</p></div>
	</main></body></html>`

	chunks, err := newTestExtractor(nil).ExtractHTML(strings.NewReader(page))
	require.NoError(t, err)

	_, ok := findPrefix(chunks, "Platform overview links\n\n")
	assert.False(t, ok)
}

func TestMainContentHTML(t *testing.T) {
	got, err := newTestExtractor(nil).MainContentHTML(strings.NewReader(loadFixture(t, "product_page.html")))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "<main>"))
	assert.Contains(t, got, "Real-time transaction monitoring")
	assert.NotContains(t, got, "cookie-banner")
	assert.NotContains(t, got, "<footer>")
}

type stubFetcher struct {
	page *scraper.Page
	err  error
}

func (s stubFetcher) Fetch(context.Context, string) (*scraper.Page, error) {
	return s.page, s.err
}

func TestExtract_PropagatesFetchError(t *testing.T) {
	fetchErr := &scraper.FetchError{URL: "https://example.com", StatusCode: 503, Err: errors.New("unavailable")}
	e := newTestExtractor(stubFetcher{err: fetchErr})

	_, err := e.Extract(t.Context(), "https://example.com")

	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 503, fe.StatusCode)
}

func TestExtract_EmptyPage(t *testing.T) {
	e := newTestExtractor(stubFetcher{page: &scraper.Page{Body: []byte(loadFixture(t, "boilerplate_page.html"))}})

	_, err := e.Extract(t.Context(), "https://example.com")

	assert.ErrorIs(t, err, ErrEmpty)
}

func TestExtract_FetchesOverHTTP(t *testing.T) {
	fixture := loadFixture(t, "product_page.html")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(fixture))
	}))
	defer server.Close()

	e := newTestExtractor(scraper.New(scraper.Config{}))

	chunks, err := e.Extract(t.Context(), server.URL)
	require.NoError(t, err)

	want := extractFixture(t, "product_page.html")
	assert.Equal(t, want, chunks)
}

func TestNew_FillsZeroThresholds(t *testing.T) {
	e := New(nil, chunker.NewDefault(), Config{MinChunkLength: 80})

	assert.Equal(t, 80, e.config.MinChunkLength)
	assert.Equal(t, DefaultConfig().MinSectionLength, e.config.MinSectionLength)
	assert.Equal(t, DefaultConfig().MaxHeadingSiblings, e.config.MaxHeadingSiblings)
}

func TestExtractHTML_ClassTaggedHeadingsAndParagraphs(t *testing.T) {
	page := `<html><body><main>
		<section><h2>Plain section heading</h2>
		<p>Bank account data is validated against the shared trust network before each payment run.</p></section>
		<section><h2 class="section-title">Class tagged heading</h2>
		<p>Suspicious payment changes are flagged automatically so that fraud attempts are stopped early.</p></section>
		<section><h2>Class tagged paragraph</h2>
		<p class="text-block">Compliance teams receive a full audit trail for every validated supplier bank account.</p></section>
	</main></body></html>`

	chunks, err := newTestExtractor(nil).ExtractHTML(strings.NewReader(page))
	require.NoError(t, err)

	tests := []struct {
		heading   string
		paragraph string
	}{
		{"Plain section heading", "Bank account data is validated against the shared trust network before each payment run."},
		{"Class tagged heading", "Suspicious payment changes are flagged automatically so that fraud attempts are stopped early."},
		{"Class tagged paragraph", "Compliance teams receive a full audit trail for every validated supplier bank account."},
	}
	for _, tt := range tests {
		t.Run(tt.heading, func(t *testing.T) {
			assert.Contains(t, chunks, tt.heading+"\n\n"+tt.paragraph)
		})
	}
}

func TestExtractHTML_WrapperSectionNotRepeated(t *testing.T) {
	page := `<html><body><main><div class="features-wrapper">
		<div class="feature"><h3>Shared fraud cases</h3>
		<p>Fraud cases reported by one member are shared with all participants of the trust network.</p></div>
	</div></main></body></html>`

	chunks, err := newTestExtractor(nil).ExtractHTML(strings.NewReader(page))
	require.NoError(t, err)

	count := 0
	for _, c := range chunks {
		if strings.HasPrefix(c, "Shared fraud cases\n\n") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
