package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	// DefaultUserAgent mimics a desktop browser; marketing sites often
	// serve reduced markup to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
	DefaultTimeout   = 10 * time.Second
)

// Config holds scraper configuration.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Page is a fetched HTML document. It lives only for the duration of one
// extraction.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// FetchError reports that a page could not be retrieved: transport failure,
// timeout, cancellation or a non-success status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Scraper fetches single web pages.
type Scraper struct {
	config Config
}

// New creates a new Scraper with the given configuration.
func New(config Config) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	return &Scraper{config: config}
}

// Fetch retrieves pageURL. Any failure is returned as *FetchError.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	var (
		page     *Page
		fetchErr error
		aborted  bool
	)

	// A fresh collector per fetch: colly refuses to revisit URLs.
	c := colly.NewCollector(
		colly.UserAgent(s.config.UserAgent),
	)
	c.SetRequestTimeout(s.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			aborted = true
			r.Abort()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        r.Body,
		}
		slog.Debug("fetched page", "url", page.URL, "status", r.StatusCode, "size", len(r.Body))
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = &FetchError{URL: pageURL, StatusCode: r.StatusCode, Err: err}
	})

	err := c.Visit(pageURL)
	switch {
	case fetchErr != nil:
		return nil, fetchErr
	case err != nil:
		return nil, &FetchError{URL: pageURL, Err: err}
	case aborted:
		return nil, &FetchError{URL: pageURL, Err: ctx.Err()}
	case page == nil:
		return nil, &FetchError{URL: pageURL, Err: errors.New("no response received")}
	}

	if page.StatusCode < 200 || page.StatusCode > 299 {
		return nil, &FetchError{
			URL:        pageURL,
			StatusCode: page.StatusCode,
			Err:        errors.New("non-success status"),
		}
	}

	return page, nil
}
