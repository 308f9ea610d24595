// Package countries is a client for the REST Countries API.
package countries

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultBaseURL is the public REST Countries v3.1 endpoint.
const DefaultBaseURL = "https://restcountries.com/v3.1"

// Config holds countries client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client looks up capitals and country facts.
type Client struct {
	httpClient *http.Client
	baseURL    string
	printer    *message.Printer
}

// New creates a new countries client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		printer:    message.NewPrinter(language.English),
	}
}

type country struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	Capital    []string                   `json:"capital"`
	Region     string                     `json:"region"`
	Population int64                      `json:"population"`
	Currencies map[string]json.RawMessage `json:"currencies"`
}

// CapitalOf returns the capital city of the named country.
func (c *Client) CapitalOf(ctx context.Context, countryName string) (string, error) {
	slog.Info("fetching capital", "country", countryName)

	data, err := c.first(ctx, "name", "country", countryName)
	if err != nil {
		return "", err
	}
	if len(data.Capital) == 0 {
		return "", fmt.Errorf("No capital found for country: %s", countryName)
	}
	return data.Capital[0], nil
}

// AboutCity describes the country whose capital is city.
func (c *Client) AboutCity(ctx context.Context, city string) (string, error) {
	slog.Info("fetching city information", "city", city)

	data, err := c.first(ctx, "capital", "capital", city)
	if err != nil {
		return "", err
	}

	return c.printer.Sprintf("%s is the capital of %s. Country region: %s. Population: %d. Currency: %s.",
		city, data.Name.Common, data.Region, data.Population, currencyCode(data.Currencies)), nil
}

// currencyCode returns the alphabetically first currency code, or Unknown.
func currencyCode(currencies map[string]json.RawMessage) string {
	if len(currencies) == 0 {
		return "Unknown"
	}
	codes := make([]string, 0, len(currencies))
	for code := range currencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes[0]
}

// first fetches /{endpoint}/{value} and returns the first country.
func (c *Client) first(ctx context.Context, endpoint, searchType, value string) (*country, error) {
	notFound := fmt.Errorf("No %s found with name: %s", searchType, value)

	reqURL := fmt.Sprintf("%s/%s/%s", c.baseURL, endpoint, url.PathEscape(value))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		slog.Error("country lookup found nothing", "type", searchType, "value", value)
		return nil, notFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var countries []country
	if err := json.NewDecoder(resp.Body).Decode(&countries); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(countries) == 0 {
		slog.Error("country lookup found nothing", "type", searchType, "value", value)
		return nil, notFound
	}
	return &countries[0], nil
}
