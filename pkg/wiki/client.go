// Package wiki provides clients for the Wikipedia REST summary endpoint and
// the Wikidata entity-search API, both free and best-effort.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the encyclopedia/knowledge-graph operations used by the
// backup aggregator.
type Client interface {
	// Summary fetches the Wikipedia page summary for a title.
	Summary(ctx context.Context, title string) (*SummaryResponse, error)
	// SearchEntities searches Wikidata for entities matching the query.
	SearchEntities(ctx context.Context, query string) (*EntitySearchResponse, error)
}

// SummaryResponse is the subset of the Wikipedia summary payload we read.
type SummaryResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// EntitySearchResponse is the wbsearchentities result envelope.
type EntitySearchResponse struct {
	Search []Entity `json:"search"`
}

// Entity is one Wikidata search hit.
type Entity struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Option configures the wiki client.
type Option func(*httpClient)

// WithWikipediaBaseURL sets a custom Wikipedia base URL (for testing).
func WithWikipediaBaseURL(u string) Option {
	return func(c *httpClient) {
		c.wikipediaBase = u
	}
}

// WithWikidataBaseURL sets a custom Wikidata base URL (for testing).
func WithWikidataBaseURL(u string) Option {
	return func(c *httpClient) {
		c.wikidataBase = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	wikipediaBase string
	wikidataBase  string
	http          *http.Client
}

// NewClient creates a wiki client with production endpoints.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		wikipediaBase: "https://en.wikipedia.org/api/rest_v1",
		wikidataBase:  "https://www.wikidata.org/w/api.php",
		http:          &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Summary(ctx context.Context, title string) (*SummaryResponse, error) {
	slug := url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	endpoint := fmt.Sprintf("%s/page/summary/%s", c.wikipediaBase, slug)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, eris.Wrapf(err, "wiki: summary %q", title)
	}

	var out SummaryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "wiki: decode summary")
	}
	return &out, nil
}

func (c *httpClient) SearchEntities(ctx context.Context, query string) (*EntitySearchResponse, error) {
	q := url.Values{}
	q.Set("action", "wbsearchentities")
	q.Set("search", query)
	q.Set("language", "en")
	q.Set("format", "json")
	q.Set("type", "item")
	q.Set("limit", "5")
	endpoint := fmt.Sprintf("%s?%s", c.wikidataBase, q.Encode())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, eris.Wrapf(err, "wiki: search entities %q", query)
	}

	var out EntitySearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "wiki: decode entity search")
	}
	return &out, nil
}

func (c *httpClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "wiki: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "enrich-cli/1.0 (company enrichment pipeline)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("wiki: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
}
