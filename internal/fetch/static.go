package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

const maxBodyBytes = 512 * 1024

// userAgents is the rotation pool for static-tier requests.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// StaticFetcher issues a plain HTTP GET with a rotating user-agent and
// converts the response markup to cleaned plain text.
type StaticFetcher struct {
	client *http.Client
	next   atomic.Uint32
}

// NewStaticFetcher creates a StaticFetcher with sensible timeouts.
func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// WithHTTPClient overrides the HTTP client (for testing).
func (s *StaticFetcher) WithHTTPClient(c *http.Client) *StaticFetcher {
	s.client = c
	return s
}

func (s *StaticFetcher) userAgent() string {
	n := s.next.Add(1)
	return userAgents[int(n)%len(userAgents)]
}

// Fetch retrieves targetURL and returns cleaned content. DNS not-found and
// HTTP 404 come back as PermanentError; 5xx and blocks as TransientError.
func (s *StaticFetcher) Fetch(ctx context.Context, targetURL string) (*model.ScrapedContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", s.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		if resilience.IsPermanent(err) {
			return nil, resilience.NewPermanentError(eris.Wrap(err, "fetch: dns"), 0)
		}
		return nil, eris.Wrap(err, "fetch: get")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, resilience.NewTransientError(
			eris.Errorf("fetch: blocked (%s)", blockType), resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, resilience.NewPermanentError(
			eris.Errorf("fetch: status 404 for %s", targetURL), resp.StatusCode)
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return nil, resilience.NewTransientError(
			eris.Errorf("fetch: status %d", resp.StatusCode), resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, eris.Errorf("fetch: status %d", resp.StatusCode)
	}

	content, err := CleanHTML(targetURL, string(body))
	if err != nil {
		return nil, err
	}
	content.RawHTML = string(body)
	content.Tier = model.TierStatic
	return content, nil
}

// purgeSelectors are removed entirely before text conversion: chrome,
// scripts, and the usual ad/cookie-banner noise.
var purgeSelectors = []string{
	"script", "style", "noscript", "iframe", "svg", "form",
	"nav", "footer", "header", "aside",
	"[class*=cookie]", "[id*=cookie]", "[class*=banner]",
	"[class*=advert]", "[id*=advert]", "[class*=popup]",
}

// CleanHTML parses markup, strips non-content elements, and converts the
// remainder to heading/paragraph/list flavored plain text with meta fields.
func CleanHTML(pageURL, html string) (*model.ScrapedContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: parse html")
	}

	content := &model.ScrapedContent{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Meta:  map[string]string{},
	}

	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		if name == "" {
			name, _ = sel.Attr("property")
		}
		val, _ := sel.Attr("content")
		if name == "" || val == "" {
			return
		}
		switch name {
		case "description", "og:description":
			if content.Description == "" {
				content.Description = strings.TrimSpace(val)
			}
		case "og:title", "og:site_name", "og:type", "keywords", "author":
			content.Meta[name] = strings.TrimSpace(val)
		}
	})

	for _, sel := range purgeSelectors {
		doc.Find(sel).Remove()
	}

	var b strings.Builder
	doc.Find("h1, h2, h3, h4, p, li, td, blockquote").Each(func(_ int, sel *goquery.Selection) {
		text := collapseSpace(sel.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(sel) {
		case "h1", "h2", "h3", "h4":
			b.WriteString("# ")
			b.WriteString(text)
		case "li":
			b.WriteString("- ")
			b.WriteString(text)
		default:
			b.WriteString(text)
		}
		b.WriteString("\n")
	})

	content.Text = strings.TrimSpace(b.String())
	if content.Text == "" {
		// Fallback for pages without structural markup.
		content.Text = collapseSpace(doc.Find("body").Text())
	}
	return content, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
