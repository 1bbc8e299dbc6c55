// Package rdap provides a minimal client for the public RDAP domain
// registration lookup service (the JSON successor to whois).
package rdap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the RDAP operations used by the backup aggregator.
type Client interface {
	// Domain fetches registration data for a bare domain (no scheme).
	Domain(ctx context.Context, domain string) (*DomainResponse, error)
}

// DomainResponse is the subset of the RDAP domain object the pipeline reads.
type DomainResponse struct {
	LDHName  string   `json:"ldhName"`
	Events   []Event  `json:"events"`
	Entities []Entity `json:"entities"`
}

// Event is an RDAP lifecycle event (registration, expiration...).
type Event struct {
	Action string `json:"eventAction"`
	Date   string `json:"eventDate"`
}

// Entity is an RDAP contact entity; VCard holds the raw jCard array.
type Entity struct {
	Roles []string `json:"roles"`
	VCard []any    `json:"vcardArray"`
}

// RegistrationYear returns the year of the "registration" event, or 0.
func (r *DomainResponse) RegistrationYear() int {
	for _, e := range r.Events {
		if e.Action != "registration" {
			continue
		}
		t, err := time.Parse(time.RFC3339, e.Date)
		if err != nil {
			// Some registries return date-only event values.
			t, err = time.Parse("2006-01-02", e.Date)
			if err != nil {
				return 0
			}
		}
		return t.Year()
	}
	return 0
}

// RegistrantOrg walks the registrant entity's jCard for an "org" property.
func (r *DomainResponse) RegistrantOrg() string {
	for _, ent := range r.Entities {
		if !hasRole(ent.Roles, "registrant") {
			continue
		}
		if org := vcardField(ent.VCard, "org"); org != "" {
			return org
		}
		if fn := vcardField(ent.VCard, "fn"); fn != "" {
			return fn
		}
	}
	return ""
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// vcardField digs a named property out of a jCard array:
// ["vcard", [["org", {}, "text", "Acme Inc"], ...]].
func vcardField(vcard []any, name string) string {
	if len(vcard) < 2 {
		return ""
	}
	props, ok := vcard[1].([]any)
	if !ok {
		return ""
	}
	for _, p := range props {
		prop, ok := p.([]any)
		if !ok || len(prop) < 4 {
			continue
		}
		if n, ok := prop[0].(string); !ok || n != name {
			continue
		}
		if v, ok := prop[3].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Option configures the RDAP client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an RDAP client against rdap.org, which redirects to the
// authoritative registry for each TLD.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://rdap.org",
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Domain(ctx context.Context, domain string) (*DomainResponse, error) {
	endpoint := fmt.Sprintf("%s/domain/%s", c.baseURL, domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "rdap: create request")
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "rdap: lookup %s", domain)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("rdap: lookup %s returned status %d", domain, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, eris.Wrap(err, "rdap: read body")
	}

	var out DomainResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "rdap: decode response")
	}
	return &out, nil
}
