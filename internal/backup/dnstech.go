package backup

import (
	"context"
	"net"
	"strings"

	"github.com/sells-group/enrich-cli/internal/model"
)

// resolver is the subset of net.Resolver used here, split out so tests can
// substitute canned records.
type resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// dnsTechSource infers hosted-service usage from a domain's DNS records.
// MX targets reveal the mail provider, TXT verification records reveal SaaS
// integrations, and the www CNAME reveals the site platform or CDN.
type dnsTechSource struct {
	resolver resolver
}

// NewDNSTechSource builds the DNS inference source over the default resolver.
func NewDNSTechSource() Source {
	return &dnsTechSource{resolver: net.DefaultResolver}
}

func (s *dnsTechSource) Name() string { return "dnstech" }

// mxProviders maps MX host substrings to the product they indicate.
var mxProviders = map[string]string{
	"google.com":             "google-workspace",
	"googlemail.com":         "google-workspace",
	"outlook.com":            "microsoft-365",
	"protection.outlook.com": "microsoft-365",
	"zoho.com":               "zoho-mail",
	"pphosted.com":           "proofpoint",
	"mimecast.com":           "mimecast",
	"fastmail.com":           "fastmail",
}

// txtMarkers maps TXT verification prefixes to the service that planted them.
var txtMarkers = map[string]string{
	"google-site-verification": "google-workspace",
	"ms=":                      "microsoft-365",
	"facebook-domain-verification": "facebook-business",
	"stripe-verification":          "stripe",
	"atlassian-domain-verification": "atlassian",
	"hubspot-developer-verification": "hubspot",
	"shopify-verification":           "shopify",
	"zoom-domain-verification":       "zoom",
}

// cnameMarkers maps www CNAME target substrings to the platform behind them.
var cnameMarkers = map[string]string{
	"shopify.com":       "shopify",
	"squarespace.com":   "squarespace",
	"wixdns.net":        "wix",
	"github.io":         "github-pages",
	"netlify":           "netlify",
	"vercel":            "vercel",
	"cloudflare":        "cloudflare",
	"webflow":           "webflow",
	"wpengine.com":      "wordpress",
	"amazonaws.com":     "aws",
	"azurewebsites.net": "azure",
}

func (s *dnsTechSource) Lookup(ctx context.Context, _, domain string) (*model.CompanyEnrichmentData, error) {
	if domain == "" {
		return nil, nil
	}

	var stack []string
	seen := map[string]struct{}{}
	add := func(tech string) {
		if _, ok := seen[tech]; ok {
			return
		}
		seen[tech] = struct{}{}
		stack = append(stack, tech)
	}

	// Each record type degrades independently; a dead lookup just means no
	// signal from that record.
	if mxs, err := s.resolver.LookupMX(ctx, domain); err == nil {
		for _, mx := range mxs {
			host := strings.ToLower(strings.TrimSuffix(mx.Host, "."))
			for marker, tech := range mxProviders {
				if strings.HasSuffix(host, marker) {
					add(tech)
				}
			}
		}
	}

	if txts, err := s.resolver.LookupTXT(ctx, domain); err == nil {
		for _, txt := range txts {
			lower := strings.ToLower(txt)
			for marker, tech := range txtMarkers {
				if strings.Contains(lower, marker) {
					add(tech)
				}
			}
		}
	}

	if cname, err := s.resolver.LookupCNAME(ctx, "www."+domain); err == nil {
		lower := strings.ToLower(cname)
		for marker, tech := range cnameMarkers {
			if strings.Contains(lower, marker) {
				add(tech)
			}
		}
	}

	if len(stack) == 0 {
		return nil, nil
	}
	return &model.CompanyEnrichmentData{Domain: domain, TechStack: stack}, nil
}
