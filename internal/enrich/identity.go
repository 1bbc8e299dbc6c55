package enrich

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/enrich-cli/internal/model"
)

// identity is the resolved target of one request: a display name and the
// bare domain used as cache key and fetch host.
type identity struct {
	Name   string
	Domain string
	URL    string
}

// normalizeName strips diacritics and squeezes whitespace so "Société
// Générale " and "Societe Generale" resolve identically. The transform
// chain carries per-run state, so each call builds its own.
func normalizeName(name string) string {
	deaccent := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(deaccent, name)
	if err != nil {
		out = name
	}
	return strings.Join(strings.Fields(out), " ")
}

// legal suffixes stripped before deriving a domain from a bare name.
var legalSuffixes = []string{
	"inc", "inc.", "llc", "llc.", "ltd", "ltd.", "corp", "corp.",
	"co", "co.", "gmbh", "s.a.", "plc", "limited", "corporation", "company",
}

// resolveIdentity turns a request into a (name, domain, url) triple. Domain
// wins over URL host wins over a name-derived guess. Returns the zero
// identity when nothing resolvable was supplied.
func resolveIdentity(req model.EnrichmentRequest) identity {
	id := identity{Name: normalizeName(req.Name)}

	switch {
	case req.Domain != "":
		id.Domain = cleanDomain(req.Domain)
	case req.URL != "":
		if u, err := url.Parse(withScheme(req.URL)); err == nil {
			id.Domain = cleanDomain(u.Hostname())
		}
	case id.Name != "":
		id.Domain = domainFromName(id.Name)
	}

	if req.URL != "" {
		id.URL = withScheme(req.URL)
	} else if id.Domain != "" {
		id.URL = "https://" + id.Domain
	}
	if id.Name == "" && id.Domain != "" {
		id.Name = nameFromDomain(id.Domain)
	}
	return id
}

func withScheme(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

func cleanDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "www.")
	if i := strings.IndexAny(domain, "/?#"); i >= 0 {
		domain = domain[:i]
	}
	return domain
}

// domainFromName guesses "Acme Widgets Inc." -> "acmewidgets.com". A guess
// only; the fetch path discovers quickly whether it resolves.
func domainFromName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for len(words) > 0 {
		last := strings.TrimSuffix(words[len(words)-1], ",")
		if !isLegalSuffix(last) {
			break
		}
		words = words[:len(words)-1]
	}
	var b strings.Builder
	for _, w := range words {
		for _, r := range w {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + ".com"
}

func isLegalSuffix(word string) bool {
	for _, s := range legalSuffixes {
		if word == s {
			return true
		}
	}
	return false
}

// nameFromDomain turns "acme-widgets.io" into "Acme Widgets".
func nameFromDomain(domain string) string {
	base := domain
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	parts := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' })
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
