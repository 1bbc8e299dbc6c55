package enrich

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/enrich-cli/internal/model"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Societe Generale", normalizeName("Société  Générale "))
	assert.Equal(t, "Acme Widgets", normalizeName("Acme Widgets"))
	assert.Equal(t, "", normalizeName("   "))
}

// Batch enrichment resolves identities from many goroutines at once; the
// normalizer must not share transformer state between them.
func TestNormalizeName_Concurrent(t *testing.T) {
	names := []string{"Société Générale", "Müller GmbH", "Acme Widgets", "Çelik Holding"}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				for _, n := range names {
					normalizeName(n)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "Muller GmbH", normalizeName("Müller GmbH"))
}

func TestResolveIdentity_DomainWins(t *testing.T) {
	id := resolveIdentity(model.EnrichmentRequest{
		Name:   "Acme Inc",
		Domain: "https://www.acme.com/about",
		URL:    "https://other.example.com",
	})

	assert.Equal(t, "acme.com", id.Domain)
	assert.Equal(t, "Acme Inc", id.Name)
	// URL was supplied, so it is kept as the fetch target.
	assert.Equal(t, "https://other.example.com", id.URL)
}

func TestResolveIdentity_URLHost(t *testing.T) {
	id := resolveIdentity(model.EnrichmentRequest{URL: "www.acme-widgets.io/products"})

	assert.Equal(t, "acme-widgets.io", id.Domain)
	assert.Equal(t, "https://www.acme-widgets.io/products", id.URL)
	assert.Equal(t, "Acme Widgets", id.Name)
}

func TestResolveIdentity_NameOnly(t *testing.T) {
	id := resolveIdentity(model.EnrichmentRequest{Name: "Acme Widgets Inc."})

	assert.Equal(t, "acmewidgets.com", id.Domain)
	assert.Equal(t, "https://acmewidgets.com", id.URL)
	assert.Equal(t, "Acme Widgets Inc.", id.Name)
}

func TestResolveIdentity_Empty(t *testing.T) {
	id := resolveIdentity(model.EnrichmentRequest{})

	assert.Empty(t, id.Name)
	assert.Empty(t, id.Domain)
	assert.Empty(t, id.URL)
}

func TestCleanDomain(t *testing.T) {
	cases := map[string]string{
		"ACME.com":                      "acme.com",
		"https://www.acme.com/path?q=1": "acme.com",
		"http://acme.io#frag":           "acme.io",
		" acme.dev ":                    "acme.dev",
	}
	for in, want := range cases {
		assert.Equal(t, want, cleanDomain(in), in)
	}
}

func TestDomainFromName(t *testing.T) {
	cases := map[string]string{
		"Acme Widgets Inc.":       "acmewidgets.com",
		"Foo Bar LLC":             "foobar.com",
		"Globex Corporation":      "globex.com",
		"O'Brien & Sons, Ltd":     "obriensons.com",
		"Inc.":                    "",
		"Müller GmbH":             "müller.com",
	}
	for in, want := range cases {
		assert.Equal(t, want, domainFromName(in), in)
	}
}

func TestNameFromDomain(t *testing.T) {
	assert.Equal(t, "Acme Widgets", nameFromDomain("acme-widgets.io"))
	assert.Equal(t, "Foo Bar", nameFromDomain("foo_bar.com"))
	assert.Equal(t, "Acme", nameFromDomain("acme.co.uk"))
}
