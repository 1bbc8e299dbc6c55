package enrich

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

const signalPage = `<html><body>
<a href="https://www.linkedin.com/company/acme">LinkedIn</a>
<a href="https://twitter.com/acmehq">Twitter</a>
<a href="https://twitter.com/intent/tweet?text=hi">Tweet this</a>
<a href="https://www.facebook.com/sharer/share.php?u=x">Share</a>
<a href="https://github.com/acme">GitHub</a>
<a href="https://www.linkedin.com/company/acme?trk=footer">LinkedIn again</a>
<script src="https://www.googletagmanager.com/gtm.js"></script>
<link href="/wp-content/themes/acme/style.css" rel="stylesheet">
<script src="https://js.stripe.com/v3/"></script>
</body></html>`

func TestSocialLinksFromHTML(t *testing.T) {
	links := socialLinksFromHTML(signalPage)

	assert.Equal(t, "https://www.linkedin.com/company/acme", links["linkedin"])
	assert.Equal(t, "https://twitter.com/acmehq", links["twitter"])
	assert.Equal(t, "https://github.com/acme", links["github"])
	// Share widgets and tweet intents are not profiles.
	assert.NotContains(t, links, "facebook")
}

func TestSocialLinksFromHTML_Empty(t *testing.T) {
	assert.Nil(t, socialLinksFromHTML(`<html><body><a href="/about">About</a></body></html>`))
}

func TestTechStackFromHTML(t *testing.T) {
	stack := techStackFromHTML(signalPage)

	assert.Contains(t, stack, "google-tag-manager")
	assert.Contains(t, stack, "wordpress")
	assert.Contains(t, stack, "stripe")
	assert.NotContains(t, stack, "shopify")
}

func TestTechStackFromHTML_Dedupes(t *testing.T) {
	page := `<div data-reactroot></div><script src="https://unpkg.com/react@18/umd/react.js"></script>`
	stack := techStackFromHTML(page)

	count := 0
	for _, tech := range stack {
		if tech == "react" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestTechStackFromHTML_StableOrder(t *testing.T) {
	first := techStackFromHTML(signalPage)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, techStackFromHTML(signalPage))
	}
	assert.True(t, sort.StringsAreSorted(first))
}
