package enrich

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/enrich-cli/internal/cost"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/pkg/jina"
)

const maxNewsItems = 3

// socialHosts maps link-host substrings to the social_links key they fill.
var socialHosts = map[string]string{
	"linkedin.com":  "linkedin",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"facebook.com":  "facebook",
	"instagram.com": "instagram",
	"youtube.com":   "youtube",
	"github.com":    "github",
	"tiktok.com":    "tiktok",
}

// htmlTechMarkers maps raw-markup substrings to the technology they betray.
var htmlTechMarkers = map[string]string{
	"wp-content":            "wordpress",
	"cdn.shopify.com":       "shopify",
	"static.wixstatic.com":  "wix",
	"squarespace.com":       "squarespace",
	"googletagmanager.com":  "google-tag-manager",
	"google-analytics.com":  "google-analytics",
	"js.hs-scripts.com":     "hubspot",
	"js.intercomcdn.com":    "intercom",
	"cdn.segment.com":       "segment",
	"js.stripe.com":         "stripe",
	"unpkg.com/react":       "react",
	"data-reactroot":        "react",
	"ng-version":            "angular",
	"data-v-app":            "vue",
	"__next":                "nextjs",
	"cdn.tailwindcss.com":   "tailwind",
	"cloudflareinsights.com": "cloudflare",
}

// sideSignals are the optional extras gathered alongside extraction: recent
// news, social profiles, and client-side tech markers. All best-effort.
type sideSignals struct {
	News        []model.NewsItem
	SocialLinks map[string]string
	TechStack   []string
}

// gatherSignals runs the signal collectors concurrently. Failures degrade to
// empty fields; a profile without news is still a profile.
func (p *Pipeline) gatherSignals(ctx context.Context, id identity, content *model.ScrapedContent, usage *cost.Usage) sideSignals {
	var sig sideSignals
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sig.News = p.newsSignal(gctx, id, usage)
		return nil
	})

	// DOM scans run on the already-fetched markup, no extra network.
	if content != nil && content.RawHTML != "" {
		sig.SocialLinks = socialLinksFromHTML(content.RawHTML)
		sig.TechStack = techStackFromHTML(content.RawHTML)
	}

	_ = g.Wait()
	return sig
}

func (p *Pipeline) newsSignal(ctx context.Context, id identity, usage *cost.Usage) []model.NewsItem {
	if p.search == nil || id.Name == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	usage.AddSearch(1)
	resp, err := p.search.Search(ctx, id.Name+" news", jina.WithLimit(maxNewsItems))
	if err != nil {
		zap.L().Debug("enrich: news search failed",
			zap.String("company", id.Name), zap.Error(err))
		return nil
	}

	var items []model.NewsItem
	for _, r := range resp.Data {
		if r.Title == "" {
			continue
		}
		items = append(items, model.NewsItem{Title: r.Title, URL: r.URL, Date: r.Date})
		if len(items) == maxNewsItems {
			break
		}
	}
	return items
}

// socialLinksFromHTML pulls profile links out of anchors in the raw markup.
// First link per network wins; sites repeat footer links endlessly.
func socialLinksFromHTML(rawHTML string) map[string]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	links := map[string]string{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		lower := strings.ToLower(href)
		for host, key := range socialHosts {
			if !strings.Contains(lower, host) {
				continue
			}
			// Share widgets point at the network, not at a profile.
			if strings.Contains(lower, "/share") || strings.Contains(lower, "intent/") {
				continue
			}
			if _, seen := links[key]; !seen {
				links[key] = href
			}
		}
	})
	if len(links) == 0 {
		return nil
	}
	return links
}

func techStackFromHTML(rawHTML string) []string {
	lower := strings.ToLower(rawHTML)
	var stack []string
	seen := map[string]struct{}{}
	for marker, tech := range htmlTechMarkers {
		if !strings.Contains(lower, marker) {
			continue
		}
		if _, ok := seen[tech]; ok {
			continue
		}
		seen[tech] = struct{}{}
		stack = append(stack, tech)
	}
	// Map iteration order is random; keep the output stable.
	sort.Strings(stack)
	return stack
}
