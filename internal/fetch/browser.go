package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// BrowserFetcher renders a page in headless Chrome for sites whose static
// markup is a JavaScript shell. Requires Chrome/Chromium on the host.
type BrowserFetcher struct {
	navTimeout time.Duration
	settle     time.Duration
}

// NewBrowserFetcher creates a BrowserFetcher. navTimeout bounds the whole
// render (default 30s); settle is the fixed wait after load for client-side
// rendering to finish (default 2s).
func NewBrowserFetcher(navTimeout, settle time.Duration) *BrowserFetcher {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &BrowserFetcher{navTimeout: navTimeout, settle: settle}
}

// Fetch renders targetURL and returns cleaned content plus the raw rendered
// markup (kept for dedup hashing).
func (b *BrowserFetcher) Fetch(ctx context.Context, targetURL string) (*model.ScrapedContent, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, b.navTimeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: render %s", targetURL)
	}

	content, err := CleanHTML(targetURL, html)
	if err != nil {
		return nil, err
	}
	content.RawHTML = html
	content.Tier = model.TierRender
	return content, nil
}
