package model

// FetchTier identifies which tier of the content fetcher produced a page.
type FetchTier string

const (
	TierStatic FetchTier = "static"
	TierRender FetchTier = "render"
	TierReader FetchTier = "reader"
)

// ScrapedContent is a fetched and cleaned page. Transient: only the raw
// markup hash and the extracted payload survive into the scrape archive.
type ScrapedContent struct {
	URL         string            `json:"url"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Text        string            `json:"text"`
	RawHTML     string            `json:"raw_html,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
	Tier        FetchTier         `json:"tier"`
	IsDuplicate bool              `json:"is_duplicate,omitempty"`
}
