package model

import "time"

// CachedEnrichment is one cache row keyed by domain.
// Invariant: ExpiresAt = CachedAt + ttl. A read after ExpiresAt is a miss;
// stale rows are lazily evicted (an optional sweep deletes them physically).
type CachedEnrichment struct {
	Domain    string                `json:"domain"`
	Data      CompanyEnrichmentData `json:"data"`
	CachedAt  time.Time             `json:"cached_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// Expired reports whether the row is stale at the given instant.
func (c *CachedEnrichment) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ArchivedScrape is a short-TTL record of a prior scrape, keyed by domain and
// raw-content hash. It exists only so byte-identical re-crawls can reuse the
// prior extraction without a new model call.
type ArchivedScrape struct {
	Domain      string                `json:"domain"`
	ContentHash string                `json:"content_hash"`
	Extracted   CompanyEnrichmentData `json:"extracted"`
	ArchivedAt  time.Time             `json:"archived_at"`
	ExpiresAt   time.Time             `json:"expires_at"`
}
