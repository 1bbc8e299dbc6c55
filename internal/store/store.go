// Package store persists enrichment cache rows, the scrape archive, and the
// append-only cost log.
package store

import (
	"context"
	"time"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Store is the persistence interface for the enrichment pipeline.
// Cache semantics: a read past expiry is a miss (lazy eviction);
// writes are last-write-wins. The cost log is append-only and is never
// read back by the pipeline itself.
type Store interface {
	// Enrichment cache.
	GetCachedEnrichment(ctx context.Context, domain string) (*model.CachedEnrichment, error)
	SetCachedEnrichment(ctx context.Context, domain string, data model.CompanyEnrichmentData, ttl time.Duration) error
	DeleteCachedEnrichment(ctx context.Context, domain string) error
	SweepExpired(ctx context.Context) (int, error)

	// Scrape archive (dedup lookups, short TTL).
	GetArchivedScrape(ctx context.Context, domain, contentHash string) (*model.ArchivedScrape, error)
	SetArchivedScrape(ctx context.Context, archive model.ArchivedScrape) error

	// Cost log.
	AppendCostLog(ctx context.Context, entry model.CostLogEntry) error
	ListCostLogs(ctx context.Context, limit int) ([]model.CostLogEntry, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
