// Package dedup detects byte-identical re-crawls so the pipeline can reuse
// a prior extraction instead of paying for a new model call.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/store"
)

// Hash returns the stable hex digest of raw fetched content.
func Hash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Deduper checks and maintains the scrape archive.
type Deduper struct {
	store store.Store
	ttl   time.Duration
}

// New creates a Deduper. ttl is the dedup window; rows older than it are
// misses. A non-positive ttl defaults to 24h.
func New(st store.Store, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Deduper{store: st, ttl: ttl}
}

// Check returns the archived extraction for a byte-identical prior scrape of
// the same domain, or nil on a miss. Archive errors degrade to a miss: dedup
// is an optimization, never a gate.
func (d *Deduper) Check(ctx context.Context, domain string, raw []byte) (*model.ArchivedScrape, string) {
	digest := Hash(raw)
	archived, err := d.store.GetArchivedScrape(ctx, domain, digest)
	if err != nil {
		zap.L().Warn("dedup: archive lookup failed",
			zap.String("domain", domain),
			zap.Error(err),
		)
		return nil, digest
	}
	if archived != nil {
		zap.L().Info("dedup: content hash hit, reusing prior extraction",
			zap.String("domain", domain),
			zap.String("hash", digest[:12]),
		)
	}
	return archived, digest
}

// Archive stores the extraction keyed by the content digest.
func (d *Deduper) Archive(ctx context.Context, domain, digest string, extracted model.CompanyEnrichmentData) error {
	now := time.Now().UTC()
	err := d.store.SetArchivedScrape(ctx, model.ArchivedScrape{
		Domain:      domain,
		ContentHash: digest,
		Extracted:   extracted,
		ArchivedAt:  now,
		ExpiresAt:   now.Add(d.ttl),
	})
	return eris.Wrap(err, "dedup: archive scrape")
}
