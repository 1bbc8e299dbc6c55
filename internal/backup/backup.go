// Package backup aggregates free secondary data sources used when the
// primary scrape path cannot produce a trustworthy profile.
package backup

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Source is one backup data provider. Lookup returns a partial profile;
// a source that knows nothing returns an empty (or nil) profile, not an
// error, unless the lookup itself broke.
type Source interface {
	Name() string
	Lookup(ctx context.Context, name, domain string) (*model.CompanyEnrichmentData, error)
}

// Aggregator fans a query out to every source and merges the partials in a
// fixed order so results are deterministic.
type Aggregator struct {
	sources []Source
	timeout time.Duration
}

// NewAggregator builds an aggregator over the given sources. Merge order is
// the slice order; earlier sources are overridden by later non-empty fields.
func NewAggregator(sources []Source) *Aggregator {
	return &Aggregator{sources: sources, timeout: 15 * time.Second}
}

// Gather queries all sources concurrently and merges their partial profiles.
// Individual source failures are logged and treated as empty; Gather only
// returns nil when every source came back empty.
func (a *Aggregator) Gather(ctx context.Context, name, domain string) *model.CompanyEnrichmentData {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	partials := make([]*model.CompanyEnrichmentData, len(a.sources))
	g, gctx := errgroup.WithContext(ctx)

	for i, src := range a.sources {
		i, src := i, src
		g.Go(func() error {
			data, err := src.Lookup(gctx, name, domain)
			if err != nil {
				zap.L().Debug("backup: source lookup failed",
					zap.String("source", src.Name()),
					zap.String("domain", domain),
					zap.Error(err))
				return nil
			}
			partials[i] = data
			return nil
		})
	}
	_ = g.Wait()

	merged := &model.CompanyEnrichmentData{}
	for _, p := range partials {
		merged.Merge(p)
	}
	if merged.IsEmpty() {
		return nil
	}
	merged.DataSource = model.DataSourceBackup
	return merged
}
