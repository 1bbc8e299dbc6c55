// Package cost tallies per-request spend and logs savings versus a
// comparable paid enrichment API.
package cost

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/store"
)

// Usage accumulates per-call counts for one enrichment attempt. Safe for
// concurrent updates from the parallel side-signal lookups.
type Usage struct {
	mu          sync.Mutex
	searchCalls int
	scrapeCalls int
	renderCalls int
	tokensIn    int64
	tokensOut   int64
}

func (u *Usage) AddSearch(n int) {
	u.mu.Lock()
	u.searchCalls += n
	u.mu.Unlock()
}

func (u *Usage) AddScrape(n int) {
	u.mu.Lock()
	u.scrapeCalls += n
	u.mu.Unlock()
}

func (u *Usage) AddRender(n int) {
	u.mu.Lock()
	u.renderCalls += n
	u.mu.Unlock()
}

func (u *Usage) AddTokens(in, out int64) {
	u.mu.Lock()
	u.tokensIn += in
	u.tokensOut += out
	u.mu.Unlock()
}

// Snapshot returns the current counters.
func (u *Usage) Snapshot() (searchCalls, scrapeCalls, renderCalls int, tokensIn, tokensOut int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.searchCalls, u.scrapeCalls, u.renderCalls, u.tokensIn, u.tokensOut
}

// Accountant computes costs from configured rates and appends cost-log
// entries. The log is write-only from the pipeline's perspective.
type Accountant struct {
	pricing config.PricingConfig
	model   string
	store   store.Store
}

// NewAccountant creates an Accountant for the given model pricing.
func NewAccountant(pricing config.PricingConfig, modelID string, st store.Store) *Accountant {
	return &Accountant{pricing: pricing, model: modelID, store: st}
}

// Compute returns the USD cost of the recorded usage.
func (a *Accountant) Compute(u *Usage) float64 {
	searchCalls, scrapeCalls, renderCalls, tokensIn, tokensOut := u.Snapshot()

	var cost float64
	if rate, ok := a.pricing.Anthropic[a.model]; ok {
		cost += (float64(tokensIn) / 1e6) * rate.Input
		cost += (float64(tokensOut) / 1e6) * rate.Output
	}
	cost += float64(searchCalls) * a.pricing.Jina.SearchCallUSD
	cost += float64(scrapeCalls+renderCalls) * a.pricing.ScrapeCallUSD
	return cost
}

// Record builds the CostLogEntry for a finished attempt, appends it, and
// logs the savings. Called exactly once per terminal pipeline transition;
// append failures are logged, never propagated.
func (a *Accountant) Record(ctx context.Context, domain string, u *Usage, result RecordInfo) model.CostLogEntry {
	searchCalls, scrapeCalls, renderCalls, tokensIn, tokensOut := u.Snapshot()

	entry := model.CostLogEntry{
		ID:           uuid.New().String(),
		Domain:       domain,
		SearchCalls:  searchCalls,
		ScrapeCalls:  scrapeCalls,
		RenderCalls:  renderCalls,
		AITokensIn:   tokensIn,
		AITokensOut:  tokensOut,
		CostUSD:      a.Compute(u),
		ReferenceUSD: a.pricing.ReferenceLookupUSD,
		DurationMs:   result.Duration.Milliseconds(),
		Success:      result.Success,
		DataSource:   result.DataSource,
		DedupHit:     result.DedupHit,
		CacheHit:     result.CacheHit,
		StoredBytes:  result.StoredBytes,
		CreatedAt:    time.Now().UTC(),
	}

	if err := a.store.AppendCostLog(ctx, entry); err != nil {
		zap.L().Error("cost: append log failed", zap.String("domain", domain), zap.Error(err))
	}

	zap.L().Info("cost: attempt recorded",
		zap.String("domain", domain),
		zap.Bool("success", entry.Success),
		zap.Float64("cost_usd", entry.CostUSD),
		zap.Float64("savings_usd", entry.SavingsUSD()),
		zap.Int64("tokens_in", entry.AITokensIn),
		zap.Int64("tokens_out", entry.AITokensOut),
		zap.Int("scrape_calls", entry.ScrapeCalls),
		zap.Int64("duration_ms", entry.DurationMs),
	)
	return entry
}

// RecordInfo carries the attempt outcome into the log entry.
type RecordInfo struct {
	Duration    time.Duration
	Success     bool
	DataSource  model.DataSource
	DedupHit    bool
	CacheHit    bool
	StoredBytes int
}
