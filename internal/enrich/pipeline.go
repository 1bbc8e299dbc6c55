// Package enrich contains the pipeline orchestrator: it walks a request
// through cache, fetch, dedup, extraction, validation, and the backup
// escalation path, and accounts for the cost of every terminal outcome.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/enrich-cli/internal/backup"
	"github.com/sells-group/enrich-cli/internal/cost"
	"github.com/sells-group/enrich-cli/internal/dedup"
	"github.com/sells-group/enrich-cli/internal/events"
	"github.com/sells-group/enrich-cli/internal/extract"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/ratelimit"
	"github.com/sells-group/enrich-cli/internal/store"
	"github.com/sells-group/enrich-cli/internal/validate"
	"github.com/sells-group/enrich-cli/pkg/jina"
)

// ContentFetcher is the fetch-tier contract, satisfied by *fetch.Fetcher.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (*model.ScrapedContent, error)
	// FetchStatic skips the render tier for callers that opted out of it.
	FetchStatic(ctx context.Context, url string) (*model.ScrapedContent, error)
}

// PipelineOptions carries the tunables the orchestrator reads directly.
type PipelineOptions struct {
	CacheTTL            time.Duration // default 7d
	BackupCacheTTL      time.Duration // default 3d
	EscalationThreshold int           // default 30
	EnableDedup         bool
}

func (o *PipelineOptions) defaults() {
	if o.CacheTTL == 0 {
		o.CacheTTL = 7 * 24 * time.Hour
	}
	if o.BackupCacheTTL == 0 {
		o.BackupCacheTTL = 3 * 24 * time.Hour
	}
	if o.EscalationThreshold == 0 {
		o.EscalationThreshold = validate.EscalationThreshold
	}
}

// Pipeline orchestrates a single enrichment end to end.
type Pipeline struct {
	store      store.Store
	fetcher    ContentFetcher
	deduper    *dedup.Deduper
	engine     *extract.Engine
	backups    *backup.Aggregator
	validator  *validate.Validator
	accountant *cost.Accountant
	limiter    *ratelimit.Limiter
	sink       *events.Sink
	search     jina.Client // nil disables the news signal
	opts       PipelineOptions
}

// NewPipeline wires the orchestrator. search may be nil.
func NewPipeline(
	st store.Store,
	fetcher ContentFetcher,
	deduper *dedup.Deduper,
	engine *extract.Engine,
	backups *backup.Aggregator,
	validator *validate.Validator,
	accountant *cost.Accountant,
	limiter *ratelimit.Limiter,
	sink *events.Sink,
	search jina.Client,
	opts PipelineOptions,
) *Pipeline {
	opts.defaults()
	return &Pipeline{
		store:      st,
		fetcher:    fetcher,
		deduper:    deduper,
		engine:     engine,
		backups:    backups,
		validator:  validator,
		accountant: accountant,
		limiter:    limiter,
		sink:       sink,
		search:     search,
		opts:       opts,
	}
}

// Enrich runs one request through the pipeline. It never returns an error;
// failures are reported inside the response so batch callers keep going.
// Panics anywhere below are recovered here and reported the same way.
func (p *Pipeline) Enrich(ctx context.Context, req model.EnrichmentRequest) (resp *model.EnrichmentResponse) {
	start := time.Now()
	usage := &cost.Usage{}

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("enrich: recovered panic", zap.Any("panic", r))
			resp = p.finish(ctx, resolveIdentity(req), usage, start, &outcome{
				err: fmt.Errorf("internal error: %v", r),
			})
		}
	}()

	// Rejected requests still pass through finish so every attempt, however
	// short-lived, leaves exactly one cost-log entry.
	if req.Empty() {
		return p.finish(ctx, identity{}, usage, start, &outcome{
			err: errors.New("request must supply a name, domain, or url"),
		})
	}

	id := resolveIdentity(req)
	if id.Domain == "" {
		return p.finish(ctx, id, usage, start, &outcome{
			err: fmt.Errorf("could not resolve a domain for %q", req.Name),
		})
	}

	reqCtx := req.Context
	if reqCtx == nil {
		reqCtx = &model.RequestContext{}
	}

	// Cache short-circuit: a fresh row answers at zero incremental cost.
	if !reqCtx.SkipCache {
		if cached := p.cacheLookup(ctx, id.Domain); cached != nil {
			return p.finish(ctx, id, usage, start, &outcome{
				data:     cached,
				cacheHit: true,
			})
		}
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, id.Domain); err != nil {
			return p.finish(ctx, id, usage, start, &outcome{err: err})
		}
	}

	out := p.enrichLive(ctx, id, reqCtx, usage)
	return p.finish(ctx, id, usage, start, out)
}

// outcome is the terminal state of one attempt before response assembly.
type outcome struct {
	data       *model.CompanyEnrichmentData
	validation *model.ValidationResult
	cacheHit   bool
	dedupHit   bool
	hash       string
	stored     int
	err        error
}

func (p *Pipeline) cacheLookup(ctx context.Context, domain string) *model.CompanyEnrichmentData {
	cached, err := p.store.GetCachedEnrichment(ctx, domain)
	if err != nil {
		zap.L().Warn("enrich: cache lookup failed", zap.String("domain", domain), zap.Error(err))
		return nil
	}
	if cached == nil {
		return nil
	}
	data := cached.Data
	data.DataSource = model.DataSourceCache
	return &data
}

// enrichLive is the scrape-extract-validate core, entered only on cache miss.
func (p *Pipeline) enrichLive(ctx context.Context, id identity, reqCtx *model.RequestContext, usage *cost.Usage) *outcome {
	usage.AddScrape(1)
	var content *model.ScrapedContent
	var err error
	if reqCtx.SkipRender {
		content, err = p.fetcher.FetchStatic(ctx, id.URL)
	} else {
		content, err = p.fetcher.Fetch(ctx, id.URL)
	}
	if err != nil {
		// The primary path is dead; backup sources are all that is left.
		zap.L().Info("enrich: primary fetch failed, trying backup sources",
			zap.String("domain", id.Domain), zap.Error(err))
		return p.escalate(ctx, id, fmt.Sprintf("domain %s unreachable: %v", id.Domain, err))
	}
	if content.Tier == model.TierRender {
		usage.AddRender(1)
	}

	out := &outcome{}

	// Dedup: byte-identical markup reuses the archived extraction and skips
	// the model call entirely.
	var data *model.CompanyEnrichmentData
	if p.opts.EnableDedup && p.deduper != nil && content.RawHTML != "" {
		archived, digest := p.deduper.Check(ctx, id.Domain, []byte(content.RawHTML))
		out.hash = digest
		if archived != nil {
			content.IsDuplicate = true
			out.dedupHit = true
			extracted := archived.Extracted
			data = &extracted
			zap.L().Info("enrich: dedup hit, reusing archived extraction",
				zap.String("domain", id.Domain), zap.String("hash", digest))
		}
	}

	if data == nil {
		extracted, tokens, err := p.engine.Extract(ctx, content, id.Name, reqCtx.IndustryHint)
		if err != nil {
			return p.escalate(ctx, id, fmt.Sprintf("extraction failed for %s: %v", id.Domain, err))
		}
		usage.AddTokens(tokens.InputTokens, tokens.OutputTokens)
		data = extracted

		if out.hash != "" && p.deduper != nil {
			if err := p.deduper.Archive(ctx, id.Domain, out.hash, *data); err != nil {
				zap.L().Warn("enrich: archive failed", zap.String("domain", id.Domain), zap.Error(err))
			} else {
				out.stored = len(content.RawHTML)
			}
		}
	}

	sig := p.gatherSignals(ctx, id, content, usage)
	p.compose(data, id, content, sig)
	if out.dedupHit {
		// Archived extraction plus fresh side signals.
		data.DataSource = model.DataSourceHybrid
	}

	res := p.validator.Validate(ctx, data)
	data.Confidence = res.Confidence
	out.validation = &res

	if validate.ShouldEscalate(res, p.opts.EscalationThreshold) {
		// Primary result is junk. Discard it and rebuild from backups.
		zap.L().Info("enrich: low-confidence result, escalating to backup sources",
			zap.String("domain", id.Domain),
			zap.Int("confidence", res.Confidence),
			zap.Strings("errors", res.Errors))
		return p.escalate(ctx, id, fmt.Sprintf("domain %s unreachable or unverifiable", id.Domain))
	}

	out.data = data
	p.cacheResult(ctx, id.Domain, data, p.opts.CacheTTL)
	return out
}

// escalate rebuilds the profile from backup sources. An empty aggregate is a
// hard failure; the pipeline never fabricates a profile.
func (p *Pipeline) escalate(ctx context.Context, id identity, reason string) *outcome {
	var aggregated *model.CompanyEnrichmentData
	if p.backups != nil {
		aggregated = p.backups.Gather(ctx, id.Name, id.Domain)
	}
	if aggregated == nil {
		return &outcome{err: fmt.Errorf("%s, and no backup data was found", reason)}
	}

	if aggregated.Name == "" {
		aggregated.Name = id.Name
	}
	aggregated.Domain = id.Domain

	// Source is set before validation so the reliability check sees it.
	aggregated.DataSource = model.DataSourceBackup
	res := p.validator.Validate(ctx, aggregated)
	aggregated.Confidence = res.Confidence

	p.cacheResult(ctx, id.Domain, aggregated, p.opts.BackupCacheTTL)
	return &outcome{data: aggregated, validation: &res}
}

// compose folds identity and side signals into the extracted profile.
func (p *Pipeline) compose(data *model.CompanyEnrichmentData, id identity, content *model.ScrapedContent, sig sideSignals) {
	if data.Name == "" {
		data.Name = id.Name
	}
	data.Domain = id.Domain
	data.Website = id.URL
	if data.Description == "" && content.Description != "" {
		data.Description = content.Description
	}
	if len(sig.News) > 0 {
		data.News = sig.News
	}
	if len(sig.SocialLinks) > 0 {
		if data.SocialLinks == nil {
			data.SocialLinks = map[string]string{}
		}
		for k, v := range sig.SocialLinks {
			data.SocialLinks[k] = v
		}
	}
	data.Merge(&model.CompanyEnrichmentData{TechStack: sig.TechStack})
	data.DataSource = model.DataSourceLive
}

func (p *Pipeline) cacheResult(ctx context.Context, domain string, data *model.CompanyEnrichmentData, ttl time.Duration) {
	data.LastUpdated = time.Now().UTC()
	if err := p.store.SetCachedEnrichment(ctx, domain, *data, ttl); err != nil {
		zap.L().Warn("enrich: cache write failed", zap.String("domain", domain), zap.Error(err))
	}
}

// finish is the single exit point: it records exactly one cost-log entry,
// emits the completion event, and shapes the response. Failed attempts still
// report the cost they incurred.
func (p *Pipeline) finish(ctx context.Context, id identity, usage *cost.Usage, start time.Time, out *outcome) *model.EnrichmentResponse {
	duration := time.Since(start)
	success := out.err == nil && out.data != nil

	source := model.DataSourceLive
	if out.data != nil && out.data.DataSource != "" {
		source = out.data.DataSource
	}

	entry := p.accountant.Record(ctx, id.Domain, usage, cost.RecordInfo{
		Duration:    duration,
		Success:     success,
		DataSource:  source,
		DedupHit:    out.dedupHit,
		CacheHit:    out.cacheHit,
		StoredBytes: out.stored,
	})

	resp := &model.EnrichmentResponse{
		Success: success,
		Data:    out.data,
		Cost: model.CostBreakdown{
			SearchAPICalls: entry.SearchCalls,
			ScrapingCalls:  entry.ScrapeCalls,
			AITokensUsed:   entry.AITokensIn + entry.AITokensOut,
			TotalCostUSD:   entry.CostUSD,
		},
		Metrics: model.ResponseMetrics{
			DurationMs:          entry.DurationMs,
			DataPointsExtracted: out.data.FieldCount(),
		},
	}
	if out.data != nil {
		resp.Metrics.ConfidenceScore = out.data.Confidence
	}
	if out.hash != "" || out.dedupHit {
		resp.Metrics.Storage = &model.StorageMetrics{
			DedupHit:    out.dedupHit,
			ContentHash: out.hash,
			StoredBytes: out.stored,
		}
	}

	if success {
		p.emit(ctx, events.EnrichmentCompleted, map[string]any{
			"domain":      id.Domain,
			"data_source": string(source),
			"confidence":  resp.Metrics.ConfidenceScore,
			"cost_usd":    entry.CostUSD,
		})
	} else {
		resp.Error = out.err.Error()
		p.emit(ctx, events.EnrichmentFailed, map[string]any{
			"domain": id.Domain,
			"error":  resp.Error,
		})
	}
	return resp
}

func (p *Pipeline) emit(ctx context.Context, t events.Type, details map[string]any) {
	if p.sink != nil {
		p.sink.Emit(ctx, t, details)
	}
}

// BatchOptions controls EnrichBatch concurrency.
type BatchOptions struct {
	Parallel      bool
	MaxConcurrent int           // default 5
	BatchPause    time.Duration // sequential inter-request pause, default 2s
}

// EnrichBatch processes requests either sequentially (with a polite pause
// between targets) or in a bounded parallel group. Responses line up with
// the request slice; a failed request never aborts its siblings.
func (p *Pipeline) EnrichBatch(ctx context.Context, reqs []model.EnrichmentRequest, opts BatchOptions) []*model.EnrichmentResponse {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 5
	}
	if opts.BatchPause == 0 {
		opts.BatchPause = 2 * time.Second
	}

	responses := make([]*model.EnrichmentResponse, len(reqs))

	if opts.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.MaxConcurrent)
		for i, req := range reqs {
			i, req := i, req
			g.Go(func() error {
				responses[i] = p.Enrich(gctx, req)
				return nil
			})
		}
		_ = g.Wait()
		return responses
	}

	for i, req := range reqs {
		if i > 0 {
			select {
			case <-ctx.Done():
				responses[i] = &model.EnrichmentResponse{Success: false, Error: ctx.Err().Error()}
				continue
			case <-time.After(opts.BatchPause):
			}
		}
		responses[i] = p.Enrich(ctx, req)
	}
	return responses
}
