package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/backup"
	"github.com/sells-group/enrich-cli/internal/cost"
	"github.com/sells-group/enrich-cli/internal/dedup"
	"github.com/sells-group/enrich-cli/internal/enrich"
	"github.com/sells-group/enrich-cli/internal/events"
	"github.com/sells-group/enrich-cli/internal/extract"
	"github.com/sells-group/enrich-cli/internal/fetch"
	"github.com/sells-group/enrich-cli/internal/ratelimit"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/store"
	"github.com/sells-group/enrich-cli/internal/validate"
	anthropicpkg "github.com/sells-group/enrich-cli/pkg/anthropic"
	"github.com/sells-group/enrich-cli/pkg/jina"
	"github.com/sells-group/enrich-cli/pkg/rdap"
	"github.com/sells-group/enrich-cli/pkg/wiki"
)

// pipelineEnv holds the initialized store, clients, and pipeline shared by
// the enrich/batch/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *enrich.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured backend. SQLite is the zero-config default;
// Postgres kicks in when a database URL is supplied.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store: postgres driver requires ENRICH_STORE_DATABASE_URL")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "", "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
}

// initPipeline sets up the store, all API clients, and the orchestrator.
// Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var aiClient anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		aiClient = anthropicpkg.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Warn("ENRICH_ANTHROPIC_KEY not set, extraction falls back to keyword matching")
	}

	var jinaClient jina.Client
	var reader fetch.Reader
	if cfg.Jina.Key != "" {
		jinaOpts := []jina.Option{}
		if cfg.Jina.BaseURL != "" {
			jinaOpts = append(jinaOpts, jina.WithBaseURL(cfg.Jina.BaseURL))
		}
		if cfg.Jina.SearchBaseURL != "" {
			jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
		}
		jinaClient = jina.NewClient(cfg.Jina.Key, jinaOpts...)
		reader = jinaClient
	} else {
		zap.L().Debug("ENRICH_JINA_KEY not set, reader tier and news signal disabled")
	}

	var renderer fetch.Renderer
	if cfg.Fetch.EnableRender {
		renderer = fetch.NewBrowserFetcher(
			time.Duration(cfg.Fetch.RenderTimeoutSecs)*time.Second,
			time.Duration(cfg.Fetch.RenderSettleSecs)*time.Second,
		)
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.Fetch.MaxRetries > 0 {
		retry.MaxAttempts = cfg.Fetch.MaxRetries
	}
	if cfg.Fetch.BackoffInitialMs > 0 {
		retry.InitialBackoff = time.Duration(cfg.Fetch.BackoffInitialMs) * time.Millisecond
	}

	fetcher := fetch.New(fetch.NewStaticFetcher(), renderer, fetch.Options{
		MinContentChars: cfg.Fetch.MinContentChars,
		Reader:          reader,
		Retry:           retry,
	})

	wikiClient := wiki.NewClient()
	aggregator := backup.NewAggregator([]backup.Source{
		backup.NewRDAPSource(rdap.NewClient()),
		backup.NewDNSTechSource(),
		backup.NewWikidataSource(wikiClient),
		backup.NewWikipediaSource(wikiClient),
	})

	pipeline := enrich.NewPipeline(
		st,
		fetcher,
		dedup.New(st, time.Duration(cfg.Pipeline.DedupTTLHours)*time.Hour),
		extract.NewEngine(aiClient, cfg.Anthropic.Model),
		aggregator,
		validate.New().WithTimeout(time.Duration(cfg.Pipeline.ValidateTimeoutSecs)*time.Second),
		cost.NewAccountant(cfg.Pricing, cfg.Anthropic.Model, st),
		ratelimit.New(time.Duration(cfg.Fetch.RateLimitMs)*time.Millisecond),
		events.NewSink(cfg.Events.WebhookURL),
		jinaClient,
		enrich.PipelineOptions{
			CacheTTL:            time.Duration(cfg.Pipeline.CacheTTLDays) * 24 * time.Hour,
			BackupCacheTTL:      time.Duration(cfg.Pipeline.BackupCacheTTLDays) * 24 * time.Hour,
			EscalationThreshold: cfg.Pipeline.EscalationThreshold,
			EnableDedup:         cfg.Pipeline.EnableDedup,
		},
	)

	return &pipelineEnv{Store: st, Pipeline: pipeline}, nil
}
