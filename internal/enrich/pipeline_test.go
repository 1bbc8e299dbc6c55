package enrich

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/backup"
	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/cost"
	"github.com/sells-group/enrich-cli/internal/dedup"
	"github.com/sells-group/enrich-cli/internal/extract"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/store"
	"github.com/sells-group/enrich-cli/internal/validate"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// okHTTPClient answers every reachability probe with a 200.
func okHTTPClient() *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     http.Header{},
		}, nil
	})}
}

type stubFetcher struct {
	mu      sync.Mutex
	content *model.ScrapedContent
	err     error
	calls   int
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*model.ScrapedContent, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := *f.content
	c.URL = url
	return &c, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *stubFetcher) FetchStatic(ctx context.Context, url string) (*model.ScrapedContent, error) {
	return f.Fetch(ctx, url)
}

type stubBackupSource struct {
	data *model.CompanyEnrichmentData
	err  error
}

func (s stubBackupSource) Name() string { return "stub" }

func (s stubBackupSource) Lookup(context.Context, string, string) (*model.CompanyEnrichmentData, error) {
	return s.data, s.err
}

func sampleContent() *model.ScrapedContent {
	return &model.ScrapedContent{
		Title:       "Acme",
		Description: "Acme builds developer tooling for cloud teams.",
		Text: "Acme is a SaaS platform for developer tooling. " +
			"Founded in 2012, the team has grown to 45 employees.",
		RawHTML: `<html><body>
			<a href="https://www.linkedin.com/company/acme">LinkedIn</a>
			<link href="/wp-content/themes/acme/style.css" rel="stylesheet">
			</body></html>`,
		Tier: model.TierStatic,
	}
}

func newTestPipeline(t *testing.T, fetcher ContentFetcher, backups *backup.Aggregator) (*Pipeline, store.Store) {
	t.Helper()
	return newTestPipelineWith(t, fetcher, backups, okHTTPClient(), PipelineOptions{EnableDedup: true})
}

func newTestPipelineWith(t *testing.T, fetcher ContentFetcher, backups *backup.Aggregator, hc *http.Client, opts PipelineOptions) (*Pipeline, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "enrich.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	pricing := config.PricingConfig{
		Anthropic:          map[string]config.ModelPricing{"claude-haiku": {Input: 1, Output: 5}},
		Jina:               config.JinaPricing{SearchCallUSD: 0.005},
		ScrapeCallUSD:      0.001,
		ReferenceLookupUSD: 0.25,
	}
	p := NewPipeline(
		st,
		fetcher,
		dedup.New(st, time.Hour),
		extract.NewEngine(nil, ""),
		backups,
		validate.New().WithHTTPClient(hc),
		cost.NewAccountant(pricing, "claude-haiku", st),
		nil, // limiter
		nil, // sink
		nil, // search
		opts,
	)
	return p, st
}

func TestPipeline_Enrich_Live(t *testing.T) {
	fetcher := &stubFetcher{content: sampleContent()}
	p, st := newTestPipeline(t, fetcher, nil)

	resp := p.Enrich(context.Background(), model.EnrichmentRequest{Domain: "acme.com"})

	require.True(t, resp.Success, resp.Error)
	require.NotNil(t, resp.Data)
	assert.Equal(t, model.DataSourceLive, resp.Data.DataSource)
	assert.Equal(t, "acme.com", resp.Data.Domain)
	assert.Equal(t, "https://acme.com", resp.Data.Website)
	assert.Equal(t, "software", resp.Data.Industry)
	require.NotNil(t, resp.Data.EmployeeCount)
	assert.Equal(t, 45, *resp.Data.EmployeeCount)
	assert.Equal(t, model.SizeSmall, resp.Data.Size)
	assert.Contains(t, resp.Data.TechStack, "wordpress")
	assert.Equal(t, "https://www.linkedin.com/company/acme", resp.Data.SocialLinks["linkedin"])

	assert.GreaterOrEqual(t, resp.Data.Confidence, 0)
	assert.LessOrEqual(t, resp.Data.Confidence, 100)

	assert.Equal(t, 1, resp.Cost.ScrapingCalls)
	assert.InDelta(t, 0.001, resp.Cost.TotalCostUSD, 1e-9)

	require.NotNil(t, resp.Metrics.Storage)
	assert.False(t, resp.Metrics.Storage.DedupHit)
	assert.Len(t, resp.Metrics.Storage.ContentHash, 64)
	assert.Positive(t, resp.Metrics.Storage.StoredBytes)

	entries, err := st.ListCostLogs(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPipeline_Enrich_CacheHit(t *testing.T) {
	fetcher := &stubFetcher{content: sampleContent()}
	p, st := newTestPipeline(t, fetcher, nil)
	ctx := context.Background()

	first := p.Enrich(ctx, model.EnrichmentRequest{Domain: "acme.com"})
	require.True(t, first.Success)

	second := p.Enrich(ctx, model.EnrichmentRequest{Domain: "acme.com"})
	require.True(t, second.Success)
	assert.Equal(t, model.DataSourceCache, second.Data.DataSource)
	// A cached answer costs nothing and never touches the fetch tier.
	assert.Equal(t, 1, fetcher.callCount())
	assert.Zero(t, second.Cost.ScrapingCalls)
	assert.Zero(t, second.Cost.TotalCostUSD)

	entries, err := st.ListCostLogs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPipeline_Enrich_DedupHit(t *testing.T) {
	fetcher := &stubFetcher{content: sampleContent()}
	p, _ := newTestPipeline(t, fetcher, nil)
	ctx := context.Background()
	skip := &model.RequestContext{SkipCache: true}

	first := p.Enrich(ctx, model.EnrichmentRequest{Domain: "acme.com", Context: skip})
	require.True(t, first.Success)
	require.NotNil(t, first.Metrics.Storage)
	assert.False(t, first.Metrics.Storage.DedupHit)

	second := p.Enrich(ctx, model.EnrichmentRequest{Domain: "acme.com", Context: skip})
	require.True(t, second.Success)
	require.NotNil(t, second.Metrics.Storage)
	assert.True(t, second.Metrics.Storage.DedupHit)
	assert.Equal(t, first.Metrics.Storage.ContentHash, second.Metrics.Storage.ContentHash)
	// Archived extraction plus freshly gathered signals is a hybrid profile.
	assert.Equal(t, model.DataSourceHybrid, second.Data.DataSource)
	assert.Equal(t, 2, fetcher.callCount())
}

func TestPipeline_Enrich_FetchFails_BackupSucceeds(t *testing.T) {
	year := 1998
	backups := backup.NewAggregator([]backup.Source{
		stubBackupSource{data: &model.CompanyEnrichmentData{
			Description: "Industrial widget maker headquartered in Ohio.",
			Industry:    "manufacturing",
			FoundedYear: &year,
		}},
	})
	fetcher := &stubFetcher{err: errors.New("connect: connection refused")}
	p, _ := newTestPipeline(t, fetcher, backups)
	ctx := context.Background()

	resp := p.Enrich(ctx, model.EnrichmentRequest{Name: "Acme Inc", Domain: "acme.com"})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, model.DataSourceBackup, resp.Data.DataSource)
	assert.Equal(t, "acme.com", resp.Data.Domain)
	assert.Equal(t, "Acme Inc", resp.Data.Name)
	assert.Equal(t, "manufacturing", resp.Data.Industry)

	// Backup results are cached too, on the shorter TTL.
	cached := p.Enrich(ctx, model.EnrichmentRequest{Domain: "acme.com"})
	require.True(t, cached.Success)
	assert.Equal(t, model.DataSourceCache, cached.Data.DataSource)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestPipeline_Enrich_FetchFails_NoBackupData(t *testing.T) {
	backups := backup.NewAggregator(nil)
	fetcher := &stubFetcher{err: errors.New("no such host")}
	p, st := newTestPipeline(t, fetcher, backups)
	ctx := context.Background()

	resp := p.Enrich(ctx, model.EnrichmentRequest{Domain: "acme.com"})

	require.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Contains(t, resp.Error, "domain acme.com unreachable")
	assert.Contains(t, resp.Error, "no backup data was found")

	// The failed attempt still paid for one scrape call.
	assert.Equal(t, 1, resp.Cost.ScrapingCalls)
	entries, err := st.ListCostLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
}

func TestPipeline_Enrich_EmptyRequest(t *testing.T) {
	p, st := newTestPipeline(t, &stubFetcher{content: sampleContent()}, nil)

	resp := p.Enrich(context.Background(), model.EnrichmentRequest{})

	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "name, domain, or url")

	// Even a rejected request leaves its zero-cost entry in the log.
	entries, err := st.ListCostLogs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Zero(t, entries[0].CostUSD)
	assert.Zero(t, entries[0].ScrapeCalls)
}

func TestPipeline_Enrich_UnresolvableDomain(t *testing.T) {
	p, st := newTestPipeline(t, &stubFetcher{content: sampleContent()}, nil)

	resp := p.Enrich(context.Background(), model.EnrichmentRequest{Name: "***"})

	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "could not resolve a domain")

	entries, err := st.ListCostLogs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Zero(t, entries[0].CostUSD)
}

func TestPipeline_Enrich_LowConfidenceEscalatesToBackup(t *testing.T) {
	backups := backup.NewAggregator([]backup.Source{
		stubBackupSource{data: &model.CompanyEnrichmentData{
			Description: "Industrial widget maker headquartered in Ohio.",
			Industry:    "manufacturing",
		}},
	})
	// The fetch succeeds but yields almost nothing, and every reachability
	// probe fails, so the live profile scores far below the floor.
	fetcher := &stubFetcher{content: &model.ScrapedContent{
		Title: "Acme",
		Text:  "Welcome",
		Tier:  model.TierStatic,
	}}
	unreachable := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     http.Header{},
		}, nil
	})}
	p, _ := newTestPipelineWith(t, fetcher, backups, unreachable, PipelineOptions{EscalationThreshold: 60})

	resp := p.Enrich(context.Background(), model.EnrichmentRequest{Domain: "acme.com"})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, 1, fetcher.callCount())
	assert.Equal(t, model.DataSourceBackup, resp.Data.DataSource)
	assert.Equal(t, "manufacturing", resp.Data.Industry)
	assert.Equal(t, "Industrial widget maker headquartered in Ohio.", resp.Data.Description)
}

func TestPipeline_EnrichBatch_Parallel(t *testing.T) {
	fetcher := &stubFetcher{content: sampleContent()}
	p, _ := newTestPipeline(t, fetcher, nil)

	reqs := []model.EnrichmentRequest{
		{Domain: "acme.com"},
		{Domain: "globex.com"},
		{Domain: "initech.io"},
	}
	responses := p.EnrichBatch(context.Background(), reqs, BatchOptions{Parallel: true, MaxConcurrent: 2})

	require.Len(t, responses, 3)
	for i, resp := range responses {
		require.NotNil(t, resp, "response %d", i)
		assert.True(t, resp.Success, resp.Error)
	}
	assert.Equal(t, "acme.com", responses[0].Data.Domain)
	assert.Equal(t, "globex.com", responses[1].Data.Domain)
	assert.Equal(t, "initech.io", responses[2].Data.Domain)
}

func TestPipeline_EnrichBatch_Sequential(t *testing.T) {
	fetcher := &stubFetcher{content: sampleContent()}
	p, _ := newTestPipeline(t, fetcher, nil)

	reqs := []model.EnrichmentRequest{{Domain: "acme.com"}, {Domain: "globex.com"}}
	responses := p.EnrichBatch(context.Background(), reqs, BatchOptions{BatchPause: time.Millisecond})

	require.Len(t, responses, 2)
	assert.True(t, responses[0].Success)
	assert.True(t, responses[1].Success)
}
