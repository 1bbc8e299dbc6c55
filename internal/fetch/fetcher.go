// Package fetch provides the tiered content fetcher: a static HTTP pass,
// escalating to a headless-browser render when the static text is too thin,
// with a remote reader service as the last resort when both local tiers
// come up short.
package fetch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/pkg/jina"
)

// Renderer is the render-tier contract, satisfied by BrowserFetcher.
type Renderer interface {
	Fetch(ctx context.Context, url string) (*model.ScrapedContent, error)
}

// Reader is the remote reader-tier contract, satisfied by jina.Client.
type Reader interface {
	Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error)
}

// Options configures a Fetcher.
type Options struct {
	// MinContentChars is the static-tier text length below which the render
	// tier is invoked. Default 200.
	MinContentChars int
	// Reader handles pages the local tiers cannot, such as hosts that block
	// scrapers outright. Nil disables the tier.
	Reader Reader
	// Retry wraps the whole tiered fetch. Zero value uses
	// resilience.DefaultRetryConfig (3 attempts, 2s/4s/8s).
	Retry resilience.RetryConfig
}

// Fetcher runs the tiered fetch with retry. Permanent failures (DNS
// not-found, 404) surface immediately without consuming attempts.
type Fetcher struct {
	static   *StaticFetcher
	renderer Renderer // nil disables the render tier
	opts     Options
}

// New creates a Fetcher. renderer may be nil to disable the render tier.
func New(static *StaticFetcher, renderer Renderer, opts Options) *Fetcher {
	if static == nil {
		static = NewStaticFetcher()
	}
	if opts.MinContentChars <= 0 {
		opts.MinContentChars = 200
	}
	return &Fetcher{static: static, renderer: renderer, opts: opts}
}

// Fetch retrieves url through the tiers, retrying transient failures with
// exponential backoff across the whole two-tier attempt.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*model.ScrapedContent, error) {
	return resilience.DoVal(ctx, f.retryConfig(url), func(ctx context.Context) (*model.ScrapedContent, error) {
		return f.fetchOnce(ctx, url)
	})
}

// FetchStatic retrieves url through the static tier only, with the same
// retry behavior. Used when the caller opted out of rendering.
func (f *Fetcher) FetchStatic(ctx context.Context, url string) (*model.ScrapedContent, error) {
	return resilience.DoVal(ctx, f.retryConfig(url), func(ctx context.Context) (*model.ScrapedContent, error) {
		return f.static.Fetch(ctx, url)
	})
}

func (f *Fetcher) retryConfig(url string) resilience.RetryConfig {
	cfg := f.opts.Retry
	if cfg.MaxAttempts == 0 {
		cfg = resilience.DefaultRetryConfig()
	}
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("fetch", url)
	}
	return cfg
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*model.ScrapedContent, error) {
	start := time.Now()
	content, err := f.static.Fetch(ctx, url)
	if err != nil {
		// A failed static pass still walks the remaining tiers, unless the
		// failure is permanent.
		if resilience.IsPermanent(err) {
			return nil, err
		}
		if f.renderer != nil {
			zap.L().Debug("fetch: static tier failed, rendering",
				zap.String("url", url),
				zap.Error(err),
			)
			if rendered, rerr := f.render(ctx, url); rerr == nil {
				return rendered, nil
			}
		}
		if f.opts.Reader != nil {
			if read, rerr := f.readRemote(ctx, url); rerr == nil {
				return read, nil
			}
		}
		return nil, err
	}

	if len(content.Text) >= f.opts.MinContentChars {
		zap.L().Debug("fetch: static tier ok",
			zap.String("url", url),
			zap.Int("chars", len(content.Text)),
			zap.Duration("took", time.Since(start)),
		)
		return content, nil
	}

	if f.renderer != nil {
		zap.L().Debug("fetch: static text too thin, rendering",
			zap.String("url", url),
			zap.Int("chars", len(content.Text)),
		)
		rendered, rerr := f.render(ctx, url)
		if rerr == nil {
			return rendered, nil
		}
		zap.L().Warn("fetch: render tier failed",
			zap.String("url", url),
			zap.Error(rerr),
		)
	}
	if f.opts.Reader != nil {
		if read, rerr := f.readRemote(ctx, url); rerr == nil && len(read.Text) > len(content.Text) {
			return read, nil
		}
	}
	// Thin static content beats nothing.
	return content, nil
}

// readRemote pulls url through the hosted reader service, which renders and
// strips the page on the provider's side.
func (f *Fetcher) readRemote(ctx context.Context, url string) (*model.ScrapedContent, error) {
	resp, err := f.opts.Reader.Read(ctx, url)
	if err != nil {
		zap.L().Warn("fetch: reader tier failed",
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, err
	}
	return &model.ScrapedContent{
		URL:   url,
		Title: resp.Data.Title,
		Text:  resp.Data.Content,
		Tier:  model.TierReader,
	}, nil
}

func (f *Fetcher) render(ctx context.Context, url string) (*model.ScrapedContent, error) {
	content, err := f.renderer.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return content, nil
}
