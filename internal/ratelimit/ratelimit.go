// Package ratelimit enforces a minimum delay between requests to the same
// target domain.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter serializes fetch timing per domain. It is shared across concurrent
// enrichment requests; two requests for the same domain still space their
// fetches by at least the configured delay.
type Limiter struct {
	mu       sync.Mutex
	perHost  map[string]*rate.Limiter
	minDelay time.Duration
}

// New creates a Limiter with the given minimum per-domain spacing.
// A non-positive delay defaults to 1s.
func New(minDelay time.Duration) *Limiter {
	if minDelay <= 0 {
		minDelay = time.Second
	}
	return &Limiter{
		perHost:  make(map[string]*rate.Limiter),
		minDelay: minDelay,
	}
}

// Wait blocks until the domain's limiter grants a slot or ctx is done.
func (l *Limiter) Wait(ctx context.Context, domain string) error {
	return l.limiterFor(domain).Wait(ctx)
}

func (l *Limiter) limiterFor(domain string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl, ok := l.perHost[domain]
	if !ok {
		rl = rate.NewLimiter(rate.Every(l.minDelay), 1)
		l.perHost[domain] = rl
	}
	return rl
}
