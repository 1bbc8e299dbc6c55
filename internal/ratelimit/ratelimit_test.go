package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_SpacesSameDomain(t *testing.T) {
	l := New(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "acme.com"))
	require.NoError(t, l.Wait(ctx, "acme.com"))

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_IndependentDomains(t *testing.T) {
	l := New(time.Second)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "acme.com"))
	require.NoError(t, l.Wait(ctx, "globex.com"))

	// Different domains never wait on each other.
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestLimiter_ContextCancel(t *testing.T) {
	l := New(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, l.Wait(ctx, "acme.com"))
	cancel()
	assert.Error(t, l.Wait(ctx, "acme.com"))
}

func TestNew_DefaultsDelay(t *testing.T) {
	l := New(0)
	assert.Equal(t, time.Second, l.minDelay)
}
