package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPermanent(t *testing.T) {
	assert.False(t, IsPermanent(nil))
	assert.False(t, IsPermanent(errors.New("plain")))

	assert.True(t, IsPermanent(NewPermanentError(errors.New("404"), 404)))
	assert.True(t, IsPermanent(fmt.Errorf("fetch: %w", NewPermanentError(errors.New("gone"), 410))))

	dnsNotFound := &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}
	assert.True(t, IsPermanent(dnsNotFound))
	assert.True(t, IsPermanent(fmt.Errorf("lookup: %w", dnsNotFound)))

	dnsTemp := &net.DNSError{Err: "server misbehaving", IsTemporary: true}
	assert.False(t, IsPermanent(dnsTemp))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("plain")))

	assert.True(t, IsTransient(NewTransientError(errors.New("503"), 503)))
	assert.True(t, IsTransient(fmt.Errorf("wrap: %w", syscall.ECONNRESET)))
	assert.True(t, IsTransient(errors.New("read tcp: i/o timeout")))

	// A permanent error is never transient, even wrapped.
	assert.False(t, IsTransient(NewPermanentError(errors.New("404"), 404)))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 410} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}
