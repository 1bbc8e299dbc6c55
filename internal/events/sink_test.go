package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_Emit(t *testing.T) {
	var got Event
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	NewSink(ts.URL).Emit(context.Background(), EnrichmentCompleted, map[string]any{
		"domain": "acme.com",
	})

	assert.Equal(t, EnrichmentCompleted, got.Type)
	assert.Equal(t, "acme.com", got.Details["domain"])
	assert.False(t, got.Timestamp.IsZero())
}

func TestSink_EmptyURLIsNoOp(t *testing.T) {
	// Must not panic or attempt any request.
	NewSink("").Emit(context.Background(), CacheCleared, nil)

	var nilSink *Sink
	nilSink.Emit(context.Background(), CacheCleared, nil)
}

func TestSink_ServerErrorIsSwallowed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	// No panic, no error surfaced.
	NewSink(ts.URL).Emit(context.Background(), EnrichmentFailed, map[string]any{"x": 1})
}
