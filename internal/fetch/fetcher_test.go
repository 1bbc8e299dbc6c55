package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/pkg/jina"
)

type stubRenderer struct {
	content *model.ScrapedContent
	err     error
	calls   int
}

func (s *stubRenderer) Fetch(ctx context.Context, url string) (*model.ScrapedContent, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.content, nil
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, Multiplier: 2.0}
}

func TestFetcher_StaticSufficient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer ts.Close()

	renderer := &stubRenderer{}
	f := New(NewStaticFetcher(), renderer, Options{MinContentChars: 10, Retry: fastRetry()})

	content, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, model.TierStatic, content.Tier)
	assert.Zero(t, renderer.calls)
}

func TestFetcher_ThinStaticEscalatesToRender(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="app"></div></body></html>`))
	}))
	defer ts.Close()

	renderer := &stubRenderer{content: &model.ScrapedContent{
		URL:  ts.URL,
		Text: "Client-rendered marketing copy with plenty of text about the company.",
		Tier: model.TierRender,
	}}
	f := New(NewStaticFetcher(), renderer, Options{MinContentChars: 200, Retry: fastRetry()})

	content, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, model.TierRender, content.Tier)
	assert.Equal(t, 1, renderer.calls)
}

func TestFetcher_RenderFailureKeepsThinStatic(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>tiny</p></body></html>`))
	}))
	defer ts.Close()

	renderer := &stubRenderer{err: errors.New("chrome crashed")}
	f := New(NewStaticFetcher(), renderer, Options{MinContentChars: 200, Retry: fastRetry()})

	content, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, model.TierStatic, content.Tier)
	assert.Equal(t, "tiny", content.Text)
}

func TestFetcher_404NotRetriedNorRendered(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.NotFound(w, r)
	}))
	defer ts.Close()

	renderer := &stubRenderer{}
	f := New(NewStaticFetcher(), renderer, Options{MinContentChars: 10, Retry: fastRetry()})

	_, err := f.Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.True(t, resilience.IsPermanent(err))
	assert.Equal(t, 1, hits)
	assert.Zero(t, renderer.calls)
}

func TestFetcher_TransientRetriedThenSuccess(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer ts.Close()

	// No renderer: transient static failures surface to the retry loop.
	f := New(NewStaticFetcher(), nil, Options{MinContentChars: 10, Retry: fastRetry()})

	content, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, 3, hits)
	assert.Contains(t, content.Text, "Acme")
}

func TestFetcher_FetchStatic_NeverRenders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>thin</p></body></html>`))
	}))
	defer ts.Close()

	renderer := &stubRenderer{content: &model.ScrapedContent{Text: "rendered", Tier: model.TierRender}}
	f := New(NewStaticFetcher(), renderer, Options{MinContentChars: 500, Retry: fastRetry()})

	content, err := f.FetchStatic(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, model.TierStatic, content.Tier)
	assert.Zero(t, renderer.calls)
}

type stubReader struct {
	resp  *jina.ReadResponse
	err   error
	calls int
}

func (s *stubReader) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func TestFetcher_ReaderRescuesBlockedHost(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	reader := &stubReader{resp: &jina.ReadResponse{Code: 200, Data: jina.ReadData{
		Title:   "Acme",
		Content: "Acme builds industrial widget automation for mid-market factories.",
	}}}
	f := New(NewStaticFetcher(), nil, Options{MinContentChars: 10, Reader: reader, Retry: fastRetry()})

	content, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, model.TierReader, content.Tier)
	assert.Contains(t, content.Text, "Acme")
	assert.Equal(t, 1, reader.calls)
	// The reader rescued the first attempt, so no retries were spent.
	assert.Equal(t, 1, hits)
}

func TestFetcher_ReaderUpgradesThinStatic(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>tiny</p></body></html>`))
	}))
	defer ts.Close()

	reader := &stubReader{resp: &jina.ReadResponse{Code: 200, Data: jina.ReadData{
		Content: "Client-rendered marketing copy the static pass never sees.",
	}}}
	f := New(NewStaticFetcher(), nil, Options{MinContentChars: 500, Reader: reader, Retry: fastRetry()})

	content, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, model.TierReader, content.Tier)
}

func TestFetcher_ReaderFailureKeepsThinStatic(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>tiny</p></body></html>`))
	}))
	defer ts.Close()

	reader := &stubReader{err: errors.New("reader: unexpected status 402")}
	f := New(NewStaticFetcher(), nil, Options{MinContentChars: 500, Reader: reader, Retry: fastRetry()})

	content, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, model.TierStatic, content.Tier)
	assert.Equal(t, "tiny", content.Text)
}
