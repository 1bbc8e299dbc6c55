package dedup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "dedup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestHash_StableAndDistinct(t *testing.T) {
	a := Hash([]byte("same content"))
	b := Hash([]byte("same content"))
	c := Hash([]byte("different content"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestDeduper_MissThenHit(t *testing.T) {
	d := New(newTestStore(t), time.Hour)
	ctx := context.Background()
	raw := []byte("<html><body>Acme</body></html>")

	archived, digest := d.Check(ctx, "acme.com", raw)
	assert.Nil(t, archived)
	assert.Equal(t, Hash(raw), digest)

	extracted := model.CompanyEnrichmentData{Name: "Acme", Industry: "software"}
	require.NoError(t, d.Archive(ctx, "acme.com", digest, extracted))

	archived, digest2 := d.Check(ctx, "acme.com", raw)
	require.NotNil(t, archived)
	assert.Equal(t, digest, digest2)
	assert.Equal(t, "Acme", archived.Extracted.Name)
}

func TestDeduper_DifferentContentMisses(t *testing.T) {
	d := New(newTestStore(t), time.Hour)
	ctx := context.Background()

	_, digest := d.Check(ctx, "acme.com", []byte("version one"))
	require.NoError(t, d.Archive(ctx, "acme.com", digest, model.CompanyEnrichmentData{Name: "Acme"}))

	archived, _ := d.Check(ctx, "acme.com", []byte("version two"))
	assert.Nil(t, archived)
}

func TestDeduper_ExpiredWindowMisses(t *testing.T) {
	st := newTestStore(t)
	d := New(st, time.Hour)
	ctx := context.Background()
	raw := []byte("stable content")

	// Plant an archive row whose window has already closed.
	now := time.Now().UTC()
	require.NoError(t, st.SetArchivedScrape(ctx, model.ArchivedScrape{
		Domain:      "acme.com",
		ContentHash: Hash(raw),
		Extracted:   model.CompanyEnrichmentData{Name: "Acme"},
		ArchivedAt:  now.Add(-25 * time.Hour),
		ExpiresAt:   now.Add(-time.Hour),
	}))

	archived, _ := d.Check(ctx, "acme.com", raw)
	assert.Nil(t, archived)
}

func TestDeduper_ScopedByDomain(t *testing.T) {
	d := New(newTestStore(t), time.Hour)
	ctx := context.Background()
	raw := []byte("identical markup")

	_, digest := d.Check(ctx, "acme.com", raw)
	require.NoError(t, d.Archive(ctx, "acme.com", digest, model.CompanyEnrichmentData{Name: "Acme"}))

	archived, _ := d.Check(ctx, "other.com", raw)
	assert.Nil(t, archived)
}
