package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock's pool
// interface satisfies it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests with pgxmock).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS enrichment_cache (
	domain     TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS scrape_archive (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	domain       TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	extracted    JSONB NOT NULL,
	archived_at  TIMESTAMPTZ NOT NULL,
	expires_at   TIMESTAMPTZ NOT NULL,
	UNIQUE(domain, content_hash)
);

CREATE TABLE IF NOT EXISTS cost_log (
	id         TEXT PRIMARY KEY,
	domain     TEXT NOT NULL,
	entry      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON enrichment_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_archive_expires_at ON scrape_archive(expires_at);
CREATE INDEX IF NOT EXISTS idx_cost_log_created_at ON cost_log(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetCachedEnrichment(ctx context.Context, domain string) (*model.CachedEnrichment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT domain, data, cached_at, expires_at FROM enrichment_cache
		 WHERE domain = $1 AND expires_at > now()`,
		domain,
	)

	var ce model.CachedEnrichment
	var dataJSON []byte
	err := row.Scan(&ce.Domain, &dataJSON, &ce.CachedAt, &ce.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached enrichment")
	}
	if err := json.Unmarshal(dataJSON, &ce.Data); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached data")
	}
	return &ce, nil
}

func (s *PostgresStore) SetCachedEnrichment(ctx context.Context, domain string, data model.CompanyEnrichmentData, ttl time.Duration) error {
	now := time.Now().UTC()
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO enrichment_cache (domain, data, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (domain) DO UPDATE SET data=EXCLUDED.data, cached_at=EXCLUDED.cached_at, expires_at=EXCLUDED.expires_at`,
		domain, dataJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached enrichment")
}

func (s *PostgresStore) DeleteCachedEnrichment(ctx context.Context, domain string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM enrichment_cache WHERE domain = $1`, domain,
	)
	return eris.Wrap(err, "postgres: delete cached enrichment")
}

func (s *PostgresStore) SweepExpired(ctx context.Context) (int, error) {
	total := 0
	for _, table := range []string{"enrichment_cache", "scrape_archive"} {
		tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE expires_at <= now()`)
		if err != nil {
			return total, eris.Wrapf(err, "postgres: sweep %s", table)
		}
		total += int(tag.RowsAffected())
	}
	return total, nil
}

func (s *PostgresStore) GetArchivedScrape(ctx context.Context, domain, contentHash string) (*model.ArchivedScrape, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT domain, content_hash, extracted, archived_at, expires_at FROM scrape_archive
		 WHERE domain = $1 AND content_hash = $2 AND expires_at > now()`,
		domain, contentHash,
	)

	var as model.ArchivedScrape
	var extractedJSON []byte
	err := row.Scan(&as.Domain, &as.ContentHash, &extractedJSON, &as.ArchivedAt, &as.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get archived scrape")
	}
	if err := json.Unmarshal(extractedJSON, &as.Extracted); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal archived extraction")
	}
	return &as, nil
}

func (s *PostgresStore) SetArchivedScrape(ctx context.Context, archive model.ArchivedScrape) error {
	extractedJSON, err := json.Marshal(archive.Extracted)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal archived extraction")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scrape_archive (id, domain, content_hash, extracted, archived_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (domain, content_hash) DO UPDATE SET extracted=EXCLUDED.extracted, archived_at=EXCLUDED.archived_at, expires_at=EXCLUDED.expires_at`,
		uuid.New().String(), archive.Domain, archive.ContentHash,
		extractedJSON, archive.ArchivedAt, archive.ExpiresAt,
	)
	return eris.Wrap(err, "postgres: set archived scrape")
}

func (s *PostgresStore) AppendCostLog(ctx context.Context, entry model.CostLogEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal cost entry")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO cost_log (id, domain, entry, created_at) VALUES ($1, $2, $3, $4)`,
		entry.ID, entry.Domain, entryJSON, entry.CreatedAt,
	)
	return eris.Wrap(err, "postgres: append cost log")
}

func (s *PostgresStore) ListCostLogs(ctx context.Context, limit int) ([]model.CostLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT entry FROM cost_log ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list cost logs")
	}
	defer rows.Close()

	var entries []model.CostLogEntry
	for rows.Next() {
		var entryJSON []byte
		if err := rows.Scan(&entryJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cost entry")
		}
		var e model.CostLogEntry
		if err := json.Unmarshal(entryJSON, &e); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal cost entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list cost logs iterate")
}
