package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/enrich-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS enrichment_cache (
	domain     TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	cached_at  DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS scrape_archive (
	id           TEXT PRIMARY KEY,
	domain       TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	extracted    TEXT NOT NULL,
	archived_at  DATETIME NOT NULL,
	expires_at   DATETIME NOT NULL,
	UNIQUE(domain, content_hash)
);

CREATE TABLE IF NOT EXISTS cost_log (
	id         TEXT PRIMARY KEY,
	domain     TEXT NOT NULL,
	entry      TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON enrichment_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_archive_expires_at ON scrape_archive(expires_at);
CREATE INDEX IF NOT EXISTS idx_cost_log_created_at ON cost_log(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCachedEnrichment(ctx context.Context, domain string) (*model.CachedEnrichment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT domain, data, cached_at, expires_at FROM enrichment_cache WHERE domain = ?`,
		domain,
	)

	var ce model.CachedEnrichment
	var dataJSON string
	err := row.Scan(&ce.Domain, &dataJSON, &ce.CachedAt, &ce.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached enrichment")
	}
	if ce.Expired(time.Now().UTC()) {
		// Stale row is a miss; leave physical deletion to SweepExpired.
		return nil, nil
	}
	if err := json.Unmarshal([]byte(dataJSON), &ce.Data); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached data")
	}
	return &ce, nil
}

func (s *SQLiteStore) SetCachedEnrichment(ctx context.Context, domain string, data model.CompanyEnrichmentData, ttl time.Duration) error {
	now := time.Now().UTC()
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrichment")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO enrichment_cache (domain, data, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET data=excluded.data, cached_at=excluded.cached_at, expires_at=excluded.expires_at`,
		domain, string(dataJSON), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached enrichment")
}

func (s *SQLiteStore) DeleteCachedEnrichment(ctx context.Context, domain string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM enrichment_cache WHERE domain = ?`, domain,
	)
	return eris.Wrap(err, "sqlite: delete cached enrichment")
}

func (s *SQLiteStore) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	total := 0
	for _, table := range []string{"enrichment_cache", "scrape_archive"} {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE expires_at <= ?`, now,
		)
		if err != nil {
			return total, eris.Wrapf(err, "sqlite: sweep %s", table)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, eris.Wrap(err, "sqlite: rows affected")
		}
		total += int(n)
	}
	return total, nil
}

func (s *SQLiteStore) GetArchivedScrape(ctx context.Context, domain, contentHash string) (*model.ArchivedScrape, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT domain, content_hash, extracted, archived_at, expires_at FROM scrape_archive
		 WHERE domain = ? AND content_hash = ?`,
		domain, contentHash,
	)

	var as model.ArchivedScrape
	var extractedJSON string
	err := row.Scan(&as.Domain, &as.ContentHash, &extractedJSON, &as.ArchivedAt, &as.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get archived scrape")
	}
	if time.Now().UTC().After(as.ExpiresAt) {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(extractedJSON), &as.Extracted); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal archived extraction")
	}
	return &as, nil
}

func (s *SQLiteStore) SetArchivedScrape(ctx context.Context, archive model.ArchivedScrape) error {
	extractedJSON, err := json.Marshal(archive.Extracted)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal archived extraction")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scrape_archive (id, domain, content_hash, extracted, archived_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(domain, content_hash) DO UPDATE SET extracted=excluded.extracted, archived_at=excluded.archived_at, expires_at=excluded.expires_at`,
		uuid.New().String(), archive.Domain, archive.ContentHash,
		string(extractedJSON), archive.ArchivedAt, archive.ExpiresAt,
	)
	return eris.Wrap(err, "sqlite: set archived scrape")
}

func (s *SQLiteStore) AppendCostLog(ctx context.Context, entry model.CostLogEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal cost entry")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cost_log (id, domain, entry, created_at) VALUES (?, ?, ?, ?)`,
		entry.ID, entry.Domain, string(entryJSON), entry.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: append cost log")
}

func (s *SQLiteStore) ListCostLogs(ctx context.Context, limit int) ([]model.CostLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry FROM cost_log ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list cost logs")
	}
	defer rows.Close()

	var entries []model.CostLogEntry
	for rows.Next() {
		var entryJSON string
		if err := rows.Scan(&entryJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cost entry")
		}
		var e model.CostLogEntry
		if err := json.Unmarshal([]byte(entryJSON), &e); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal cost entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list cost logs iterate")
}
