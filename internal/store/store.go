// Package store persists finished extraction results in a local SQLite
// database keyed by canonical URL. It is a read-through cache in front of the
// pipeline: a fresh row skips the fetch and the model call entirely, which is
// what makes re-submitting the same posting cheap.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/applypilot/jobextract/internal/posting"
)

// ErrNotFound reports that no row exists for the canonical URL.
var ErrNotFound = errors.New("extraction not found")

// Record is one persisted extraction outcome. Failed attempts are stored
// too, for inspection; the pipeline serves only successful rows back and
// re-runs the rest.
type Record struct {
	CanonicalURL   string
	URL            string
	Company        string
	JobTitle       string
	JobDescription string
	HiringManager  string
	AdSource       posting.Source
	Method         string
	Success        bool
	Message        string
	UpdatedAt      time.Time
}

// Store wraps the SQLite handle. Safe for concurrent use; SQLite serializes
// writers and busy_timeout covers the contention window.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and runs migrations. The DSN
// pragmas keep concurrent access sane: WAL for readers during writes,
// busy_timeout instead of immediate SQLITE_BUSY errors.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS extractions (
	canonical_url  TEXT PRIMARY KEY,
	url            TEXT NOT NULL,
	company        TEXT NOT NULL DEFAULT '',
	job_title      TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	hiring_manager TEXT NOT NULL DEFAULT '',
	ad_source      TEXT NOT NULL DEFAULT 'generic',
	method         TEXT NOT NULL DEFAULT '',
	success        INTEGER NOT NULL DEFAULT 0,
	message        TEXT NOT NULL DEFAULT '',
	updated_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extractions_updated_at ON extractions(updated_at);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Get returns the stored record for the canonical URL or ErrNotFound.
func (s *Store) Get(ctx context.Context, canonicalURL string) (*Record, error) {
	const q = `
SELECT canonical_url, url, company, job_title, description, hiring_manager,
       ad_source, method, success, message, updated_at
  FROM extractions WHERE canonical_url = ?`
	row := s.db.QueryRowContext(ctx, q, canonicalURL)

	var (
		rec     Record
		src     string
		success int64
		updated int64
	)
	err := row.Scan(&rec.CanonicalURL, &rec.URL, &rec.Company, &rec.JobTitle,
		&rec.JobDescription, &rec.HiringManager, &src, &rec.Method,
		&success, &rec.Message, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load extraction: %w", err)
	}
	rec.AdSource = posting.ParseSource(src)
	rec.Success = success != 0
	rec.UpdatedAt = time.Unix(updated, 0).UTC()
	return &rec, nil
}

// Put inserts or replaces the record for its canonical URL.
func (s *Store) Put(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO extractions
	(canonical_url, url, company, job_title, description, hiring_manager,
	 ad_source, method, success, message, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(canonical_url) DO UPDATE SET
	url            = excluded.url,
	company        = excluded.company,
	job_title      = excluded.job_title,
	description    = excluded.description,
	hiring_manager = excluded.hiring_manager,
	ad_source      = excluded.ad_source,
	method         = excluded.method,
	success        = excluded.success,
	message        = excluded.message,
	updated_at     = excluded.updated_at`
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, q, rec.CanonicalURL, rec.URL, rec.Company,
		rec.JobTitle, rec.JobDescription, rec.HiringManager, string(rec.AdSource),
		rec.Method, success, rec.Message, updated.Unix())
	if err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}
	return nil
}

// Purge deletes records last updated before cutoff and reports how many went.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM extractions WHERE updated_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge extractions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
