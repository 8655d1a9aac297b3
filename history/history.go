// Package history keeps a log of every analysis computed on a cache miss so
// a site's score can be followed over time.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"                     // PostgreSQL driver
	_ "github.com/ncruces/go-sqlite3/driver" // SQLite driver
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/metalyz/backend/analyzer"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// Record is one stored analysis summary.
type Record struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	SeoScore   int       `json:"seoScore"`
	IssueCount int       `json:"issueCount"`
	Fallback   bool      `json:"fallback"`
	AnalyzedAt time.Time `json:"analyzedAt"`
}

// DB stores analysis records in PostgreSQL or SQLite.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

var _ analyzer.Recorder = (*DB)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	seo_score   INTEGER NOT NULL,
	issue_count INTEGER NOT NULL,
	fallback    BOOLEAN NOT NULL,
	analyzed_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_url ON analyses (url, analyzed_at);
`

// Open connects with driver and dsn and creates the schema if needed.
// Use DriverSQLite with ":memory:" for an in-memory database.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported history driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// One writer at a time; also keeps ":memory:" on a single connection.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{db: conn, now: time.Now}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.db.Close()
}

// Record implements analyzer.Recorder.
func (db *DB) Record(ctx context.Context, a *analyzer.Analysis) error {
	return db.Insert(ctx, Record{
		URL:        a.URL,
		SeoScore:   a.SeoScore,
		IssueCount: len(a.Issues),
		Fallback:   a.Fallback,
		AnalyzedAt: db.now(),
	})
}

// Insert stores r, assigning an ID when r has none.
func (db *DB) Insert(ctx context.Context, r Record) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO analyses (id, url, seo_score, issue_count, fallback, analyzed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.URL, r.SeoScore, r.IssueCount, r.Fallback, r.AnalyzedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis record: %w", err)
	}
	return nil
}

// List returns the newest records for url, at most limit of them.
func (db *DB) List(ctx context.Context, url string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := db.db.QueryContext(ctx,
		`SELECT id, url, seo_score, issue_count, fallback, analyzed_at
		 FROM analyses
		 WHERE url = $1
		 ORDER BY analyzed_at DESC, id
		 LIMIT $2`,
		url, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			r          Record
			analyzedAt int64
		)
		if err := rows.Scan(&r.ID, &r.URL, &r.SeoScore, &r.IssueCount, &r.Fallback, &analyzedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis record: %w", err)
		}
		r.AnalyzedAt = time.UnixMilli(analyzedAt).UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}
