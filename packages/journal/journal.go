// Package journal keeps a SQLite history of finished requests.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/hostline/packages/http"
)

const schema = `
CREATE TABLE IF NOT EXISTS requests (
	id          TEXT PRIMARY KEY,
	host        TEXT NOT NULL,
	method      TEXT NOT NULL,
	uri         TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL,
	error_kind  TEXT NOT NULL,
	error       TEXT NOT NULL,
	delegated   INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS requests_host ON requests (host);
CREATE INDEX IF NOT EXISTS requests_created_at ON requests (created_at);
`

// Store is a request journal backed by SQLite. It satisfies http.Recorder.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal at location. Accepted forms are
// sqlite://path, sqlite:path and a bare file path. ":memory:" keeps the
// journal in memory.
func Open(location string) (*Store, error) {
	dsn, err := parseLocation(location)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// SQLite allows a single writer; serializing here avoids "database is locked".
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	return &Store{db: db}, nil
}

func parseLocation(location string) (string, error) {
	location = strings.TrimSpace(location)

	switch {
	case strings.HasPrefix(location, "sqlite://"):
		location = strings.TrimPrefix(location, "sqlite://")
	case strings.HasPrefix(location, "sqlite:"):
		location = strings.TrimPrefix(location, "sqlite:")
	case strings.Contains(location, "://"):
		return "", fmt.Errorf("unsupported journal location: %s", location)
	}

	if location == "" {
		return "", fmt.Errorf("journal location is empty")
	}
	return location, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores one finished call
func (s *Store) Record(ctx context.Context, rec http.Record) error {
	created := rec.Time
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (id, host, method, uri, status_code, duration_ns, error_kind, error, delegated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Host, rec.Method, rec.URI, rec.StatusCode, int64(rec.Duration),
		rec.ErrorKind, rec.Error, rec.Delegated, created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record request %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]http.Record, error) {
	return s.query(ctx, "", limit)
}

// RecentForHost is Recent restricted to one host key
func (s *Store) RecentForHost(ctx context.Context, host string, limit int) ([]http.Record, error) {
	return s.query(ctx, host, limit)
}

func (s *Store) query(ctx context.Context, host string, limit int) ([]http.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	q := `SELECT id, host, method, uri, status_code, duration_ns, error_kind, error, delegated, created_at FROM requests`
	args := []any{}
	if host != "" {
		q += ` WHERE host = ?`
		args = append(args, host)
	}
	q += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []http.Record
	for rows.Next() {
		var (
			rec      http.Record
			duration int64
			created  int64
		)
		if err := rows.Scan(&rec.ID, &rec.Host, &rec.Method, &rec.URI, &rec.StatusCode,
			&duration, &rec.ErrorKind, &rec.Error, &rec.Delegated, &created); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Duration = time.Duration(duration)
		rec.Time = time.Unix(0, created)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

// HostSummary aggregates the journal for one host
type HostSummary struct {
	Host     string
	Requests int
	Failures int
}

// CountByHost summarizes the journal per host key, busiest first
func (s *Store) CountByHost(ctx context.Context) ([]HostSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT host, COUNT(*), SUM(CASE WHEN error_kind != '' THEN 1 ELSE 0 END)
		 FROM requests GROUP BY host ORDER BY COUNT(*) DESC, host`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var summaries []HostSummary
	for rows.Next() {
		var sum HostSummary
		if err := rows.Scan(&sum.Host, &sum.Requests, &sum.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return summaries, nil
}

// Prune deletes records older than cutoff and returns how many were removed
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune failed: %w", err)
	}
	return res.RowsAffected()
}
