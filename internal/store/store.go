// Package store archives analysis runs in SQLite: the parsed events and the
// rendered report of each run. It is never read back by detection.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"loggedin/internal/event"
	"loggedin/internal/report"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	total_events INTEGER NOT NULL,
	suspicious INTEGER NOT NULL,
	alerts INTEGER NOT NULL,
	report TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id),
	timestamp DATETIME NOT NULL,
	event_id INTEGER NOT NULL,
	user TEXT NOT NULL,
	host TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_user ON events(user);
CREATE INDEX IF NOT EXISTS idx_events_event_id ON events(event_id);
`

// RunSummary is one row of the run history
type RunSummary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	TotalEvents int       `json:"total_events"`
	Suspicious  int       `json:"suspicious"`
	Alerts      int       `json:"alerts"`
}

type Store struct {
	db *sql.DB
}

// NewRunID returns a fresh identifier for an analysis run.
func NewRunID() string {
	return uuid.NewString()
}

// Open creates or opens the archive at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveRun stores the events and report of one run in a single transaction.
func (s *Store) SaveRun(ctx context.Context, runID string, createdAt time.Time, events []event.Record, r *report.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, total_events, suspicious, alerts, report) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, createdAt.UTC(), r.TotalEvents, len(r.SuspiciousUsers), len(r.Alerts), string(body),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (run_id, timestamp, event_id, user, host) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, runID, e.Timestamp().UTC(), uint32(e.ID()), e.User(), e.Host()); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", runID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, total_events, suspicious, alerts FROM runs ORDER BY created_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.TotalEvents, &r.Suspicious, &r.Alerts); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadReport returns the archived report of one run.
func (s *Store) LoadReport(ctx context.Context, runID string) (*report.Report, error) {
	return s.scanReport(s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, runID))
}

// LatestReport returns the report of the most recent run.
func (s *Store) LatestReport(ctx context.Context) (*report.Report, error) {
	return s.scanReport(s.db.QueryRowContext(ctx, `SELECT report FROM runs ORDER BY created_at DESC, id ASC LIMIT 1`))
}

func (s *Store) scanReport(row *sql.Row) (*report.Report, error) {
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	var r report.Report
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

// TopFailedUsers ranks users by failed logins across every archived run.
func (s *Store) TopFailedUsers(ctx context.Context, limit int) ([]report.UserCount, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT user, COUNT(*) AS failed
		FROM events
		WHERE event_id = ?
		GROUP BY user
		ORDER BY failed DESC, user ASC
		LIMIT ?`, uint32(event.FailedLogin), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed logins: %w", err)
	}
	defer rows.Close()

	top := make([]report.UserCount, 0)
	for rows.Next() {
		var uc report.UserCount
		if err := rows.Scan(&uc.User, &uc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan failed logins: %w", err)
		}
		top = append(top, uc)
	}
	return top, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
