// Package history keeps an audit ledger of signing runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/a3tai/mcp-doc-signer/internal/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	processed   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	report_path TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS run_results (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	position    INTEGER NOT NULL,
	document    TEXT NOT NULL,
	person      TEXT NOT NULL,
	national_id TEXT NOT NULL,
	output_file TEXT NOT NULL,
	status      TEXT NOT NULL,
	timestamp   TEXT NOT NULL,
	error       TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Run is one row of the runs table
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	ReportPath string    `json:"report_path,omitempty"`
}

// Store is the run ledger
type Store struct{ db *sql.DB }

// Open opens (and creates when needed) the ledger at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database
func (s *Store) Close() error { return s.db.Close() }

// Record stores a finished run and its results in one transaction
func (s *Store) Record(ctx context.Context, r *report.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, processed, failed, skipped, report_path) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, formatTime(r.StartedAt), formatTime(r.FinishedAt), r.Processed, r.Failed, r.Skipped, r.ReportPath)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_results (run_id, position, document, person, national_id, output_file, status, timestamp, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, res := range r.Results {
		if _, err := stmt.ExecContext(ctx, r.RunID, i, res.Document, res.SignerName, res.SignerID,
			res.OutputFile, string(res.Status), formatTime(res.Timestamp), res.Error); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert result: %w", err)
		}
	}
	return tx.Commit()
}

// Runs lists the most recent runs first. limit <= 0 returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, finished_at, processed, failed, skipped, report_path FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Processed, &r.Failed, &r.Skipped, &r.ReportPath); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Results returns the recorded pairs of one run in their original order
func (s *Store) Results(ctx context.Context, runID string) ([]report.MergeResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document, person, national_id, output_file, status, timestamp, error FROM run_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []report.MergeResult
	for rows.Next() {
		var (
			res      report.MergeResult
			status   string
			recorded string
		)
		if err := rows.Scan(&res.Document, &res.SignerName, &res.SignerID, &res.OutputFile, &status, &recorded, &res.Error); err != nil {
			return nil, err
		}
		res.Status = report.Status(status)
		res.Timestamp = parseTime(recorded)
		out = append(out, res)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
