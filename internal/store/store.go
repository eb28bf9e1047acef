// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store keeps the run history: one row per analyze run and one row
// per company review or failure, in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/contract-review/pkg/types"
)

// ErrNotFound is returned when no matching history row exists.
var ErrNotFound = errors.New("not found in history")

// Status is the outcome recorded for one company in one run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	// StatusSkipped marks a company whose documents were unchanged and
	// whose previous review was reused.
	StatusSkipped Status = "skipped"
)

const defaultListLimit = 50

// now is replaced in tests for stable timestamps.
var now = time.Now

// Store manages the history SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			processing_path TEXT,
			workbook TEXT,
			provider TEXT,
			model TEXT,
			prompt TEXT,
			total INTEGER NOT NULL DEFAULT 0,
			successful INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			company TEXT NOT NULL,
			status TEXT NOT NULL,
			step TEXT,
			error TEXT,
			fingerprint TEXT,
			review TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_company ON reviews(company)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_run_id ON reviews(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RunInfo describes an analyze run when it starts.
type RunInfo struct {
	ProcessingPath string
	Workbook       string
	Provider       string
	Model          string
	Prompt         string
}

// RunCounts are the per-run outcome totals written by FinishRun.
type RunCounts struct {
	Total      int `json:"total" yaml:"total"`
	Successful int `json:"successful" yaml:"successful"`
	Failed     int `json:"failed" yaml:"failed"`
	Skipped    int `json:"skipped" yaml:"skipped"`
}

// Run is one recorded analyze run.
type Run struct {
	RunCounts `yaml:",inline"`

	ID             int64      `json:"id" yaml:"id"`
	StartedAt      time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	ProcessingPath string     `json:"processing_path" yaml:"processing_path"`
	Workbook       string     `json:"workbook" yaml:"workbook"`
	Provider       string     `json:"provider" yaml:"provider"`
	Model          string     `json:"model" yaml:"model"`
	Prompt         string     `json:"prompt" yaml:"prompt"`
}

// BeginRun records the start of a run and returns its id.
func (s *Store) BeginRun(ctx context.Context, info RunInfo) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, processing_path, workbook, provider, model, prompt)
		VALUES (?, ?, ?, ?, ?, ?)`,
		formatTime(now()), info.ProcessingPath, info.Workbook, info.Provider, info.Model, info.Prompt)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stamps the run's end time and outcome totals.
func (s *Store) FinishRun(ctx context.Context, id int64, counts RunCounts) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, successful = ?, failed = ?, skipped = ? WHERE id = ?`,
		formatTime(now()), counts.Total, counts.Successful, counts.Failed, counts.Skipped, id)
	if err != nil {
		return fmt.Errorf("updating run %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	return nil
}

// SaveReview records a completed review.
func (s *Store) SaveReview(ctx context.Context, runID int64, r types.Review, fingerprint string) error {
	return s.saveReview(ctx, runID, StatusSuccess, r, fingerprint)
}

// SaveSkipped records a review reused from an earlier run.
func (s *Store) SaveSkipped(ctx context.Context, runID int64, r types.Review, fingerprint string) error {
	return s.saveReview(ctx, runID, StatusSkipped, r, fingerprint)
}

func (s *Store) saveReview(ctx context.Context, runID int64, status Status, r types.Review, fingerprint string) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling review: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reviews (run_id, company, status, fingerprint, review, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, r.Company, string(status), fingerprint, string(data), formatTime(now()))
	if err != nil {
		return fmt.Errorf("inserting review for %s: %w", r.Company, err)
	}
	return nil
}

// SaveFailure records a company whose review failed at step.
func (s *Store) SaveFailure(ctx context.Context, runID int64, f types.Failure, fingerprint string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (run_id, company, status, step, error, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, f.Company, string(StatusFailed), f.Step, f.Error, fingerprint, formatTime(now()))
	if err != nil {
		return fmt.Errorf("inserting failure for %s: %w", f.Company, err)
	}
	return nil
}

// LastSuccessful returns the most recent successful or reused review of
// company with the document fingerprint it was made from.
func (s *Store) LastSuccessful(ctx context.Context, company string) (*types.Review, string, error) {
	var (
		data        sql.NullString
		fingerprint sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT review, fingerprint FROM reviews
		WHERE company = ? AND status IN (?, ?)
		ORDER BY id DESC LIMIT 1`,
		company, string(StatusSuccess), string(StatusSkipped)).Scan(&data, &fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("company %q: %w", company, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("querying last review of %s: %w", company, err)
	}

	var r types.Review
	if err := json.Unmarshal([]byte(data.String), &r); err != nil {
		return nil, "", fmt.Errorf("decoding stored review of %s: %w", company, err)
	}
	return &r, fingerprint.String, nil
}

// Runs lists runs, newest first. A limit of zero uses the default of 50.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, processing_path, workbook, provider, model, prompt,
			total, successful, failed, skipped
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                        Run
			started                  string
			finished                 sql.NullString
			path, workbook, provider sql.NullString
			model, prompt            sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &path, &workbook, &provider, &model, &prompt,
			&r.Total, &r.Successful, &r.Failed, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = parseTime(started)
		if finished.Valid {
			t := parseTime(finished.String)
			r.FinishedAt = &t
		}
		r.ProcessingPath, r.Workbook = path.String, workbook.String
		r.Provider, r.Model, r.Prompt = provider.String, model.String, prompt.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Query filters review records. Zero values match everything.
type Query struct {
	Company string
	RunID   int64
	Status  Status
	// Limit caps the result count; zero means no limit.
	Limit int
}

// Record is one stored company outcome.
type Record struct {
	ID          int64         `json:"id" yaml:"id"`
	RunID       int64         `json:"run_id" yaml:"run_id"`
	Company     string        `json:"company" yaml:"company"`
	Status      Status        `json:"status" yaml:"status"`
	Step        string        `json:"step,omitempty" yaml:"step,omitempty"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
	Fingerprint string        `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`
	Review      *types.Review `json:"review,omitempty" yaml:"review,omitempty"`
}

// Reviews returns records matching q, newest first.
func (s *Store) Reviews(ctx context.Context, q Query) ([]Record, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT id, run_id, company, status, step, error, fingerprint, review, created_at
		FROM reviews WHERE 1=1`)

	if q.Company != "" {
		qb.WriteString(` AND company = ?`)
		args = append(args, q.Company)
	}
	if q.RunID != 0 {
		qb.WriteString(` AND run_id = ?`)
		args = append(args, q.RunID)
	}
	if q.Status != "" {
		qb.WriteString(` AND status = ?`)
		args = append(args, string(q.Status))
	}
	qb.WriteString(` ORDER BY id DESC`)
	if q.Limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying reviews: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec                      Record
			status, created          string
			step, errMsg, fp, review sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Company, &status, &step, &errMsg, &fp, &review, &created); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		rec.Status = Status(status)
		rec.Step, rec.Error, rec.Fingerprint = step.String, errMsg.String, fp.String
		rec.CreatedAt = parseTime(created)
		if review.Valid && review.String != "" {
			var r types.Review
			if err := json.Unmarshal([]byte(review.String), &r); err != nil {
				return nil, fmt.Errorf("decoding review %d: %w", rec.ID, err)
			}
			rec.Review = &r
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
