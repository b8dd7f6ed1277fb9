// Package results stores one row per reproduction attempt in SQLite.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Record is the outcome row of one attempt.
type Record struct {
	ID             string        `json:"id"`
	StartedAt      time.Time     `json:"started_at"`
	ReportPath     string        `json:"report_path"`
	AppName        string        `json:"app_name"`
	PackageName    string        `json:"package_name"`
	IssueNumber    string        `json:"issue_number"`
	Model          string        `json:"model"`
	Status         string        `json:"status"`
	Duration       time.Duration `json:"duration"`
	CommandCount   int           `json:"command_count"`
	ModelCalls     int           `json:"model_calls"`
	Compactions    int           `json:"compactions"`
	Reproduced     bool          `json:"reproduced"`
	FailureReason  string        `json:"failure_reason,omitempty"`
	CheckpointPath string        `json:"checkpoint_path,omitempty"`
	Remarks        string        `json:"remarks,omitempty"`
}

// Store handles SQLite operations for attempt results
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates the database file and schema if needed.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		report_path TEXT NOT NULL,
		app_name TEXT NOT NULL DEFAULT '',
		package_name TEXT NOT NULL DEFAULT '',
		issue_number TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		duration_seconds REAL NOT NULL DEFAULT 0,
		command_count INTEGER NOT NULL DEFAULT 0,
		model_calls INTEGER NOT NULL DEFAULT 0,
		compactions INTEGER NOT NULL DEFAULT 0,
		reproduced BOOLEAN NOT NULL DEFAULT FALSE,
		failure_reason TEXT NOT NULL DEFAULT '',
		checkpoint_path TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_started_at ON attempts(started_at);
	CREATE INDEX IF NOT EXISTS idx_attempts_status ON attempts(status);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save inserts rec, replacing an existing row with the same id.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO attempts
			(id, started_at, report_path, app_name, package_name, issue_number, model, status,
			 duration_seconds, command_count, model_calls, compactions, reproduced,
			 failure_reason, checkpoint_path, remarks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.StartedAt.UTC(), rec.ReportPath, rec.AppName, rec.PackageName, rec.IssueNumber, rec.Model, rec.Status,
		rec.Duration.Seconds(), rec.CommandCount, rec.ModelCalls, rec.Compactions, rec.Reproduced,
		rec.FailureReason, rec.CheckpointPath, rec.Remarks)
	if err != nil {
		return fmt.Errorf("failed to save attempt %s: %w", rec.ID, err)
	}
	return nil
}

const selectColumns = `
	SELECT id, started_at, report_path, app_name, package_name, issue_number, model, status,
		duration_seconds, command_count, model_calls, compactions, reproduced,
		failure_reason, checkpoint_path, remarks
	FROM attempts`

// List returns the most recent records first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, selectColumns+` ORDER BY started_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, selectColumns+` ORDER BY started_at DESC`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns the record with id, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	return scanRecord(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
}

// CountByStatus returns the number of attempts per status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM attempts GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	rec := &Record{}
	var seconds float64
	err := row.Scan(&rec.ID, &rec.StartedAt, &rec.ReportPath, &rec.AppName, &rec.PackageName, &rec.IssueNumber,
		&rec.Model, &rec.Status, &seconds, &rec.CommandCount, &rec.ModelCalls, &rec.Compactions, &rec.Reproduced,
		&rec.FailureReason, &rec.CheckpointPath, &rec.Remarks)
	if err != nil {
		return nil, err
	}
	rec.Duration = time.Duration(seconds * float64(time.Second))
	return rec, nil
}
