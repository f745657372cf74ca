package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/verify"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	-- Verification runs
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		dataset TEXT,
		rpc_url TEXT,
		started_at TEXT DEFAULT (datetime('now')),
		finished_at TEXT
	);

	-- Per-package results
	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
		package_id TEXT NOT NULL,
		ok INTEGER NOT NULL,
		error TEXT,
		modules_missing_local INTEGER NOT NULL,
		modules_missing_rpc INTEGER NOT NULL,
		modules_with_diffs INTEGER NOT NULL,
		diff_summary TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		UNIQUE(run_id, package_id)
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
	CREATE INDEX IF NOT EXISTS idx_results_package ON results(package_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Info("database migrations complete")
	return nil
}

// CreateRun inserts a run record
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, kind, dataset, rpc_url, started_at)
		VALUES (?, ?, ?, ?, datetime('now'))
	`
	_, err := s.db.ExecContext(ctx, query, run.ID, run.Kind, run.Dataset, run.RPCURL)
	return err
}

// FinishRun stamps a run's finish time
func (s *SQLiteStore) FinishRun(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE runs SET finished_at = datetime('now') WHERE id = ?", id)
	return err
}

// GetRun retrieves a run by id
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT id, kind, dataset, rpc_url, started_at, finished_at FROM runs WHERE id = ?`
	var run Run
	var finished sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Kind, &run.Dataset, &run.RPCURL, &run.StartedAt, &finished,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if finished.Valid {
		run.FinishedAt = finished.String
	}
	return &run, err
}

// ListRuns lists the most recent runs
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, kind, dataset, rpc_url, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var finished sql.NullString
		if err := rows.Scan(&run.ID, &run.Kind, &run.Dataset, &run.RPCURL, &run.StartedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			run.FinishedAt = finished.String
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordResult stores one package's verification result
func (s *SQLiteStore) RecordResult(ctx context.Context, runID string, res *verify.Result) error {
	summary, err := json.Marshal(res.DiffSummary)
	if err != nil {
		return fmt.Errorf("serializing diff summary: %w", err)
	}
	query := `
		INSERT INTO results (id, run_id, package_id, ok, error, modules_missing_local, modules_missing_rpc, modules_with_diffs, diff_summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(run_id, package_id) DO UPDATE SET ok = excluded.ok, error = excluded.error, diff_summary = excluded.diff_summary
	`
	_, err = s.db.ExecContext(ctx, query,
		generateID(), runID, res.PackageID, res.OK, res.Error,
		len(res.ModulesMissingLocal), len(res.ModulesMissingRPC), len(res.ModulesWithDiffs),
		string(summary),
	)
	return err
}

// ListResults lists a run's results
func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]Result, error) {
	query := `
		SELECT id, run_id, package_id, ok, error, modules_missing_local, modules_missing_rpc, modules_with_diffs, diff_summary, created_at
		FROM results
		WHERE run_id = ?
		ORDER BY package_id
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var summary string
		if err := rows.Scan(&r.ID, &r.RunID, &r.PackageID, &r.OK, &r.Error,
			&r.ModulesMissingLocal, &r.ModulesMissingRPC, &r.ModulesWithDiffs,
			&summary, &r.CreatedAt); err != nil {
			return nil, err
		}
		if summary != "" {
			if err := json.Unmarshal([]byte(summary), &r.DiffSummary); err != nil {
				return nil, fmt.Errorf("parsing diff summary for %s: %w", r.PackageID, err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountByOutcome counts a run's ok and failed results
func (s *SQLiteStore) CountByOutcome(ctx context.Context, runID string) (int, int, error) {
	query := `SELECT COALESCE(SUM(ok), 0), COUNT(*) - COALESCE(SUM(ok), 0) FROM results WHERE run_id = ?`
	var ok, failed int
	err := s.db.QueryRowContext(ctx, query, runID).Scan(&ok, &failed)
	return ok, failed, err
}
