package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/verify"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &PostgresStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	-- Verification runs
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		dataset TEXT,
		rpc_url TEXT,
		started_at TIMESTAMPTZ DEFAULT now(),
		finished_at TIMESTAMPTZ
	);

	-- Per-package results
	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
		package_id TEXT NOT NULL,
		ok BOOLEAN NOT NULL,
		error TEXT,
		modules_missing_local INTEGER NOT NULL,
		modules_missing_rpc INTEGER NOT NULL,
		modules_with_diffs INTEGER NOT NULL,
		diff_summary JSONB,
		created_at TIMESTAMPTZ DEFAULT now(),
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
func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, kind, dataset, rpc_url, started_at)
		VALUES ($1, $2, $3, $4, now())
	`
	_, err := s.db.ExecContext(ctx, query, run.ID, run.Kind, run.Dataset, run.RPCURL)
	return err
}

// FinishRun stamps a run's finish time
func (s *PostgresStore) FinishRun(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE runs SET finished_at = now() WHERE id = $1", id)
	return err
}

// GetRun retrieves a run by id
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT id, kind, dataset, rpc_url, started_at::TEXT, finished_at::TEXT FROM runs WHERE id = $1`
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
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, kind, dataset, rpc_url, started_at::TEXT, finished_at::TEXT FROM runs ORDER BY started_at DESC LIMIT $1`
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
func (s *PostgresStore) RecordResult(ctx context.Context, runID string, res *verify.Result) error {
	summary, err := json.Marshal(res.DiffSummary)
	if err != nil {
		return fmt.Errorf("serializing diff summary: %w", err)
	}
	query := `
		INSERT INTO results (id, run_id, package_id, ok, error, modules_missing_local, modules_missing_rpc, modules_with_diffs, diff_summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (run_id, package_id) DO UPDATE SET ok = excluded.ok, error = excluded.error, diff_summary = excluded.diff_summary
	`
	_, err = s.db.ExecContext(ctx, query,
		generateID(), runID, res.PackageID, res.OK, res.Error,
		len(res.ModulesMissingLocal), len(res.ModulesMissingRPC), len(res.ModulesWithDiffs),
		string(summary),
	)
	return err
}

// ListResults lists a run's results
func (s *PostgresStore) ListResults(ctx context.Context, runID string) ([]Result, error) {
	query := `
		SELECT id, run_id, package_id, ok, error, modules_missing_local, modules_missing_rpc, modules_with_diffs, diff_summary::TEXT, created_at::TEXT
		FROM results
		WHERE run_id = $1
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
		var summary sql.NullString
		if err := rows.Scan(&r.ID, &r.RunID, &r.PackageID, &r.OK, &r.Error,
			&r.ModulesMissingLocal, &r.ModulesMissingRPC, &r.ModulesWithDiffs,
			&summary, &r.CreatedAt); err != nil {
			return nil, err
		}
		if summary.Valid && summary.String != "" {
			if err := json.Unmarshal([]byte(summary.String), &r.DiffSummary); err != nil {
				return nil, fmt.Errorf("parsing diff summary for %s: %w", r.PackageID, err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountByOutcome counts a run's ok and failed results
func (s *PostgresStore) CountByOutcome(ctx context.Context, runID string) (int, int, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE ok), COUNT(*) FILTER (WHERE NOT ok)
		FROM results
		WHERE run_id = $1
	`
	var ok, failed int
	err := s.db.QueryRowContext(ctx, query, runID).Scan(&ok, &failed)
	return ok, failed, err
}
