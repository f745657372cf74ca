// Package storage persists verification runs and per-package results
// in SQLite or Postgres.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/config"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/verify"
)

// RunStore handles verification run bookkeeping
type RunStore interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, id string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// ResultStore persists per-package verification results
type ResultStore interface {
	RecordResult(ctx context.Context, runID string, res *verify.Result) error
	ListResults(ctx context.Context, runID string) ([]Result, error)
	CountByOutcome(ctx context.Context, runID string) (ok, failed int, err error)
}

// Store combines all storage interfaces with lifecycle methods.
// Callers define their own minimal interfaces based on actual usage.
type Store interface {
	RunStore
	ResultStore

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Run represents one invocation of verify or batch processing
type Run struct {
	ID         string
	Kind       string // "verify" or "batch"
	Dataset    string
	RPCURL     string
	StartedAt  string
	FinishedAt string
}

// NewRun creates a run record with a fresh id.
func NewRun(kind, dataset, rpcURL string) *Run {
	return &Run{ID: generateID(), Kind: kind, Dataset: dataset, RPCURL: rpcURL}
}

// Result is a stored verification result row
type Result struct {
	ID                  string
	RunID               string
	PackageID           string
	OK                  bool
	Error               string
	ModulesMissingLocal int
	ModulesMissingRPC   int
	ModulesWithDiffs    int
	DiffSummary         map[string]int
	CreatedAt           string
}

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
