package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"log/slog"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/verify"
)

func TestSQLiteStore(t *testing.T) {
	// Create temp directory for test database
	tmpDir, err := os.MkdirTemp("", "smie-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := NewSQLiteStore(dbPath, logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	run := NewRun("verify", "mainnet_most_used", "https://fullnode.mainnet.sui.io:443")

	t.Run("CreateAndGetRun", func(t *testing.T) {
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}

		got, err := store.GetRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if got.Kind != "verify" {
			t.Errorf("GetRun().Kind = %v, want verify", got.Kind)
		}
		if got.Dataset != run.Dataset {
			t.Errorf("GetRun().Dataset = %v, want %v", got.Dataset, run.Dataset)
		}
		if got.FinishedAt != "" {
			t.Errorf("GetRun().FinishedAt = %v, want empty", got.FinishedAt)
		}
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		if _, err := store.GetRun(ctx, "missing"); err != ErrNotFound {
			t.Errorf("GetRun() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("RecordAndListResults", func(t *testing.T) {
		ok := &verify.Result{
			PackageID:           "0x2",
			OK:                  true,
			ModulesMissingLocal: []string{},
			ModulesMissingRPC:   []string{},
			ModulesWithDiffs:    []string{},
			DiffSummary:         map[string]int{},
		}
		diff := &verify.Result{
			PackageID:        "0xdee9",
			OK:               false,
			ModulesWithDiffs: []string{"clob"},
			DiffSummary:      map[string]int{"function_mismatch": 2},
		}

		if err := store.RecordResult(ctx, run.ID, ok); err != nil {
			t.Fatalf("RecordResult() error = %v", err)
		}
		if err := store.RecordResult(ctx, run.ID, diff); err != nil {
			t.Fatalf("RecordResult() error = %v", err)
		}
		// Re-recording the same package updates in place
		if err := store.RecordResult(ctx, run.ID, diff); err != nil {
			t.Fatalf("RecordResult() second time error = %v", err)
		}

		results, err := store.ListResults(ctx, run.ID)
		if err != nil {
			t.Fatalf("ListResults() error = %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("ListResults() returned %d rows, want 2", len(results))
		}
		if results[0].PackageID != "0x2" {
			t.Errorf("ListResults()[0].PackageID = %v, want 0x2", results[0].PackageID)
		}
		if results[1].ModulesWithDiffs != 1 {
			t.Errorf("ListResults()[1].ModulesWithDiffs = %v, want 1", results[1].ModulesWithDiffs)
		}
		if results[1].DiffSummary["function_mismatch"] != 2 {
			t.Errorf("ListResults()[1].DiffSummary = %v, want function_mismatch:2", results[1].DiffSummary)
		}
	})

	t.Run("CountByOutcome", func(t *testing.T) {
		ok, failed, err := store.CountByOutcome(ctx, run.ID)
		if err != nil {
			t.Fatalf("CountByOutcome() error = %v", err)
		}
		if ok != 1 || failed != 1 {
			t.Errorf("CountByOutcome() = (%d, %d), want (1, 1)", ok, failed)
		}
	})

	t.Run("FinishRun", func(t *testing.T) {
		if err := store.FinishRun(ctx, run.ID); err != nil {
			t.Fatalf("FinishRun() error = %v", err)
		}
		got, err := store.GetRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if got.FinishedAt == "" {
			t.Error("GetRun().FinishedAt still empty after FinishRun()")
		}
	})

	t.Run("ListRuns", func(t *testing.T) {
		runs, err := store.ListRuns(ctx, 10)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Errorf("ListRuns() returned %d runs, want 1", len(runs))
		}
	})
}
