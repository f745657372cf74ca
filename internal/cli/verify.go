package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/artifacts"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/config"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/observability/metrics"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/report"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/resolver"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/storage"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/verify"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/pkg/sui"
)

func createVerifyCmd() *cobra.Command {
	var (
		ids         []string
		idsFile     string
		mvrCatalog  string
		mvrNetwork  string
		fromSummary string
		out         string
		sample      int
		max         int
		metricsAddr string
		record      bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify package bytecode against the fullnode's normalized modules",
		Long: `Verify that a package's compiled bytecode inventory matches the
normalized module projection the fullnode reports for it.

Each package's dependency closure is resolved from the local artifact
store, falling back to RPC fetches, decoded, filtered to the package's
original address, and diffed against the RPC projection function by
function and struct by struct.

EXAMPLES:
  # Verify a single package
  smie verify --package-id 0x2

  # Verify ids listed in a file (one per line, # comments)
  smie verify --ids-file ids.txt --out results.jsonl

  # Re-verify the packages from a previous batch summary
  smie verify --from-summary batch.jsonl --sample 100

  # Verify everything in an MVR catalog
  smie verify --mvr-catalog catalog.json --mvr-network mainnet
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), verifyOptions{
				sources: idSources{
					ids:         ids,
					idsFile:     idsFile,
					mvrCatalog:  mvrCatalog,
					mvrNetwork:  mvrNetwork,
					fromSummary: fromSummary,
					max:         max,
				},
				out:         out,
				sample:      sample,
				metricsAddr: metricsAddr,
				record:      record,
			})
		},
	}

	cmd.Flags().StringArrayVar(&ids, "package-id", nil, "package id to verify (repeatable)")
	cmd.Flags().StringVar(&idsFile, "ids-file", "", "file with one package id per line")
	cmd.Flags().StringVar(&mvrCatalog, "mvr-catalog", "", "MVR catalog.json to take package ids from")
	cmd.Flags().StringVar(&mvrNetwork, "mvr-network", "mainnet", "MVR catalog id field: mainnet or testnet")
	cmd.Flags().StringVar(&fromSummary, "from-summary", "", "summary JSONL to take package ids from")
	cmd.Flags().StringVar(&out, "out", "", "write results as JSONL to this path")
	cmd.Flags().IntVar(&sample, "sample", 0, "verify only the first N collected ids")
	cmd.Flags().IntVar(&max, "max", 0, "limit the number of packages processed")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address while running")
	cmd.Flags().BoolVar(&record, "record", false, "record results in the configured database")

	return cmd
}

type verifyOptions struct {
	sources     idSources
	out         string
	sample      int
	metricsAddr string
	record      bool
}

func runVerify(ctx context.Context, opts verifyOptions) error {
	cfg := loadConfig()
	logger := setupLogger(cfg.Logging)

	ids, err := collectPackageIDs(opts.sources)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no package ids provided (use --package-id, --ids-file, --mvr-catalog, or --from-summary)")
	}
	if opts.sample > 0 && len(ids) > opts.sample {
		ids = ids[:opts.sample]
	}

	if opts.metricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go metrics.Serve(metricsCtx, opts.metricsAddr, logger)
	}

	store := artifacts.New(cfg.Packages.Dir, cfg.Packages.Dataset)
	client := sui.New(cfg.RPC.URL, sui.WithRateLimit(cfg.RPC.RequestsPerSecond, cfg.RPC.Burst))
	svc := verify.NewService(resolver.New(store, client, logger), store, client, logger)

	logger.Info("verifying packages", "count", len(ids), "rpc_url", cfg.RPC.URL)
	results := svc.VerifyAll(ctx, ids)

	if opts.out != "" {
		if err := writeResults(opts.out, results); err != nil {
			return err
		}
		fmt.Printf("results -> %s\n", opts.out)
	}

	if opts.record {
		if err := recordResults(ctx, cfg, logger, results); err != nil {
			return err
		}
	}

	ok := 0
	for _, res := range results {
		if res.OK {
			ok++
			fmt.Printf("✅ %s\n", res.PackageID)
			continue
		}
		if res.Error != "" {
			fmt.Printf("❌ %s: %s\n", res.PackageID, res.Error)
		} else {
			fmt.Printf("❌ %s: missing_local=%d missing_rpc=%d with_diffs=%d\n",
				res.PackageID, len(res.ModulesMissingLocal), len(res.ModulesMissingRPC), len(res.ModulesWithDiffs))
		}
	}
	fmt.Printf("%d/%d packages verified clean\n", ok, len(results))
	return nil
}

func writeResults(path string, results []*verify.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := report.NewWriter(f)
	for _, res := range results {
		if err := w.Write(res); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

func recordResults(ctx context.Context, cfg *config.Config, logger *slog.Logger, results []*verify.Result) error {
	db, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("opening results store: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	run := storage.NewRun("verify", cfg.Packages.Dataset, cfg.RPC.URL)
	if err := db.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	for _, res := range results {
		if err := db.RecordResult(ctx, run.ID, res); err != nil {
			return fmt.Errorf("recording result for %s: %w", res.PackageID, err)
		}
	}
	if err := db.FinishRun(ctx, run.ID); err != nil {
		return err
	}

	ok, failed, err := db.CountByOutcome(ctx, run.ID)
	if err != nil {
		return err
	}
	logger.Info("run recorded", "run_id", run.ID, "ok", ok, "failed", failed)
	return nil
}
