package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/artifacts"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/observability/metrics"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/report"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/resolver"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/stackless"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/pkg/sui"
)

func createBatchCmd() *cobra.Command {
	var (
		out         string
		max         int
		withDeps    bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run local bytecode extraction over the whole artifact dataset",
		Long: `Walk every package in the local artifact dataset, decode its
bytecode modules, lift them through the stackless translator, and
write one summary row per package as JSONL.

A translation failure or panic is recorded in that package's row; the
batch continues with the next package.

EXAMPLES:
  # Summarize the default dataset
  smie batch --out batch.jsonl

  # First 500 packages, resolving dependency closures over RPC
  smie batch --out batch.jsonl --max 500 --with-deps

  # Expose progress counters while running
  smie batch --out batch.jsonl --metrics-addr :9090
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), out, max, withDeps, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&out, "out", "batch_summary.jsonl", "summary JSONL output path")
	cmd.Flags().IntVar(&max, "max", 0, "limit the number of packages processed")
	cmd.Flags().BoolVar(&withDeps, "with-deps", false, "resolve each package's dependency closure (uses RPC for missing deps)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address while running")

	return cmd
}

func runBatch(ctx context.Context, out string, max int, withDeps bool, metricsAddr string) error {
	cfg := loadConfig()
	logger := setupLogger(cfg.Logging)

	if metricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go metrics.Serve(metricsCtx, metricsAddr, logger)
	}

	store := artifacts.New(cfg.Packages.Dir, cfg.Packages.Dataset)
	ids, err := store.PackageIDs(max)
	if err != nil {
		return err
	}
	logger.Info("starting batch extraction", "dataset", cfg.Packages.Dataset, "packages", len(ids))

	var res *resolver.Resolver
	if withDeps {
		client := sui.New(cfg.RPC.URL, sui.WithRateLimit(cfg.RPC.RequestsPerSecond, cfg.RPC.Burst))
		res = resolver.New(store, client, logger)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	defer f.Close()
	w := report.NewWriter(f)

	for _, id := range ids {
		row := batchRow(ctx, store, res, cfg.Packages.Dataset, id)
		if row.StacklessError != "" {
			logger.Warn("translation failed", "package_id", id, "error", row.StacklessError)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
	}

	fmt.Printf("batch summary -> %s\n", out)
	return nil
}

// batchRow extracts and lifts one package. Failures land in the row,
// never abort the batch.
func batchRow(ctx context.Context, store *artifacts.Store, res *resolver.Resolver, dataset, id string) *report.BatchRow {
	row := &report.BatchRow{PackageID: id, Dataset: dataset}
	row.ArtifactDir, _ = store.PackageDir(id)
	row.BytecodeModulesDir, _ = store.ModulesDir(id)

	modules, ok, err := store.LoadModules(id)
	if err != nil {
		row.StacklessError = err.Error()
		return row
	}
	if !ok {
		row.StacklessError = fmt.Sprintf("package %s not in local store", id)
		return row
	}
	metrics.ModulesDecodedTotal.Add(float64(len(modules)))

	names := make([]string, 0, len(modules))
	for _, m := range modules {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	row.ModuleNames = names

	if res != nil {
		closure, err := res.Closure(ctx, id)
		if err != nil {
			row.StacklessError = err.Error()
			return row
		}
		modules = closure
	}

	summary, err := stackless.Translate(modules)
	if err != nil {
		row.StacklessError = err.Error()
		return row
	}
	row.StacklessSummary = &summary
	return row
}
