package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/report"
)

func createIndexCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "index <summary.jsonl>",
		Short: "Build index artifacts from a summary JSONL",
		Long: `Build index artifacts from a summary JSONL: meta.json with row
totals, by_package_id.json mapping each package id to its first line
number, and errors.json with error-message frequencies.

EXAMPLES:
  smie index batch.jsonl --out ./index
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(args[0], outDir)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "./index", "output directory for index artifacts")

	return cmd
}

func runIndex(summaryPath, outDir string) error {
	ix, err := report.BuildIndex(summaryPath)
	if err != nil {
		return err
	}
	if err := ix.WriteFiles(outDir); err != nil {
		return err
	}
	fmt.Printf("index artifacts -> %s (%d rows, %d ok, %d errors)\n",
		outDir, ix.Meta.Rows, ix.Meta.OK, ix.Meta.Error)
	return nil
}
