package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/artifacts"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/bytecode"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/validation"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/pkg/sui"
)

func createModulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules <package-id>",
		Short: "Print a package's module names",
		Long: `Print the module names of a package, read from the local artifact
store when present, otherwise fetched over RPC.

EXAMPLES:
  smie modules 0x2
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModules(cmd, args[0])
		},
	}
	return cmd
}

func runModules(cmd *cobra.Command, id string) error {
	cfg := loadConfig()
	store := artifacts.New(cfg.Packages.Dir, cfg.Packages.Dataset)

	modules, ok, err := store.LoadModules(id)
	if err != nil {
		return err
	}
	if !ok {
		norm, err := validation.NormalizePackageID(id)
		if err != nil {
			return err
		}
		client := sui.New(cfg.RPC.URL, sui.WithRateLimit(cfg.RPC.RequestsPerSecond, cfg.RPC.Burst))
		pkg, err := client.GetPackage(cmd.Context(), "0x"+norm)
		if err != nil {
			return err
		}
		modules, err = bytecode.DecodeMap(pkg.ModuleMap)
		if err != nil {
			return err
		}
	}

	names := make([]string, 0, len(modules))
	for _, m := range modules {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
