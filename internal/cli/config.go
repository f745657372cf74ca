package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// projectConfigFiles is the search order for project config files
var projectConfigFiles = []string{"smie.toml"}

// ProjectConfig is the project-level TOML configuration
type ProjectConfig struct {
	RPCURL      string `toml:"rpc_url,omitempty"`
	PackagesDir string `toml:"packages_dir,omitempty"`
	Dataset     string `toml:"dataset,omitempty"`
	SummaryOut  string `toml:"summary_out,omitempty"`
	IndexOutDir string `toml:"index_out_dir,omitempty"`
}

// loadProjectConfigSilent loads the project config, returning nil when
// no config file exists or it cannot be parsed.
func loadProjectConfigSilent() *ProjectConfig {
	paths := projectConfigFiles
	if cfgFile != "" {
		paths = []string{cfgFile}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := toml.Unmarshal(data, &cfg); err != nil {
			continue
		}
		return &cfg
	}
	return nil
}

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a smie.toml configuration file in the current directory.

This file stores project-specific settings like the fullnode RPC URL
and the local package artifact directory.

EXAMPLES:
  # Create config with defaults
  smie config init

  # Overwrite existing config
  smie config init --force
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func runConfigInit(force bool) error {
	path := projectConfigFiles[0]
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := loadConfig()
	content := fmt.Sprintf(`# smie project configuration
rpc_url = %q
packages_dir = %q
dataset = %q
`, cfg.RPC.URL, cfg.Packages.Dir, cfg.Packages.Dataset)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("Created %s\n", path)
	return nil
}

func createConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			fmt.Printf("rpc_url:      %s\n", cfg.RPC.URL)
			fmt.Printf("packages_dir: %s\n", cfg.Packages.Dir)
			fmt.Printf("dataset:      %s\n", cfg.Packages.Dataset)
			fmt.Printf("storage:      %s\n", cfg.Storage.Type)
			fmt.Printf("log:          %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
	return cmd
}
