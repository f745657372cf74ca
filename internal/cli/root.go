// Package cli implements the smie command line interface.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/config"
)

var (
	cfgFile     string
	rpcURL      string
	packagesDir string
	dataset     string
	logLevel    string
	logFormat   string
)

// Execute runs the CLI
func Execute(version string) error {
	rootCmd := &cobra.Command{
		Use:     "smie",
		Short:   "Sui Move interface extractor and inventory verifier",
		Long:    `smie extracts Move package interfaces from compiled bytecode and verifies them against the normalized module projections a Sui fullnode reports.`,
		Version: version,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: smie.toml)")
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc-url", "", "fullnode RPC URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&packagesDir, "packages-dir", "", "local package artifact directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&dataset, "dataset", "", "artifact dataset name (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	// Add subcommands
	rootCmd.AddCommand(createVerifyCmd())
	rootCmd.AddCommand(createBatchCmd())
	rootCmd.AddCommand(createIndexCmd())
	rootCmd.AddCommand(createModulesCmd())
	rootCmd.AddCommand(createConfigCmd())

	return rootCmd.Execute()
}

// loadConfig resolves effective settings: flag > environment > project
// config file > default.
func loadConfig() *config.Config {
	cfg, _ := config.Load()

	if project := loadProjectConfigSilent(); project != nil {
		if project.RPCURL != "" && os.Getenv("SUI_RPC_URL") == "" {
			cfg.RPC.URL = project.RPCURL
		}
		if project.PackagesDir != "" && os.Getenv("SUI_PACKAGES_DIR") == "" {
			cfg.Packages.Dir = project.PackagesDir
		}
		if project.Dataset != "" && os.Getenv("SUI_PACKAGES_DATASET") == "" {
			cfg.Packages.Dataset = project.Dataset
		}
	}

	if rpcURL != "" {
		cfg.RPC.URL = rpcURL
	}
	if packagesDir != "" {
		cfg.Packages.Dir = packagesDir
	}
	if dataset != "" {
		cfg.Packages.Dataset = dataset
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg
}

// setupLogger configures structured logging
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
