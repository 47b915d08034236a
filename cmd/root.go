package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ddlconv/ddlconv/internal/config"
	"github.com/ddlconv/ddlconv/internal/engine"
	"github.com/ddlconv/ddlconv/internal/logging"
	"github.com/ddlconv/ddlconv/internal/registry"
	"github.com/ddlconv/ddlconv/internal/typemap"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "ddlconv",
	Short: "Convert DB2 DDL into column dictionaries and table configurations",
	Long: `ddlconv reads DB2 CREATE TABLE scripts and produces a column dictionary
(semicolon-separated CSV) and a structured JSON table configuration.

A curated dictionary can be fed back to regenerate the configuration, and a
new DDL version can be reconciled against a previously generated one.`,
	SilenceUsage: true,
}

func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.ddlconv/ddlconv.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist. An explicit --config must exist.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadOrDefault("")
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// cliLogger logs to stderr so command output on stdout stays clean.
func cliLogger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stderr, cfg.Logging.Level)
}

func loadCatalog(cfg *config.Config) (*typemap.Catalog, error) {
	if cfg.TypeMap.OverridesFile == "" {
		return typemap.Default(), nil
	}
	cat, err := typemap.LoadYAML(config.ExpandHome(cfg.TypeMap.OverridesFile))
	if err != nil {
		return nil, fmt.Errorf("loading type overrides: %w", err)
	}
	return cat, nil
}

// newEngine builds an engine from the config. The registry is attached only
// when auto-publish is on; commands needing it call attachRegistry.
func newEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, error) {
	eng, err := engine.New(cfg, cliLogger(cfg))
	if err != nil {
		return nil, err
	}
	if cfg.Registry.AutoPublish {
		if err := attachRegistry(ctx, eng); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

func attachRegistry(ctx context.Context, eng *engine.Engine) error {
	if eng.Registry != nil {
		return nil
	}
	store, err := registry.New(ctx, eng.Config.Registry)
	if err != nil {
		return fmt.Errorf("opening registry: %w", err)
	}
	eng.Registry = store
	return nil
}
