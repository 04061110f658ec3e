package cmd

import (
	"fmt"
	"log/slog"

	"github.com/solatis/ordergate/internal/core/config"
	"github.com/solatis/ordergate/internal/schema"
	"github.com/solatis/ordergate/internal/telemetry"
	"github.com/spf13/cobra"
)

// Version is the ordergate release.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "ordergate",
	Short:         "ordergate order validation and carrier assignment rule engine",
	Long:          `ordergate evaluates declarative condition rules against order, product, customer and shipment records to assign carriers and validate orders.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// app is the configuration and logger shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

// loadRuntime loads configuration and applies persistent flag overrides.
// Flags win over environment and config file.
func loadRuntime(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.Database.URL = dbURL
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// loadSchema returns the registry from path, or the built-in schema when
// path is empty.
func loadSchema(path string) (*schema.Registry, error) {
	if path == "" {
		return schema.Builtin(), nil
	}
	reg, err := schema.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return reg, nil
}
