package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sprintboard/internal/config"
	"sprintboard/internal/storage"
	"sprintboard/internal/storage/memstore"
	"sprintboard/internal/storage/sqlstore"
	"sprintboard/internal/util"
)

var Version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "sprintboard",
		Short:         "Sprintboard - scrum board backend with sprint scheduling and reports",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		util.EnvOrDefault("SPRINTBOARD_CONFIG", "config.yaml"), "path to YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config and builds the process logger.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openStore returns the repository selected by database.driver and a func
// that releases it.
func openStore(cfg config.DatabaseConfig, logger *slog.Logger) (storage.Repository, func() error, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on exit")
		return memstore.New(), func() error { return nil }, nil
	}
	store, err := sqlstore.Open(cfg.Driver, cfg.DSN, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return store, store.Close, nil
}
