package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"sprintboard/internal/config"
)

// migrateCmd creates missing tables; sqlstore.Open migrates on connect.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == config.DriverMemory {
				return fmt.Errorf("nothing to migrate for driver %q", cfg.Database.Driver)
			}
			_, closeStore, err := openStore(cfg.Database, logger)
			if err != nil {
				return err
			}
			logger.Info("schema up to date", slog.String("driver", cfg.Database.Driver))
			return closeStore()
		},
	}
}
