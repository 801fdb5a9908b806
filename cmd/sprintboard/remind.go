package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"sprintboard/internal/notify"
)

func remindCmd() *cobra.Command {
	var within time.Duration
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send deadline reminders for open tasks due soon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if within <= 0 {
				return fmt.Errorf("--within must be positive")
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			repo, closeStore, err := openStore(cfg.Database, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := notify.NewService(repo, nil, logger.With(slog.String("component", "notify")))
			sent, err := svc.RemindDue(cmd.Context(), within)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d reminder(s)\n", sent)
			return nil
		},
	}
	cmd.Flags().DurationVar(&within, "within", 24*time.Hour, "remind about tasks due within this window")
	return cmd
}
