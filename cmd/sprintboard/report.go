package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"sprintboard/internal/export"
	"sprintboard/internal/reports"
)

func reportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "report [sprint-id]",
		Short: "Generate and store a sprint report, printing it to stdout",
		Long: `Generate a report for one sprint. Every run stores a new snapshot
in the report history.

Examples:
  sprintboard report 3
  sprintboard report 3 --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sprintID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || sprintID <= 0 {
				return fmt.Errorf("invalid sprint id %q", args[0])
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
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

			gen := reports.NewGenerator(repo, nil, logger.With(slog.String("component", "reports")))
			report, err := gen.Generate(cmd.Context(), sprintID)
			if err != nil {
				return err
			}
			return export.Render(cmd.OutOrStdout(), report, f)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatText), "output format (text, json, yaml)")
	return cmd
}
