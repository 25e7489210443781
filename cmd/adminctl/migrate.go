package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graycup/leads-admin/internal/migrations"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := migrations.Run(cfg.Database.URL, direction); err != nil {
				return fmt.Errorf("migrate %s: %w", direction, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations %s complete\n", direction)
			return nil
		},
	}
}
