package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/graycup/leads-admin/internal/backup"
	"github.com/graycup/leads-admin/internal/core"
)

func restoreCmd() *cobra.Command {
	var skipDuplicates bool

	cmd := &cobra.Command{
		Use:   "restore FILE...",
		Short: "Import exported CSV/JSON files or an import.json manifest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var files []backup.File
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				files = append(files, backup.File{Name: filepath.Base(path), Data: data})
			}

			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			importer := backup.NewImporter(core.NewPGStore(pool))
			importer.InsertBatchSize = cfg.Backup.InsertBatchSize
			runner := backup.NewRunner(importer)
			runner.RequestBatchSize = cfg.Backup.RequestBatchSize
			runner.BatchDelay = cfg.Backup.BatchDelay

			results := runner.ImportFiles(ctx, files, skipDuplicates, func(status string) {
				fmt.Fprintln(cmd.OutOrStdout(), status)
			})

			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d imported, %d skipped, %d failed\n",
					r.Source, r.Success, r.Skipped, r.Failed)
				for _, e := range r.Errors {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", e)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipDuplicates, "skip-duplicates", true, "skip records whose email already exists")
	return cmd
}
