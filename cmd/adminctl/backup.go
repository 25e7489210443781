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

func backupCmd() *cobra.Command {
	var outDir string
	var table string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a backup ZIP archive of all submission tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			store := core.NewPGStore(pool)

			formatter := backup.NewFormatter()
			formatter.ChunkSize = cfg.Backup.ChunkSize
			formatter.PDFMaxRecords = cfg.Backup.PDFMaxRecords
			exporter := backup.NewExporter(store, formatter, cfg.Backup.FilePrefix)

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			path := filepath.Join(outDir, exporter.Filename())
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create archive file: %w", err)
			}
			defer f.Close()

			selection := table
			if selection == "" {
				selection = backup.SelectionAll
			}

			err = exporter.WriteArchive(ctx, selection, f, func(p backup.Progress) {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d/%d] %s\n", p.Current, p.Total, p.Status)
			})
			if err != nil {
				os.Remove(path)
				return fmt.Errorf("write archive: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the archive into")
	cmd.Flags().StringVar(&table, "table", "", "export a single table instead of all")
	return cmd
}
