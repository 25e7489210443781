// adminctl is the operational companion to the admin server: it runs
// migrations, writes backup archives, and restores exported files
// without going through the HTTP API.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/graycup/leads-admin/internal/config"
	"github.com/graycup/leads-admin/internal/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "adminctl",
		Short:         "Operational tooling for the leads admin backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(backupCmd())
	cmd.AddCommand(restoreCmd())
	return cmd
}

// loadConfig loads .env and the environment-driven configuration, and
// applies the configured log settings.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}
