package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/graycup/leads-admin/internal/auth"
	"github.com/graycup/leads-admin/internal/backup"
	"github.com/graycup/leads-admin/internal/config"
	"github.com/graycup/leads-admin/internal/core"
	"github.com/graycup/leads-admin/internal/discord"
	"github.com/graycup/leads-admin/internal/logging"
	"github.com/graycup/leads-admin/internal/migrations"
	"github.com/graycup/leads-admin/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	if err := migrations.Run(cfg.Database.URL, "up"); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied")

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	store := core.NewPGStore(pool)
	cache := core.NewCache(5 * time.Minute)

	formatter := backup.NewFormatter()
	formatter.ChunkSize = cfg.Backup.ChunkSize
	formatter.PDFMaxRecords = cfg.Backup.PDFMaxRecords

	exporter := backup.NewExporter(store, formatter, cfg.Backup.FilePrefix)

	importer := backup.NewImporter(store)
	importer.InsertBatchSize = cfg.Backup.InsertBatchSize

	runner := backup.NewRunner(importer)
	runner.RequestBatchSize = cfg.Backup.RequestBatchSize
	runner.BatchDelay = cfg.Backup.BatchDelay

	authMgr := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, cfg.Auth.SessionTTL)

	server := web.NewServer(store, store, cache, authMgr, exporter, runner, discord.NewClient(), cfg)

	// Invalidate cached reads whenever the database reports a change.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	listener := core.NewListener(pool, cache)
	go listener.Run(jobCtx)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
