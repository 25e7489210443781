// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast
// on misconfiguration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Backup   BackupConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response.
	// Archive downloads for large tables can be slow (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// AuthConfig holds admin session settings.
type AuthConfig struct {
	// JWTSecret signs the session cookie tokens (required)
	JWTSecret string `env:"JWT_SECRET" required:"true"`

	// AdminUsername is the single admin login name (required)
	AdminUsername string `env:"ADMIN_USERNAME" required:"true"`

	// AdminPassword is the admin password, either plaintext or a bcrypt
	// hash (prefix "$2"). Hashes are compared with bcrypt, plaintext
	// with a constant-time compare. (required)
	AdminPassword string `env:"ADMIN_PASSWORD" required:"true"`

	// SessionTTL is how long an issued session cookie stays valid (default: 24h)
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" default:"24h"`

	// CookieSecure marks the session cookie Secure (default: true)
	CookieSecure bool `env:"AUTH_COOKIE_SECURE" default:"true"`
}

// BackupConfig holds export/import pipeline settings.
type BackupConfig struct {
	// FilePrefix is the archive filename prefix: "{prefix}-2024-01-01.zip" (default: backup)
	FilePrefix string `env:"BACKUP_FILE_PREFIX" default:"backup"`

	// ChunkSize is records processed per formatting chunk (default: 1000)
	ChunkSize int `env:"BACKUP_CHUNK_SIZE" default:"1000"`

	// PDFMaxRecords is the cutoff above which the PDF export is skipped (default: 10000)
	PDFMaxRecords int `env:"BACKUP_PDF_MAX_RECORDS" default:"10000"`

	// RequestBatchSize is records per import request batch (default: 100)
	RequestBatchSize int `env:"IMPORT_REQUEST_BATCH_SIZE" default:"100"`

	// InsertBatchSize is records per storage-level insert statement (default: 50)
	// Independent of RequestBatchSize: one bounds request payload size,
	// the other bounds statement size.
	InsertBatchSize int `env:"IMPORT_INSERT_BATCH_SIZE" default:"50"`

	// BatchDelay is the pause between import request batches (default: 100ms)
	BatchDelay time.Duration `env:"IMPORT_BATCH_DELAY" default:"100ms"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, "JWT_SECRET must be at least 16 characters")
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, "AUTH_SESSION_TTL must be positive")
	}

	if c.Backup.ChunkSize <= 0 {
		errs = append(errs, "BACKUP_CHUNK_SIZE must be positive")
	}
	if c.Backup.PDFMaxRecords <= 0 {
		errs = append(errs, "BACKUP_PDF_MAX_RECORDS must be positive")
	}
	if c.Backup.RequestBatchSize <= 0 {
		errs = append(errs, "IMPORT_REQUEST_BATCH_SIZE must be positive")
	}
	if c.Backup.InsertBatchSize <= 0 {
		errs = append(errs, "IMPORT_INSERT_BATCH_SIZE must be positive")
	}
	if c.Backup.BatchDelay < 0 {
		errs = append(errs, "IMPORT_BATCH_DELAY must be non-negative")
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Auth: {AdminUsername: %q, JWTSecret: [MASKED], SessionTTL: %s}, ",
		c.Auth.AdminUsername, c.Auth.SessionTTL))
	b.WriteString(fmt.Sprintf("Backup: {FilePrefix: %q, ChunkSize: %d, InsertBatchSize: %d}, ",
		c.Backup.FilePrefix, c.Backup.ChunkSize, c.Backup.InsertBatchSize))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
