package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/velozfibra/portal/internal/validation"
)

const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
	StoreDriverPgx    = "pgx"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string

	// Document storage (file, sqlite or pgx)
	StoreDriver  string
	DataPath     string
	DBConnection string

	// Logging
	LogJSON  bool   // JSON output instead of text
	LogLevel string // debug, info, warn, error

	// Observability (optional)
	SentryDSN string

	// Backups (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string        // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
	S3BackupPrefix  string        // Key prefix for backup objects
	S3PresignExpiry time.Duration // Expiry for backup download links
	BackupTimeout   time.Duration

	// Email digest
	EmailFrom        string
	ResendAPIKey     string
	DigestRecipients []string

	// Reports
	ReportLocale string // BCP 47 tag used for number formatting
}

func Load() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "Veloz Fibra"),
		AppEnv:  envString("APP_ENV", "development"),

		// Document storage
		StoreDriver:  envString("STORE_DRIVER", StoreDriverFile),
		DataPath:     envString("DATA_PATH", "./data"),
		DBConnection: envString("DB_CONNECTION", "./data/portal.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Logging
		LogJSON:  envBool("LOG_JSON", envString("APP_ENV", "development") == "production"),
		LogLevel: envString("LOG_LEVEL", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Backups
		S3Region:        envString("S3_REGION", "us-east-1"),
		S3Bucket:        envString("S3_BUCKET", ""),
		S3AccessKey:     envString("S3_ACCESS_KEY", ""),
		S3SecretKey:     envString("S3_SECRET_KEY", ""),
		S3Endpoint:      envString("S3_ENDPOINT", ""),
		S3BackupPrefix:  envString("S3_BACKUP_PREFIX", "backups"),
		S3PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", 1*time.Hour),
		BackupTimeout:   envDuration("BACKUP_TIMEOUT", 30*time.Second),

		// Email digest (RESEND_API_KEY optional in development, required in production)
		EmailFrom:        envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey:     envString("RESEND_API_KEY", ""),
		DigestRecipients: envList("DIGEST_RECIPIENTS"),

		// Reports
		ReportLocale: envString("REPORT_LOCALE", "pt-BR"),
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that cannot fall back to a default.
// Development allows email to run in log mode for easier local testing.
func (c *Config) Validate() error {
	if c.AppEnv != "development" && c.AppEnv != "production" {
		return fmt.Errorf("invalid APP_ENV %q: must be development or production", c.AppEnv)
	}

	switch c.StoreDriver {
	case StoreDriverFile, StoreDriverSQLite, StoreDriverPgx:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: must be one of file, sqlite, pgx", c.StoreDriver)
	}

	if c.IsProduction() && len(c.DigestRecipients) > 0 && c.ResendAPIKey == "" {
		return fmt.Errorf("production digest requires RESEND_API_KEY (set APP_ENV=development for email log mode)")
	}

	err := validation.ValidateEmails(c.DigestRecipients)
	if err != nil {
		return fmt.Errorf("invalid DIGEST_RECIPIENTS: %w", err)
	}

	return nil
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// envList splits a comma separated value, dropping blanks
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// BackupsEnabled reports whether object storage is configured
func (c *Config) BackupsEnabled() bool {
	return c.S3Bucket != ""
}
