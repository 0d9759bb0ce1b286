package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/velozfibra/portal/internal/config"
	"github.com/velozfibra/portal/internal/db"
	"github.com/velozfibra/portal/internal/repository"
	"github.com/velozfibra/portal/internal/service"
	"github.com/velozfibra/portal/internal/storage"
)

type App struct {
	Cfg           *config.Config
	DB            *sqlx.DB // nil for the file driver
	Documents     storage.DocumentStore
	GoalService   *service.GoalService
	ReportService *service.ReportService
	EmailService  *service.EmailService
	DigestService *service.DigestService
	BackupService *service.BackupService // nil when S3 is not configured
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for timestamps and overdue checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Cfg: cfg}

	// Document storage
	documents, err := a.openDocuments(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Documents = documents

	// Repositories
	goalRepository, err := repository.NewGoalRepository(ctx, documents, o.now)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize goal repository: %w", err)
	}

	// Services
	a.GoalService = service.NewGoalService(goalRepository, o.now)
	a.ReportService = service.NewReportService(a.GoalService, cfg.AppName, cfg.ReportLocale)
	a.EmailService = service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	a.DigestService = service.NewDigestService(a.GoalService, a.EmailService, cfg.DigestRecipients)

	// Backups are optional
	objects, err := storage.New(ctx, cfg)
	switch {
	case errors.Is(err, storage.ErrObjectStorageNotConfigured):
		slog.Debug("backups disabled, no S3 bucket configured")
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("failed to initialize backup storage: %w", err)
	default:
		a.BackupService = service.NewBackupService(documents, objects, cfg.S3BackupPrefix, repository.GoalsDocument)
	}

	return a, nil
}

func (a *App) openDocuments(ctx context.Context, cfg *config.Config) (storage.DocumentStore, error) {
	if cfg.StoreDriver == config.StoreDriverFile {
		store, err := storage.NewFileStore(cfg.DataPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize document storage: %w", err)
		}
		return store, nil
	}

	database, err := db.Init(cfg.StoreDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = database

	_, err = db.RunMigrations(ctx, database.DB, cfg.StoreDriver)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage.NewSQLStore(database), nil
}

func (a *App) Close() error {
	return db.Close(a.DB)
}
