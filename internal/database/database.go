package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"diabcare/internal/apperrors"
	"diabcare/internal/config"
	"diabcare/internal/models"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the database configured in cfg and migrates the schema.
// The returned handle is safe for concurrent use and is passed explicitly to
// the repositories.
func InitDB(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.PostgresURI)
	case config.DriverSQLite:
		dialector = sqlite.Open(SQLiteDSN(cfg.SQLitePath))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	db, err := Open(dialector, log, cfg.Debug)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Open opens a gorm connection for the dialector with the project logger.
func Open(dialector gorm.Dialector, log *slog.Logger, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(log, level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialector.Name(), err)
	}

	if dialector.Name() == "sqlite" {
		// SQLite allows a single writer; serializing connections keeps
		// transactions from failing with SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates the doctors, patients and predictions tables
// with their foreign keys and check constraints.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// SQLiteDSN returns a DSN for path with foreign key enforcement turned on.
// SQLite ignores ON DELETE CASCADE unless the pragma is enabled.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys") {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on"
	}
	return path + "?_foreign_keys=on"
}

// Ping checks that the database answers a trivial query.
func Ping(ctx context.Context, db *gorm.DB) error {
	var one int
	if err := db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return err
	}
	if one != 1 {
		return errors.New("unexpected ping result")
	}
	return nil
}

// ClassifyError maps a driver or gorm error onto the application taxonomy.
// op names the failed operation and prefixes the message. Unique violations
// arrive as gorm.ErrDuplicatedKey from both drivers; the raw driver checks
// cover errors produced outside a translating gorm session.
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, apperrors.ErrNotFound)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w: %w", op, apperrors.ErrConflict, err)
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		if pgerr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w: %w", op, apperrors.ErrConflict, err)
		}
	}

	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w: %w", op, apperrors.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w: %w", op, apperrors.ErrPersistence, err)
}
