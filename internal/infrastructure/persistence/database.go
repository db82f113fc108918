package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/config"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB   *gorm.DB
	path string
}

// NewDatabase opens the SQLite database described by cfg. SQLite allows a
// single writer, so the pool is pinned to one connection; this also keeps an
// in-memory database alive for the lifetime of the handle.
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.IsInMemory() {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	return open(sqlite.Open(cfg.DSN()), cfg, log)
}

// NewDatabaseFromDialector wraps an existing dialector, e.g. one built on
// a sqlmock connection.
func NewDatabaseFromDialector(dialector gorm.Dialector, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}
	return open(dialector, &config.DatabaseConfig{LogLevel: "silent"}, log)
}

func open(dialector gorm.Dialector, cfg *config.DatabaseConfig, log *zap.Logger) (*Database, error) {
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.LogLevel), cfg.SlowThreshold)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db, path: cfg.Path}, nil
}

// Path returns the database file path, empty for in-memory databases
func (d *Database) Path() string {
	if d.path == ":memory:" {
		return ""
	}
	return d.path
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Stats returns connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		WaitDuration:    stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	OpenConnections int
	InUse           int
	Idle            int
	WaitCount       int64
	WaitDuration    time.Duration
}

// InTx runs fn in a transaction carried by the context passed to fn.
// A context that already carries a transaction joins it through a savepoint.
func (d *Database) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return conn(ctx, d.DB).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	})
}

// BackupTo writes a consistent copy of the database to dest using
// VACUUM INTO. dest must not exist.
func (d *Database) BackupTo(ctx context.Context, dest string) error {
	if err := d.DB.WithContext(ctx).Exec("VACUUM INTO ?", dest).Error; err != nil {
		return mapError("database.backup", err)
	}
	return nil
}

var _ shared.Transactor = (*Database)(nil)
