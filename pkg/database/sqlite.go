package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Config holds database configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// BusyTimeout bounds how long a writer waits on a locked database
	BusyTimeout time.Duration
}

// DB wraps sql.DB with the logger used by the migrator
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// dsn builds the go-sqlite3 connection string. Foreign keys are enforced
// per connection, so they must be part of the DSN rather than a one-off
// PRAGMA.
func (cfg Config) dsn() string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", fmt.Sprint(busy.Milliseconds()))
	return "file:" + cfg.Path + "?" + q.Encode()
}

// New opens the database and checks that foreign keys are enforced
func New(cfg Config, logger *zap.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 1
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	var fk int
	if err := sqlDB.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if fk != 1 {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite foreign keys are not enforced")
	}

	var journal string
	if err := sqlDB.QueryRow("PRAGMA journal_mode").Scan(&journal); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to read journal mode: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("path", cfg.Path),
		zap.String("journal_mode", journal),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	return &DB{DB: sqlDB, logger: logger}, nil
}

// Open connects and applies the bundled schema
func Open(cfg Config, logger *zap.Logger) (*DB, error) {
	db, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := NewMigrator(db, logger).Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}
