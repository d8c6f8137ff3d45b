// Package database stores the optional operation audit log.
// It supports both PostgreSQL and SQLite backends.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"github.com/soypete/calchat/pkg/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its settings in package globals
var gooseMu sync.Mutex

// DB represents a database connection with migration support.
type DB struct {
	*sql.DB
	driver   string
	mu       sync.Mutex
	migrated bool
}

// Open creates a new database connection from the audit configuration.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	var driver string
	switch cfg.Driver {
	case "postgres", "postgresql":
		driver = "postgres"
	case "sqlite", "sqlite3", "":
		driver = "sqlite3"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if driver == "sqlite3" {
		// SQLite allows a single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{DB: db, driver: driver}, nil
}

// Driver returns the database driver name.
func (d *DB) Driver() string {
	return d.driver
}

// Migrate runs all pending migrations using goose.
func (d *DB) Migrate(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.migrated {
		return nil
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect(d.dialect()); err != nil {
		return errors.Wrap(err, "failed to set goose dialect")
	}
	if err := goose.UpContext(ctx, d.DB, "migrations"); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}

	d.migrated = true
	return nil
}

// Version returns the current schema version.
func (d *DB) Version(ctx context.Context) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(d.dialect()); err != nil {
		return 0, errors.Wrap(err, "failed to set goose dialect")
	}
	version, err := goose.GetDBVersionContext(ctx, d.DB)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read schema version")
	}
	return version, nil
}

func (d *DB) dialect() string {
	if d.driver == "sqlite3" {
		return "sqlite3"
	}
	return "postgres"
}

// gooseLogger routes goose output through zerolog
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	log.Debug().Str("component", "goose").Msgf(format, v...)
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	log.Fatal().Str("component", "goose").Msgf(format, v...)
}
