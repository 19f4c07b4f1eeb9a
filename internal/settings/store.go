// Package settings provides a durable SQLite-backed key/value store for
// client-side preferences such as the posts API base URL.
package settings

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/postdeck/internal/apperr"
)

// KeyBaseURL is the key under which the posts API base URL is stored.
const KeyBaseURL = "api_base_url"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the key/value interface consumers depend on.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// DB wraps a sql.DB holding the settings table.
type DB struct {
	conn *sql.DB
}

var _ Store = (*DB)(nil)

// Open opens (or creates) the SQLite database and migrates it to the latest schema.
func Open(dsn string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("settings: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("settings: ping: %w", err)
	}
	if err := migrateUp(conn, logger); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func migrateUp(conn *sql.DB, logger *slog.Logger) error {
	dbInstance, err := sqlite3.WithInstance(conn, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("settings: create migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("settings: open migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", dbInstance)
	if err != nil {
		return fmt.Errorf("settings: create migrator: %w", err)
	}

	// m.Close is not called: it would close conn, which we keep using.
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("settings: schema up to date")
			return nil
		}
		return fmt.Errorf("settings: apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("settings: schema migrated",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty))
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get returns the value stored under key, or apperr.ErrNotFound.
func (db *DB) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("settings: get %s: %w", key, err)
	}
	return v, nil
}

// Set stores value under key, replacing any previous value.
func (db *DB) Set(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}
	return nil
}
