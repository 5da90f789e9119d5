package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("db: not found")

// ErrClosed is returned by operations on a closed Database.
var ErrClosed = errors.New("db: database is closed")

// Database owns the SQLite pool and the schema.
//
// Example:
//
//	database, err := db.NewDatabase("./data/studio.db")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
//	if err := database.Migrate(); err != nil {
//	    return err
//	}
type Database struct {
	mu   sync.RWMutex
	conn *sql.DB
	path string
}

// DatabaseConfig holds settings for NewDatabaseWithConfig.
type DatabaseConfig struct {
	Path string

	// ConnectionConfig overrides the connection defaults when non-nil.
	ConnectionConfig *ConnectionConfig
}

// NewDatabase opens the database at path with default settings.
func NewDatabase(path string) (*Database, error) {
	return NewDatabaseWithConfig(DatabaseConfig{Path: path})
}

// NewDatabaseWithConfig opens the database, creating the parent directory if needed.
func NewDatabaseWithConfig(config DatabaseConfig) (*Database, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("db: database path is required")
	}

	if dir := filepath.Dir(config.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("db: create database directory %s: %w", dir, err)
		}
	}

	connConfig := DefaultConnectionConfig(config.Path)
	if config.ConnectionConfig != nil {
		connConfig = *config.ConnectionConfig
		connConfig.Path = config.Path
	}

	conn, err := NewSQLiteConnection(connConfig)
	if err != nil {
		return nil, err
	}
	return &Database{conn: conn, path: config.Path}, nil
}

// Open opens path and applies all migrations.
func Open(path string) (*Database, error) {
	database, err := NewDatabase(path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Migrate applies the embedded migrations.
func (d *Database) Migrate() error {
	return MigrateUp(d.path)
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// DB returns the underlying pool, or nil once closed.
func (d *Database) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.conn
}

// Ping verifies the connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	conn := d.DB()
	if conn == nil {
		return ErrClosed
	}
	return conn.PingContext(ctx)
}

// Stats returns pool statistics.
func (d *Database) Stats() sql.DBStats {
	conn := d.DB()
	if conn == nil {
		return sql.DBStats{}
	}
	return conn.Stats()
}

// Close closes the pool. Safe to call more than once.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	if err != nil {
		return fmt.Errorf("db: close: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (d *Database) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	conn := d.DB()
	if conn == nil {
		return ErrClosed
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (d *Database) querier() (querier, error) {
	conn := d.DB()
	if conn == nil {
		return nil, ErrClosed
	}
	return conn, nil
}
