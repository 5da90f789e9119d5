package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ConnectionConfig holds SQLite connection settings.
type ConnectionConfig struct {
	Path string

	// BusyTimeout is how long a writer waits on a locked database, in milliseconds.
	BusyTimeout int

	// MaxOpenConns is kept at 1: SQLite serialises writers and a single
	// connection keeps the per-connection pragmas in force.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConnectionConfig returns the settings used by NewDatabase.
func DefaultConnectionConfig(path string) ConnectionConfig {
	return ConnectionConfig{
		Path:         path,
		BusyTimeout:  5000,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// NewSQLiteConnection opens path in WAL mode and verifies the pragmas took effect.
func NewSQLiteConnection(config ConnectionConfig) (*sql.DB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("db: database path is required")
	}

	conn, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", config.Path, err)
	}

	conn.SetMaxOpenConns(config.MaxOpenConns)
	conn.SetMaxIdleConns(config.MaxIdleConns)
	conn.SetConnMaxLifetime(config.ConnMaxLifetime)

	pragmas := []struct {
		name  string
		query string
	}{
		{"journal_mode", "PRAGMA journal_mode=WAL"},
		{"busy_timeout", fmt.Sprintf("PRAGMA busy_timeout=%d", config.BusyTimeout)},
		{"synchronous", "PRAGMA synchronous=NORMAL"},
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p.query); err != nil {
			conn.Close()
			return nil, fmt.Errorf("db: set %s pragma: %w", p.name, err)
		}
	}

	var journalMode string
	if err := conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		conn.Close()
		return nil, fmt.Errorf("db: WAL mode not enabled, got %q", journalMode)
	}

	return conn, nil
}
