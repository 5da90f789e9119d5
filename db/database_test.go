package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"thumbnail_studio/logging"
)

// openTestDB returns a migrated database in a temp dir, closed at cleanup.
func openTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "studio.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.NewFromZap(zaptest.NewLogger(t))
}

func TestNewDatabase(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "studio.db")
		database, err := NewDatabase(path)
		if err != nil {
			t.Fatalf("NewDatabase() error = %v", err)
		}
		defer database.Close()

		if _, err := os.Stat(filepath.Dir(path)); err != nil {
			t.Errorf("parent directory missing: %v", err)
		}
		if database.Path() != path {
			t.Errorf("Path() = %q, want %q", database.Path(), path)
		}
		if err := database.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("rejects empty path", func(t *testing.T) {
		if _, err := NewDatabase(""); err == nil {
			t.Error("expected error for empty path")
		}
	})
}

func TestDatabase_WALMode(t *testing.T) {
	database := openTestDB(t)

	var mode string
	if err := database.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.db")

	version, dirty, err := MigrationVersion(path)
	if err != nil {
		t.Fatalf("MigrationVersion() on fresh db error = %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("fresh db version = %d dirty = %v", version, dirty)
	}

	if err := MigrateUp(path); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if err := MigrateUp(path); err != nil {
		t.Fatalf("second MigrateUp() should be a no-op, got %v", err)
	}

	version, dirty, err = MigrationVersion(path)
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v", err)
	}
	if version != 3 || dirty {
		t.Errorf("version = %d dirty = %v, want 3 clean", version, dirty)
	}

	database, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	defer database.Close()
	for _, table := range []string{"history", "exports", "templates", "style_presets", "settings", "generation_metrics"} {
		var name string
		err := database.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
	var index string
	if err := database.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name='idx_history_cache_key'`).Scan(&index); err != nil {
		t.Errorf("cache key index missing: %v", err)
	}

	if err := MigrateDown(path, -1); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	version, _, _ = MigrationVersion(path)
	if version != 0 {
		t.Errorf("version after full rollback = %d, want 0", version)
	}
}

func TestDatabase_CloseIsIdempotent(t *testing.T) {
	database, err := NewDatabase(filepath.Join(t.TempDir(), "studio.db"))
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	if err := database.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := database.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := database.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() after close = %v, want ErrClosed", err)
	}
}
