package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// newMigrator opens a dedicated connection for the migrator. The sqlite
// driver closes its *sql.DB when the migrator is closed, so the shared
// pool is never handed to it.
func newMigrator(dbPath string) (*migrate.Migrate, error) {
	conn, err := NewSQLiteConnection(DefaultConnectionConfig(dbPath))
	if err != nil {
		return nil, err
	}

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{DatabaseName: "main"})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: create migration driver: %w", err)
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("db: open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("db: create migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies every pending migration. Already being current is not an error.
func MigrateUp(dbPath string) error {
	m, err := newMigrator(dbPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: apply migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back steps migrations, or all of them when steps is -1.
func MigrateDown(dbPath string, steps int) error {
	m, err := newMigrator(dbPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if steps == -1 {
		err = m.Down()
	} else {
		err = m.Steps(-steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: roll back migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied schema version. A fresh database
// returns version 0.
func MigrationVersion(dbPath string) (version uint, dirty bool, err error) {
	m, err := newMigrator(dbPath)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("db: read migration version: %w", err)
	}
	return version, dirty, nil
}
