package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// versionTable records which snapshot schema migrations have run. It is kept
// apart from the default name so the books can share a database.
const versionTable = "shopbooks_schema_migrations"

// RunMigrations brings the collection_snapshots table up to the newest
// embedded schema and reports the version it ended on. A dirty version means
// an earlier run died halfway and is returned as an error.
func RunMigrations(db *sql.DB) (uint, error) {
	if db == nil {
		return 0, errors.New("migration database handle is required")
	}

	migrator, err := newMigrator(db)
	if err != nil {
		return 0, err
	}

	if _, dirty, err := migrator.Version(); err == nil && dirty {
		return 0, errors.New("snapshot schema is dirty, fix it by hand before starting")
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate %s: %w", SnapshotTable, err)
	}
	// Closing the migrator would close the shared *sql.DB.

	version, _, err := migrator.Version()
	if err != nil {
		return 0, fmt.Errorf("read %s version: %w", SnapshotTable, err)
	}
	return version, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open snapshot migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("read snapshot migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: versionTable})
	if err != nil {
		return nil, fmt.Errorf("open postgres migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}
