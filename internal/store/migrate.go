package store

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// CurrentSchemaVersion is the highest schema version this build knows how
// to read and write.
const CurrentSchemaVersion = 2

// runMigrations brings db up to CurrentSchemaVersion, applying each
// migration file under migrations/ in order.
func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := newSQLiteDriver(db)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	_, dirty, err := driver.Version()
	if err != nil {
		return err
	}
	if dirty {
		return ErrDirty
	}

	return nil
}
