package store

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/golang-migrate/migrate/v4/database"
)

// sqliteDriver adapts an already-open modernc.org/sqlite *sql.DB to
// golang-migrate's database.Driver interface. golang-migrate ships a
// sqlite3 driver, but it is built on the cgo mattn/go-sqlite3 binding;
// this repo stays cgo-free with modernc.org/sqlite, so migrations run
// through this thin driver instead, following the pattern golang-migrate
// documents for unsupported backends.
type sqliteDriver struct {
	db *sql.DB
}

func newSQLiteDriver(db *sql.DB) (*sqliteDriver, error) {
	d := &sqliteDriver{db: db}
	if err := d.ensureVersionTable(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *sqliteDriver) ensureVersionTable() error {
	_, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT NOT NULL PRIMARY KEY,
		dirty BOOLEAN NOT NULL
	)`)
	return err
}

// Open is required by the database.Driver interface but is never called:
// this driver is always constructed directly from an existing *sql.DB via
// newSQLiteDriver, not from a URL.
func (d *sqliteDriver) Open(url string) (database.Driver, error) {
	return nil, fmt.Errorf("store: sqliteDriver.Open is not supported, use newSQLiteDriver")
}

func (d *sqliteDriver) Close() error {
	return nil
}

// Lock/Unlock are no-ops: migrations run once at process startup before
// any worker goroutine touches the database, so there is no concurrent
// migration risk to guard against.
func (d *sqliteDriver) Lock() error   { return nil }
func (d *sqliteDriver) Unlock() error { return nil }

func (d *sqliteDriver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(string(body)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (d *sqliteDriver) SetVersion(version int, dirty bool) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM schema_migrations`); err != nil {
		tx.Rollback()
		return err
	}
	if version >= 0 {
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, dirty) VALUES (?, ?)`, version, dirty); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (d *sqliteDriver) Version() (version int, dirty bool, err error) {
	row := d.db.QueryRow(`SELECT version, dirty FROM schema_migrations LIMIT 1`)
	err = row.Scan(&version, &dirty)
	if err == sql.ErrNoRows {
		return -1, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, dirty, nil
}

func (d *sqliteDriver) Drop() error {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		tables = append(tables, name)
	}

	for _, name := range tables {
		if _, err := d.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, name)); err != nil {
			return err
		}
	}
	return nil
}
