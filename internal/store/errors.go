package store

import "errors"

// ErrSchemaTooNew is returned by Open when the database's schema_version
// row names a version greater than this binary knows how to read, per the
// fatal SchemaMismatch case in the error taxonomy.
var ErrSchemaTooNew = errors.New("store: database schema is newer than this build")

// ErrDirty is returned when a migration was interrupted mid-run and left
// the schema_migrations bookkeeping table in a dirty state.
var ErrDirty = errors.New("store: migrations table is dirty, manual repair required")
