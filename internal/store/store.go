// Package store provides the SQLite-backed durable stores: the settings
// namespace and the onboarding progress namespace. Both are flat key/value
// tables in a single database file; all reads tolerate absent keys.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the database at path, which may be ":memory:" for tests, and
// brings the schema up to date.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// A single writer keeps sqlite's locking out of the picture entirely.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
