package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite connection with the territory store operations.
type DB struct {
	*sql.DB
}

// OpenDB opens the database without touching the schema. Use NewDB for the
// normal path; this exists so migration commands can run against a database
// whose schema is behind the binary.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// sqlite allows one writer; serializing through a single connection
	// avoids SQLITE_BUSY under concurrent sessions.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA foreign_keys = ON;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &DB{sqlDB}, nil
}

// NewDB opens the database and brings the schema up to date from the
// embedded migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	mfs, err := getMigrationsFS()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.MigrateUp(mfs); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
