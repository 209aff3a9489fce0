// Package database opens the daemon's sqlite store and keeps its schema
// current. The schema holds the prayer-time cache, the singleton user
// location and Google credential rows, and the local calendar table; it is
// versioned by the embedded goose migrations.
package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// dsnOptions tunes every connection: WAL so the cron refreshers and HTTP
// handlers can read during writes, a busy timeout instead of immediate
// SQLITE_BUSY, and enforced foreign keys.
const dsnOptions = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens the sqlite database at dbPath and migrates it to the latest
// schema. Pass ":memory:" for a throwaway database in tests.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}
