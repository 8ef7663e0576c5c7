// Package db is the sqlite ledger of motor reductions.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations returns the embedded schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// DB is the results ledger: a sqlite connection with its logger.
type DB struct {
	*sql.DB
	log *zap.Logger
}

// OpenDB opens (creating if needed) the sqlite ledger at path and applies
// connection pragmas. Call MigrateUp before use.
func OpenDB(path string, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps the pragmas in force and serialises session writers.
	sqlDB.SetMaxOpenConns(1)

	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	log.Debug("opened ledger", zap.String("path", path))
	return &DB{DB: sqlDB, log: log}, nil
}

// Open opens the ledger at path and migrates it to the latest schema.
func Open(path string, log *zap.Logger) (*DB, error) {
	d, err := OpenDB(path, log)
	if err != nil {
		return nil, err
	}
	if err := d.MigrateUp(Migrations()); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func applyPragmas(db *sql.DB) error {
	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	} {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}
