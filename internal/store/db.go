package store

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sqlite connection migrated up to the latest schema version.
type DB struct {
	*sql.DB
}

func migrationsSubFS() (fs.FS, error) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("store: building embedded migrations sub-filesystem: %w", err)
	}
	return sub, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("store: executing %q: %w", p, err)
		}
	}
	return nil
}

// NewDB opens (creating if necessary) the sqlite database at path, applies
// the standard concurrency/performance PRAGMAs, and migrates it up to the
// latest embedded schema version.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %q: %w", path, err)
	}
	db := &DB{sqlDB}

	if err := applyPragmas(sqlDB); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
