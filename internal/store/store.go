package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is a run database. A Store holds a single connection: extraction
// is single-threaded and SQLite allows one writer.
type Store struct {
	db *sql.DB
}

// connPragmas are applied to every opened database, in order.
var connPragmas = []struct {
	name, value string
}{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// migration upgrades a database from the version at its index to the next.
type migration func(db *sql.DB) error

// migrations[i] moves user_version i to i+1. schema.sql always creates the
// latest tables, so each step must tolerate an already current schema.
var migrations = []migration{
	addObjectRepr,
	addObjectScope,
}

// schemaVersion is the user_version of a fully migrated database.
var schemaVersion = len(migrations)

// Open opens the database at path, creating it when missing, and brings
// its schema up to date. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initialize(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func initialize(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, p := range connPragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return migrate(db)
}

// migrate runs every migration above the stored user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for v := version; v < schemaVersion; v++ {
		if err := migrations[v](db); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	if version != schemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("write user_version: %w", err)
		}
	}
	return nil
}

// addObjectRepr adds sequences.object_repr, absent from v0 databases.
func addObjectRepr(db *sql.DB) error {
	ok, err := hasColumn(db, "sequences", "object_repr")
	if err != nil || ok {
		return err
	}
	_, err = db.Exec("ALTER TABLE sequences ADD COLUMN object_repr TEXT NOT NULL DEFAULT ''")
	return err
}

// addObjectScope adds sequences.object_scope, absent from v1 databases.
func addObjectScope(db *sql.DB) error {
	ok, err := hasColumn(db, "sequences", "object_scope")
	if err != nil || ok {
		return err
	}
	_, err = db.Exec("ALTER TABLE sequences ADD COLUMN object_scope TEXT NOT NULL DEFAULT ''")
	return err
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	var n int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// pragma reads the current value of a pragma.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
