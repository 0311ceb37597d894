// Package store provides SQLite-based persistence for client preferences.
package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/xonecas/typecast/internal/config"
)

// ErrSchemaTooNew is returned when the database was written by a newer typecast.
var ErrSchemaTooNew = errors.New("database schema is newer than supported")

//go:embed schema.sql
var schema string

// migrations[i] brings the schema from version i to i+1.
var migrations = []string{
	schema,
}

var currentSchemaVersion = len(migrations)

// Store provides access to the SQLite database.
type Store struct {
	db *sql.DB
}

// New opens the store at ~/.typecast/typecast.db.
func New() (*Store, error) {
	dir, err := config.EnsureDataDir()
	if err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	return Open(filepath.Join(dir, "typecast.db"))
}

// Open opens or creates a database at path and brings its schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection keeps :memory: databases shared across queries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// OpenMemory opens an in-memory database for testing.
func OpenMemory() (*Store, error) {
	return Open(":memory:")
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies every pending migration, each in its own transaction.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	version, err := s.Version()
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("%w: %d > %d", ErrSchemaTooNew, version, currentSchemaVersion)
	}

	for v := version; v < currentSchemaVersion; v++ {
		if err := s.apply(v); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		log.Debug().Int("version", v+1).Msg("Schema migrated")
	}
	return nil
}

func (s *Store) apply(from int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migrations[from]); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM schema_version`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, from+1); err != nil {
		return err
	}
	return tx.Commit()
}

// Version returns the schema version recorded in the database, 0 for a new one.
func (s *Store) Version() (int, error) {
	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
