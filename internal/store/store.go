// Package store persists simulation runs in a local SQLite database.
// A run records its seed and configuration, periodic population samples,
// and the champion genomes kept by the leaderboard at each checkpoint.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is a SQLite-backed run history.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
	log  *zap.Logger
}

// Open opens (creating if needed) the database at path. ":memory:" opens a
// private in-memory database.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("opening store", zap.String("path", path))

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, log: log}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("store opened", zap.String("path", path), zap.Int("schema_version", GetSchemaVersion(db)))
	return s, nil
}

func (s *Store) initialize() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		seed INTEGER NOT NULL,
		world INTEGER NOT NULL DEFAULT 0,
		config TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		steps INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	samplesTable := `
	CREATE TABLE IF NOT EXISTS samples (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		step INTEGER NOT NULL,
		sim_time REAL NOT NULL,
		population INTEGER NOT NULL,
		births INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		mean_energy REAL NOT NULL,
		best_score REAL NOT NULL,
		ranked INTEGER NOT NULL,
		PRIMARY KEY (run_id, step)
	);
	`

	championsTable := `
	CREATE TABLE IF NOT EXISTS champions (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		step INTEGER NOT NULL,
		score REAL NOT NULL,
		genome TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);
	`

	for _, table := range []string{runsTable, samplesTable, championsTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if err := RunMigrations(s.db, s.log); err != nil {
		return err
	}
	if GetSchemaVersion(s.db) < CurrentSchemaVersion {
		return SetSchemaVersion(s.db, CurrentSchemaVersion)
	}
	return nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	s.log.Debug("closing store")
	return s.db.Close()
}
