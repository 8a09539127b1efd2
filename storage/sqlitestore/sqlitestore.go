// Package sqlitestore provides a single-file sqlite storage backend,
// suitable for archiving an acquisition on the bench machine without any
// external service.
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/c360/exengine/coords"
	"github.com/c360/exengine/storage"
)

const createItemsTable = `
CREATE TABLE IF NOT EXISTS items (
    key      TEXT PRIMARY KEY,
    axes     TEXT NOT NULL,
    payload  BLOB,
    metadata TEXT
)`

// Compile-time interface satisfaction check.
var _ storage.Backend = (*Store)(nil)

// Store implements storage.Backend on a sqlite database file
type Store struct {
	db       *sql.DB
	finished bool
}

// Open opens (creating if needed) the database at dbPath
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(createItemsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create items table: %w", err)
	}

	return &Store{db: db}, nil
}

// Put implements storage.Backend
func (s *Store) Put(c coords.Coordinates, data []byte, metadata map[string]any) error {
	if s.finished {
		return storage.ErrFinished
	}

	axes, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode coordinates: %w", err)
	}
	md, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO items (key, axes, payload, metadata) VALUES (?, ?, ?, ?)`,
		c.Key(), string(axes), data, string(md),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetData implements storage.Backend
func (s *Store) GetData(c coords.Coordinates) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM items WHERE key = ?`, c.Key()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payload: %w", err)
	}
	return payload, nil
}

// GetMetadata implements storage.Backend
func (s *Store) GetMetadata(c coords.Coordinates) (map[string]any, error) {
	var raw string
	err := s.db.QueryRow(`SELECT metadata FROM items WHERE key = ?`, c.Key()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}

	var md map[string]any
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if md == nil {
		md = map[string]any{}
	}
	return md, nil
}

// Contains implements storage.Backend
func (s *Store) Contains(c coords.Coordinates) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM items WHERE key = ?`, c.Key()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check item: %w", err)
	}
	return true, nil
}

// Finish implements storage.Backend; the dataset becomes read-only
func (s *Store) Finish() error {
	s.finished = true
	return nil
}

// Close implements storage.Backend
func (s *Store) Close() error {
	return s.db.Close()
}
