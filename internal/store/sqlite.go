// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"nickandperla.net/hexproc/internal/label"
)

// Current schema version
const SchemaVersion = "1"

// SQLite is a SQLite-backed store. Bindings are stored as CBOR blobs.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite creates a new SQLite store at the given path. An empty path
// creates a private in-memory database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	// Create tables if not exists
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS labels (
			name TEXT PRIMARY KEY,
			value BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS label_history (
			name TEXT NOT NULL,
			version INTEGER NOT NULL,
			value BLOB NOT NULL,
			ts TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (name, version)
		);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	s := &SQLite{db: db}

	// Check/set schema version (use unlocked versions since we're in init)
	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}

	switch version {
	case "":
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

// Get retrieves a binding by name.
func (s *SQLite) Get(name string) (label.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value []byte
	err := s.db.QueryRow("SELECT value FROM labels WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return Decode(value)
}

// Put stores a binding by name and records a new version. Storing the
// current value again is a no-op.
func (s *SQLite) Put(name string, b label.Binding) error {
	value, err := Encode(b)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current []byte
	err = tx.QueryRow("SELECT value FROM labels WHERE name = ?", name).Scan(&current)
	switch {
	case err == nil && bytes.Equal(current, value):
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO labels (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, name, value); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO label_history (name, version, value)
		SELECT ?, COALESCE(MAX(version), 0) + 1, ? FROM label_history WHERE name = ?
	`, name, value, name); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a binding and its history.
func (s *SQLite) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM labels WHERE name = ?", name); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM label_history WHERE name = ?", name)
	return err
}

// All returns every stored binding.
func (s *SQLite) All() (map[string]label.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT name, value FROM labels")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	all := make(map[string]label.Binding)
	for rows.Next() {
		var name string
		var value []byte
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		b, err := Decode(value)
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", name, err)
		}
		all[name] = b
	}
	return all, rows.Err()
}

// History returns the versions of name, newest first.
func (s *SQLite) History(name string, limit int) ([]VersionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "SELECT version, value, ts FROM label_history WHERE name = ? ORDER BY version DESC"
	args := []any{name}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []VersionEntry
	for rows.Next() {
		var e VersionEntry
		var value []byte
		if err := rows.Scan(&e.Version, &value, &e.Ts); err != nil {
			return nil, err
		}
		if e.Binding, err = Decode(value); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetMetadata retrieves a metadata value by key.
func (s *SQLite) GetMetadata(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMetadataUnlocked(key)
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata stores a metadata value by key.
func (s *SQLite) SetMetadata(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setMetadataUnlocked(key, value)
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
