// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package store provides persistence for label libraries.
package store

import "nickandperla.net/hexproc/internal/label"

// Store is the interface for label persistence.
type Store interface {
	// Get retrieves a binding by name. Returns nil if not found.
	Get(name string) (label.Binding, error)
	// Put stores a binding by name, overwriting if it exists.
	Put(name string, b label.Binding) error
	// Delete removes a binding by name.
	Delete(name string) error
	// All returns every stored binding.
	All() (map[string]label.Binding, error)
	// Close releases resources.
	Close() error
}

// VersionEntry represents a single version of a persisted label.
type VersionEntry struct {
	Version int
	Binding label.Binding
	Ts      string
}

// HistoryStore extends Store with version history queries.
type HistoryStore interface {
	// History returns the versions of name, newest first. A limit of 0
	// returns every version.
	History(name string, limit int) ([]VersionEntry, error)
}

// MetadataStore extends Store with metadata operations.
type MetadataStore interface {
	Store
	GetMetadata(key string) (string, error)
	SetMetadata(key, value string) error
}
