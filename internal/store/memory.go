// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"sync"
	"time"

	"nickandperla.net/hexproc/internal/label"
)

// Memory is an in-memory store, for tests and for runs without a database.
type Memory struct {
	mu       sync.RWMutex
	data     map[string]label.Binding
	history  map[string][]VersionEntry
	metadata map[string]string
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string]label.Binding),
		history:  make(map[string][]VersionEntry),
		metadata: make(map[string]string),
	}
}

// Get retrieves a binding by name.
func (m *Memory) Get(name string) (label.Binding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.data[name]; ok {
		return b, nil
	}
	return nil, nil
}

// Put stores a binding by name. Storing the current value again does not
// create a new version.
func (m *Memory) Put(name string, b label.Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.data[name]; ok && cur == b {
		return nil
	}
	m.data[name] = b
	versions := m.history[name]
	m.history[name] = append(versions, VersionEntry{
		Version: len(versions) + 1,
		Binding: b,
		Ts:      time.Now().UTC().Format(time.DateTime),
	})
	return nil
}

// Delete removes a binding and its history.
func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	delete(m.history, name)
	return nil
}

// All returns a copy of every stored binding.
func (m *Memory) All() (map[string]label.Binding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make(map[string]label.Binding, len(m.data))
	for k, v := range m.data {
		all[k] = v
	}
	return all, nil
}

// History returns the versions of name, newest first.
func (m *Memory) History(name string, limit int) ([]VersionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.history[name]
	if len(versions) == 0 {
		return nil, nil
	}
	var entries []VersionEntry
	for i := len(versions) - 1; i >= 0; i-- {
		if limit > 0 && len(entries) >= limit {
			break
		}
		entries = append(entries, versions[i])
	}
	return entries, nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}

// GetMetadata retrieves a metadata value by key.
func (m *Memory) GetMetadata(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[key], nil
}

// SetMetadata stores a metadata value by key.
func (m *Memory) SetMetadata(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
	return nil
}
