// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package hexproc provides the public API for the hexproc interpreter.
package hexproc

import (
	"io"

	"nickandperla.net/hexproc/internal/debugger"
	"nickandperla.net/hexproc/internal/output"
	"nickandperla.net/hexproc/internal/store"
)

// Option configures a Runtime.
type Option func(*Runtime)

// Store interface for custom label stores.
type Store = store.Store

// Mode selects the output format.
type Mode = output.Mode

// Output modes.
const (
	Binary   = output.Binary
	Hex      = output.Hex
	ColorHex = output.ColorHex
)

// ParseMode parses an output mode name.
func ParseMode(s string) (Mode, bool) {
	return output.ParseMode(s)
}

// WithStore configures a custom label store. The runtime takes ownership
// and closes it.
func WithStore(s Store) Option {
	return func(r *Runtime) {
		r.store = s
	}
}

// WithSQLiteStore configures SQLite persistence at the given path.
func WithSQLiteStore(path string) Option {
	return func(r *Runtime) {
		s, err := store.NewSQLite(path)
		if err != nil {
			r.storeErr = err
			return
		}
		r.store = s
	}
}

// WithMemoryStore configures an in-memory store (for testing).
func WithMemoryStore() Option {
	return func(r *Runtime) {
		r.store = store.NewMemory()
	}
}

// WithOutputMode sets the output format used by Emit.
func WithOutputMode(m Mode) Option {
	return func(r *Runtime) {
		r.mode = m
	}
}

// WithPalette sets the background colors used in ColorHex mode.
func WithPalette(codes []int) Option {
	return func(r *Runtime) {
		r.palette = codes
	}
}

// WithErrorWriter sets where diagnostics are written. The default is
// os.Stderr.
func WithErrorWriter(w io.Writer) Option {
	return func(r *Runtime) {
		r.errw = w
	}
}

// WithDebugger installs a debugger that runs before every input line.
func WithDebugger(d *debugger.Debugger) Option {
	return func(r *Runtime) {
		r.debugger = d
	}
}

// WithDefinitions adds hexproc source that is loaded after the prelude and
// the stored labels, before any input. Only its assignments take effect.
func WithDefinitions(src string) Option {
	return func(r *Runtime) {
		r.definitions = append(r.definitions, src)
	}
}

// WithPersist makes Run write labels back to the store after the first
// pass.
func WithPersist(persist bool) Option {
	return func(r *Runtime) {
		r.persist = persist
	}
}

// WithPrelude sets a custom prelude source to be loaded on startup.
// If not set, DefaultPrelude is used.
func WithPrelude(source string) Option {
	return func(r *Runtime) {
		r.prelude = source
	}
}

// WithNoPrelude disables loading the prelude.
func WithNoPrelude() Option {
	return func(r *Runtime) {
		r.noPrelude = true
	}
}
