// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package sourcemap records the deferred actions of the first pass, keyed
// by output offset, for the output pass to replay.
package sourcemap

// Action is a deferred output action.
type Action int

const (
	// StringStart opens the span of a quoted string.
	StringStart Action = iota
	// FormatterStart marks where the next formatter's bytes go.
	FormatterStart
	// SpanEnd closes the most recent span.
	SpanEnd
	// LineBreak ends a source line.
	LineBreak
)

// String returns the name of the action.
func (a Action) String() string {
	switch a {
	case StringStart:
		return "STRING"
	case FormatterStart:
		return "FORMATTER"
	case SpanEnd:
		return "END"
	case LineBreak:
		return "NEWLINE"
	}
	return "UNKNOWN"
}

// Entry is one recorded action.
type Entry struct {
	Offset uint64
	Action Action
}

// Map is an append-only log of entries with a read cursor. Entries are
// added in emission order, so offsets never decrease.
type Map struct {
	entries []Entry
	pos     int
}

// New creates a map over existing entries, positioned at the first one.
func New(entries ...Entry) *Map {
	return &Map{entries: entries}
}

// Add appends an entry.
func (m *Map) Add(offset uint64, a Action) {
	m.entries = append(m.entries, Entry{Offset: offset, Action: a})
}

// NextOffset returns the offset of the next unread entry. ok is false when
// every entry has been read.
func (m *Map) NextOffset() (offset uint64, ok bool) {
	if m.pos >= len(m.entries) {
		return 0, false
	}
	return m.entries[m.pos].Offset, true
}

// Take reads the next entry. ok is false on underflow.
func (m *Map) Take() (e Entry, ok bool) {
	if m.pos >= len(m.entries) {
		return Entry{Action: SpanEnd}, false
	}
	e = m.entries[m.pos]
	m.pos++
	return e, true
}

// Len returns the number of recorded entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// Entries returns every recorded entry, read or not.
func (m *Map) Entries() []Entry {
	return m.entries
}
