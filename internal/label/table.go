// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package label

import "sort"

// Table maps label names to their current binding. Re-assigning a name
// replaces its binding. A Table is owned by a single interpreter and is not
// safe for concurrent mutation.
type Table struct {
	store map[string]Binding
}

// NewTable creates a new empty table.
func NewTable() *Table {
	return &Table{
		store: make(map[string]Binding),
	}
}

// Lookup returns the binding for name and whether it exists.
func (t *Table) Lookup(name string) (Binding, bool) {
	b, ok := t.store[name]
	return b, ok
}

// Set binds name, overwriting any previous binding.
func (t *Table) Set(name string, b Binding) {
	t.store[name] = b
}

// SetConstant binds name to a number.
func (t *Table) SetConstant(name string, v float64) {
	t.Set(name, Constant{Value: v})
}

// SetExpression binds name to unevaluated expression text.
func (t *Table) SetExpression(name, text string) {
	t.Set(name, Expression{Text: text})
}

// Has returns true if the name exists in the table.
func (t *Table) Has(name string) bool {
	_, ok := t.store[name]
	return ok
}

// Len returns the number of labels.
func (t *Table) Len() int {
	return len(t.store)
}

// Names returns all label names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.store))
	for name := range t.store {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Each calls fn for every label in name order.
func (t *Table) Each(fn func(name string, b Binding)) {
	for _, name := range t.Names() {
		fn(name, t.store[name])
	}
}

// Clone creates a shallow copy of the table.
func (t *Table) Clone() *Table {
	clone := NewTable()
	for k, v := range t.store {
		clone.store[k] = v
	}
	return clone
}
