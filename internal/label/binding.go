// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package label implements the symbol table of named values.
package label

import "strconv"

// Binding is the value a label is bound to.
type Binding interface {
	// String returns the source representation of the binding.
	String() string
	// IsLazy returns true if the binding must be evaluated on every reference.
	IsLazy() bool
}

// Constant is a label bound to a fixed number.
type Constant struct {
	Value float64
}

func (c Constant) String() string { return strconv.FormatFloat(c.Value, 'g', -1, 64) }
func (c Constant) IsLazy() bool   { return false }

// Expression is a label bound to unevaluated expression text.
type Expression struct {
	Text string
}

func (e Expression) String() string { return e.Text }
func (e Expression) IsLazy() bool   { return true }
