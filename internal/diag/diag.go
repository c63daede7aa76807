// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package diag tracks the current source position and reports diagnostics.
package diag

import (
	"fmt"
	"io"
	"os"
)

// Reporter receives non-fatal diagnostics.
type Reporter interface {
	// Reportf reports a diagnostic at the current position.
	Reportf(format string, args ...any)
	// Position returns the current file name and line number.
	Position() (file string, line int)
}

// Sink writes diagnostics as "<file>:<line>  <message>" to an error channel.
type Sink struct {
	w      io.Writer
	file   string
	line   int
	errors int
}

// New creates a Sink writing to w. A nil w writes to os.Stderr.
func New(w io.Writer) *Sink {
	if w == nil {
		w = os.Stderr
	}
	return &Sink{w: w, file: "<unknown>", line: 1}
}

// Reportf reports a diagnostic at the current position.
func (s *Sink) Reportf(format string, args ...any) {
	s.errors++
	fmt.Fprintf(s.w, "%s:%d  %s\n", s.file, s.line, fmt.Sprintf(format, args...))
}

// Position returns the current file name and line number.
func (s *Sink) Position() (string, int) {
	return s.file, s.line
}

// SetPosition moves the sink to the given file and line.
func (s *Sink) SetPosition(file string, line int) {
	s.file = file
	s.line = line
}

// NextLine advances to the next physical line.
func (s *Sink) NextLine() {
	s.line++
}

// Errors returns the number of diagnostics reported so far.
func (s *Sink) Errors() int {
	return s.errors
}

// At returns a Reporter that reports at a fixed position through s.
func (s *Sink) At(file string, line int) Reporter {
	return &fixed{sink: s, file: file, line: line}
}

type fixed struct {
	sink *Sink
	file string
	line int
}

func (f *fixed) Reportf(format string, args ...any) {
	f.sink.errors++
	fmt.Fprintf(f.sink.w, "%s:%d  %s\n", f.file, f.line, fmt.Sprintf(format, args...))
}

func (f *fixed) Position() (string, int) {
	return f.file, f.line
}
