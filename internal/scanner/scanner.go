// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scanner provides the text-cursor primitives used by the
// interpreter and the formatter.
package scanner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Scan errors. Callers abort the rest of the current line on any of them.
var (
	ErrEmptyName    = errors.New("expected a name")
	ErrUnterminated = errors.New("unterminated")
	ErrBadOctet     = errors.New("bad octet")
	ErrUnexpected   = errors.New("unexpected character")
)

// Scanner is a read-only cursor over a single line of text.
type Scanner struct {
	src string
	pos int
}

// New creates a Scanner positioned at the start of src.
func New(src string) *Scanner {
	return &Scanner{src: src}
}

// Pos returns the number of bytes consumed so far.
func (s *Scanner) Pos() int {
	return s.pos
}

// Rest returns the unconsumed input.
func (s *Scanner) Rest() string {
	return s.src[s.pos:]
}

// Done returns true when the whole input has been consumed.
func (s *Scanner) Done() bool {
	return s.pos >= len(s.src)
}

// Peek returns the next byte without consuming it. Returns 0 at the end.
func (s *Scanner) Peek() byte {
	return s.PeekAt(0)
}

// PeekAt returns the byte n positions ahead. Returns 0 past the end.
func (s *Scanner) PeekAt(n int) byte {
	if s.pos+n >= len(s.src) {
		return 0
	}
	return s.src[s.pos+n]
}

// Advance consumes n bytes, stopping at the end of input.
func (s *Scanner) Advance(n int) {
	s.pos += n
	if s.pos > len(s.src) {
		s.pos = len(s.src)
	}
}

// SkipWhitespace consumes leading whitespace and returns how much it skipped.
func (s *Scanner) SkipWhitespace() int {
	start := s.pos
	for s.pos < len(s.src) && IsSpace(s.src[s.pos]) {
		s.pos++
	}
	return s.pos - start
}

// ScanName consumes a maximal run of identifier characters.
func (s *Scanner) ScanName() (string, error) {
	n := NameLen(s.Rest())
	if n == 0 {
		return "", fmt.Errorf("%w, got %s", ErrEmptyName, describe(s.Peek()))
	}
	name := s.src[s.pos : s.pos+n]
	s.pos += n
	return name, nil
}

// ScanQuoted consumes a double-quoted string and returns the text between
// the quotes. An unterminated string consumes the rest of the input and
// returns it together with ErrUnterminated.
func (s *Scanner) ScanQuoted() (string, error) {
	if s.Peek() != '"' {
		return "", fmt.Errorf("%w: expected quoted string, got %s", ErrUnexpected, describe(s.Peek()))
	}
	start := s.pos + 1
	end := strings.IndexByte(s.src[start:], '"')
	if end < 0 {
		s.pos = len(s.src)
		return s.src[start:], fmt.Errorf("%w quoted string", ErrUnterminated)
	}
	s.pos = start + end + 1
	return s.src[start : start+end], nil
}

// ScanBalanced consumes text enclosed by open and close, honoring nesting,
// and returns what lies between the outer delimiters. Unterminated input
// consumes the rest and returns it together with ErrUnterminated.
func (s *Scanner) ScanBalanced(open, close byte) (string, error) {
	if s.Peek() != open {
		return "", fmt.Errorf("%w: expected '%c', got %s", ErrUnexpected, open, describe(s.Peek()))
	}
	depth := 1
	start := s.pos + 1
	for i := start; i < len(s.src); i++ {
		switch s.src[i] {
		case close:
			depth--
			if depth == 0 {
				s.pos = i + 1
				return s.src[start:i], nil
			}
		case open:
			depth++
		}
	}
	s.pos = len(s.src)
	return s.src[start:], fmt.Errorf("%w: missing '%c'", ErrUnterminated, close)
}

// ScanOctet consumes exactly two hex digits.
func (s *Scanner) ScanOctet() (byte, error) {
	hi, lo := s.Peek(), s.PeekAt(1)
	if !IsHexDigit(hi) {
		return 0, fmt.Errorf("%w: %s is not a hex digit", ErrBadOctet, describe(hi))
	}
	if lo == 0 {
		s.Advance(1)
		return 0, fmt.Errorf("%w: unfinished octet (starts with '%c')", ErrBadOctet, hi)
	}
	if !IsHexDigit(lo) {
		return 0, fmt.Errorf("%w: %s is not a hex digit", ErrBadOctet, describe(lo))
	}
	s.pos += 2
	return hexValue(hi)<<4 | hexValue(lo), nil
}

// ScanLineMarker recognizes `#<uint> "<file>"`. On any mismatch the cursor
// is left where it was and ok is false.
func (s *Scanner) ScanLineMarker() (line int, file string, ok bool) {
	start := s.pos
	defer func() {
		if !ok {
			s.pos = start
		}
	}()

	if s.Peek() != '#' {
		return 0, "", false
	}
	s.pos++
	s.SkipWhitespace()
	digits := 0
	for IsDigit(s.PeekAt(digits)) {
		digits++
	}
	if digits == 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(s.src[s.pos : s.pos+digits])
	if err != nil {
		return 0, "", false
	}
	s.pos += digits
	s.SkipWhitespace()
	name, err := s.ScanQuoted()
	if err != nil {
		return 0, "", false
	}
	return n, name, true
}

// AssignMode selects how an assignment binds its name.
type AssignMode int

const (
	// AssignCapture binds the name to the current output offset (`name:`).
	AssignCapture AssignMode = iota
	// AssignLazy binds the unevaluated expression text (`name = expr`).
	AssignLazy
	// AssignImmediate evaluates now and binds the result (`name := expr`).
	AssignImmediate
)

// String returns the operator spelling of the mode.
func (m AssignMode) String() string {
	switch m {
	case AssignCapture:
		return ":"
	case AssignLazy:
		return "="
	case AssignImmediate:
		return ":="
	}
	return "?"
}

// Assignment is a recognized assignment statement.
type Assignment struct {
	Name string
	Expr string // empty for AssignCapture
	Mode AssignMode
}

// TryScanAssign recognizes `name:`, `name = expr` and `name := expr`.
// Expressions run to the end of the line or the next unquoted ';', which is
// left unconsumed. On a non-match the cursor does not move.
func (s *Scanner) TryScanAssign() (Assignment, bool) {
	start := s.pos
	s.SkipWhitespace()
	n := NameLen(s.Rest())
	if n == 0 {
		s.pos = start
		return Assignment{}, false
	}
	name := s.src[s.pos : s.pos+n]
	s.pos += n
	s.SkipWhitespace()

	var mode AssignMode
	switch {
	case s.Peek() == '=':
		mode = AssignLazy
		s.pos++
	case s.Peek() == ':' && s.PeekAt(1) == '=':
		mode = AssignImmediate
		s.pos += 2
	case s.Peek() == ':':
		s.pos++
		return Assignment{Name: name, Mode: AssignCapture}, true
	default:
		s.pos = start
		return Assignment{}, false
	}

	s.SkipWhitespace()
	end := statementLen(s.Rest())
	expr := strings.TrimRightFunc(s.src[s.pos:s.pos+end], func(r rune) bool {
		return r < 0x80 && IsSpace(byte(r))
	})
	s.pos += end
	return Assignment{Name: name, Expr: expr, Mode: mode}, true
}

// statementLen returns the length of s up to the first ';' outside quotes.
func statementLen(s string) int {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case ';':
			if !quoted {
				return i
			}
		}
	}
	return len(s)
}

// NameLen returns the length of the identifier at the start of s.
func NameLen(s string) int {
	i := 0
	for i < len(s) && IsNameChar(s[i]) {
		i++
	}
	return i
}

// IsNameChar returns true for letters, digits, '.' and '_'.
func IsNameChar(c byte) bool {
	return c == '.' || c == '_' || IsDigit(c) || IsLetter(c)
}

// IsLetter returns true for ASCII letters.
func IsLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// IsDigit returns true for decimal digits.
func IsDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// IsHexDigit returns true for hexadecimal digits of either case.
func IsHexDigit(c byte) bool {
	return IsDigit(c) || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// IsSpace returns true for the C locale whitespace characters.
func IsSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func hexValue(c byte) byte {
	switch {
	case IsDigit(c):
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func describe(c byte) string {
	if c == 0 {
		return "end of line"
	}
	if c < 0x20 || c >= 0x7f {
		return fmt.Sprintf("byte 0x%02x", c)
	}
	return fmt.Sprintf("'%c'", c)
}
