// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines the operators understood by the expression evaluator.
package token

// Op identifies an expression operator.
type Op int

const (
	ILLEGAL Op = iota

	ADD // +
	SUB // -
	MUL // *
	DIV // /
	MOD // %
	POW // ^
	AND // &
	OR  // |
	XOR // ~
	SHL // <<
	SHR // >>
	EQ  // ==
	NEQ // !=
	LT  // <
	GT  // >
	LEQ // <=
	GEQ // >=

	// Prefix forms synthesized for unary operators. The evaluator pushes
	// the implicit left operand (0 or -1) before them.
	NEG   // unary -
	PLUS  // unary +
	COMPL // unary ~

	LPAREN // (
	RPAREN // )
)

var singles = map[byte]Op{
	'+': ADD,
	'-': SUB,
	'*': MUL,
	'/': DIV,
	'%': MOD,
	'^': POW,
	'&': AND,
	'|': OR,
	'~': XOR,
	'<': LT,
	'>': GT,
	'(': LPAREN,
	')': RPAREN,
}

var doubles = map[[2]byte]Op{
	{'<', '<'}: SHL,
	{'>', '>'}: SHR,
	{'=', '='}: EQ,
	{'!', '='}: NEQ,
	{'<', '='}: LEQ,
	{'>', '='}: GEQ,
}

// Lookup returns the operator at the start of s and its length in bytes.
// Two-character operators win over their one-character prefix.
// Returns ILLEGAL and 0 if s does not start with an operator.
func Lookup(s string) (Op, int) {
	if len(s) >= 2 {
		if op, ok := doubles[[2]byte{s[0], s[1]}]; ok {
			return op, 2
		}
	}
	if len(s) >= 1 {
		if op, ok := singles[s[0]]; ok {
			return op, 1
		}
	}
	return ILLEGAL, 0
}

// Precedence returns the binding strength of op; higher binds tighter.
//
// Bitwise operators bind loosest, then equality, relational, shifts,
// additive, multiplicative, the unary prefix forms and finally power.
func (op Op) Precedence() int {
	switch op {
	case AND, OR, XOR:
		return 50
	case EQ, NEQ:
		return 60
	case LT, GT, LEQ, GEQ:
		return 70
	case SHL, SHR:
		return 80
	case ADD, SUB:
		return 100
	case MUL, DIV, MOD:
		return 200
	case NEG, PLUS, COMPL:
		return 250
	case POW:
		return 300
	}
	return 0
}

// RightAssoc returns true if op groups right to left.
func (op Op) RightAssoc() bool {
	switch op {
	case POW, NEG, PLUS, COMPL:
		return true
	}
	return false
}

// Prefix returns the unary form of op and the implicit left operand the
// evaluator must push before it. ok is false if op has no unary form.
func (op Op) Prefix() (prefix Op, operand float64, ok bool) {
	switch op {
	case SUB:
		return NEG, 0, true
	case ADD:
		return PLUS, 0, true
	case XOR:
		return COMPL, -1, true
	}
	return ILLEGAL, 0, false
}

// IsBitwise returns true if op works on integer-converted operands.
func (op Op) IsBitwise() bool {
	switch op {
	case AND, OR, XOR, COMPL, SHL, SHR:
		return true
	}
	return false
}

// String returns the source spelling of an operator.
func (op Op) String() string {
	switch op {
	case ADD, PLUS:
		return "+"
	case SUB, NEG:
		return "-"
	case MUL:
		return "*"
	case DIV:
		return "/"
	case MOD:
		return "%"
	case POW:
		return "^"
	case AND:
		return "&"
	case OR:
		return "|"
	case XOR, COMPL:
		return "~"
	case SHL:
		return "<<"
	case SHR:
		return ">>"
	case EQ:
		return "=="
	case NEQ:
		return "!="
	case LT:
		return "<"
	case GT:
		return ">"
	case LEQ:
		return "<="
	case GEQ:
		return ">="
	case LPAREN:
		return "("
	case RPAREN:
		return ")"
	}
	return "ILLEGAL"
}
