// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package calc evaluates arithmetic expressions over labels using the
// shunting-yard algorithm.
package calc

import (
	"errors"
	"fmt"
	"math"

	"nickandperla.net/hexproc/internal/diag"
	"nickandperla.net/hexproc/internal/label"
	"nickandperla.net/hexproc/internal/scanner"
	"nickandperla.net/hexproc/internal/token"
)

// Capacity of the evaluator's bounded stacks and queue.
const (
	MaxStack    = 64
	MaxQueue    = 64
	MaxOperands = 64
	MaxNames    = 64
)

// Evaluation errors. Every error returned by Eval wraps one of these.
var (
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrRecursiveLabel    = errors.New("recursive label")
	ErrBadOperator       = errors.New("bad operator")
	ErrBadCharacter      = errors.New("unknown character")
	ErrOverflow          = errors.New("overflow")
	ErrUnderflow         = errors.New("underflow")
	ErrMalformed         = errors.New("malformed expression")
)

// Evaluator computes expression values against a label table.
type Evaluator struct {
	labels *label.Table
	diag   diag.Reporter
	names  []string // labels currently being expanded
}

// New creates an Evaluator over labels reporting diagnostics to r.
func New(labels *label.Table, r diag.Reporter) *Evaluator {
	return &Evaluator{labels: labels, diag: r}
}

// Labels returns the table the evaluator resolves names against.
func (e *Evaluator) Labels() *label.Table {
	return e.labels
}

// SetReporter changes where diagnostics go.
func (e *Evaluator) SetReporter(r diag.Reporter) {
	e.diag = r
}

// Reporter returns the current diagnostic reporter.
func (e *Evaluator) Reporter() diag.Reporter {
	return e.diag
}

// fail reports err and returns it.
func (e *Evaluator) fail(err error) error {
	e.diag.Reportf("%v", err)
	return err
}

// Eval computes the value of expr. On failure the result is NaN and the
// returned error has already been reported.
//
// Unknown identifiers do not stop the scan, so every unknown name in the
// expression is reported, but nothing further is evaluated. A recursive
// label aborts the whole evaluation immediately.
func (e *Evaluator) Eval(expr string) (float64, error) {
	var (
		y             yard
		failed        error
		expectOperand = true
	)
	record := func(err error) {
		if failed == nil {
			failed = err
		}
	}

	s := scanner.New(expr)
	s.SkipWhitespace()
	for !s.Done() {
		c := s.Peek()
		switch {
		case scanner.IsDigit(c):
			v, n, err := ParseNumber(s.Rest())
			s.Advance(n)
			if err != nil {
				record(e.fail(err))
			} else if failed == nil {
				if err := y.putNum(v); err != nil {
					record(e.fail(err))
				}
			}
			expectOperand = false

		case scanner.IsNameChar(c):
			name, _ := s.ScanName()
			v, err := e.resolve(name)
			if errors.Is(err, ErrRecursiveLabel) {
				return math.NaN(), err
			}
			if err != nil {
				record(err)
			} else if failed == nil {
				if err := y.putNum(v); err != nil {
					record(e.fail(err))
				}
			}
			expectOperand = false

		default:
			op, n := token.Lookup(s.Rest())
			if op == token.ILLEGAL {
				if failed == nil {
					record(e.fail(fmt.Errorf("%w: %s", ErrBadCharacter, describe(c))))
				}
				s.Advance(1)
				break
			}
			s.Advance(n)
			if failed != nil {
				expectOperand = op != token.RPAREN
				break
			}
			if err := e.addOp(&y, op, expectOperand); err != nil {
				record(e.fail(err))
			}
			expectOperand = op != token.RPAREN
		}
		s.SkipWhitespace()
	}

	if failed != nil {
		return math.NaN(), failed
	}
	v, err := e.compute(&y)
	if err != nil {
		return math.NaN(), e.fail(err)
	}
	return v, nil
}

func (e *Evaluator) addOp(y *yard, op token.Op, expectOperand bool) error {
	switch op {
	case token.LPAREN:
		return y.push(op)
	case token.RPAREN:
		return y.closeParen()
	}
	if expectOperand {
		prefix, operand, ok := op.Prefix()
		if !ok {
			return fmt.Errorf("%w: operator '%s' is missing its left operand", ErrMalformed, op)
		}
		if err := y.putNum(operand); err != nil {
			return err
		}
		return y.push(prefix)
	}
	return y.addOp(op)
}

// resolve returns the value of a label, expanding lazy bindings.
func (e *Evaluator) resolve(name string) (float64, error) {
	b, ok := e.labels.Lookup(name)
	if !ok {
		return math.NaN(), e.fail(fmt.Errorf("%w: %q", ErrUnknownIdentifier, name))
	}
	switch b := b.(type) {
	case label.Constant:
		return b.Value, nil
	case label.Expression:
		for _, n := range e.names {
			if n == name {
				return math.NaN(), e.fail(fmt.Errorf("%w: %q", ErrRecursiveLabel, name))
			}
		}
		if len(e.names) >= MaxNames {
			return math.NaN(), e.fail(fmt.Errorf("name stack %w while expanding %q", ErrOverflow, name))
		}
		e.names = append(e.names, name)
		v, err := e.Eval(b.Text)
		e.names = e.names[:len(e.names)-1]
		return v, err
	}
	return math.NaN(), e.fail(fmt.Errorf("%w: %q has no value", ErrUnknownIdentifier, name))
}

// compute drains the operator stack and evaluates the postfix queue.
func (e *Evaluator) compute(y *yard) (float64, error) {
	for len(y.stack) > 0 {
		op, _ := y.pop()
		if op == token.LPAREN {
			return 0, fmt.Errorf("%w: unmatched '('", ErrMalformed)
		}
		if err := y.put(item{op: op}); err != nil {
			return 0, err
		}
	}

	operands := make([]float64, 0, MaxOperands)
	pop := func() (float64, error) {
		if len(operands) == 0 {
			return 0, fmt.Errorf("operand stack %w", ErrUnderflow)
		}
		v := operands[len(operands)-1]
		operands = operands[:len(operands)-1]
		return v, nil
	}
	for _, it := range y.queue {
		if !it.isNum {
			b, err := pop()
			if err != nil {
				return 0, err
			}
			a, err := pop()
			if err != nil {
				return 0, err
			}
			v, err := e.apply(it.op, a, b)
			if err != nil {
				return 0, err
			}
			it.num = v
		}
		if len(operands) >= MaxOperands {
			return 0, fmt.Errorf("operand stack %w", ErrOverflow)
		}
		operands = append(operands, it.num)
	}

	switch len(operands) {
	case 0:
		return 0, fmt.Errorf("operand stack %w: empty expression", ErrUnderflow)
	case 1:
		return operands[0], nil
	}
	return 0, fmt.Errorf("%w: missing operator", ErrMalformed)
}

// apply evaluates a binary operator.
func (e *Evaluator) apply(op token.Op, a, b float64) (float64, error) {
	if op.IsBitwise() {
		x, y := ToInteger(a, e.diag), ToInteger(b, e.diag)
		switch op {
		case token.AND:
			return float64(x & y), nil
		case token.OR:
			return float64(x | y), nil
		case token.XOR, token.COMPL:
			return float64(x ^ y), nil
		case token.SHL:
			return float64(shift(x, y, true)), nil
		case token.SHR:
			return float64(shift(x, y, false)), nil
		}
	}
	switch op {
	case token.ADD, token.PLUS:
		return a + b, nil
	case token.SUB, token.NEG:
		return a - b, nil
	case token.MUL:
		return a * b, nil
	case token.DIV:
		return a / b, nil
	case token.MOD:
		return math.Mod(a, b), nil
	case token.POW:
		return math.Pow(a, b), nil
	case token.EQ:
		return truth(a == b), nil
	case token.NEQ:
		return truth(a != b), nil
	case token.LT:
		return truth(a < b), nil
	case token.GT:
		return truth(a > b), nil
	case token.LEQ:
		return truth(a <= b), nil
	case token.GEQ:
		return truth(a >= b), nil
	}
	return 0, fmt.Errorf("%w: '%s'", ErrBadOperator, op)
}

// ToInteger converts v to int64, saturating at the int64 bounds.
// Non-finite values are reported and become 0.
func ToInteger(v float64, r diag.Reporter) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		if r != nil {
			r.Reportf("%v cannot be converted to an integer", v)
		}
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	if v <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(v)
}

// shift shifts a by n bits; negative counts shift the other way.
func shift(a, n int64, left bool) int64 {
	if n < 0 {
		left = !left
		if n == math.MinInt64 {
			n = 64
		} else {
			n = -n
		}
	}
	if n >= 64 {
		if left || a >= 0 {
			return 0
		}
		return -1
	}
	if left {
		return a << uint(n)
	}
	return a >> uint(n)
}

func truth(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func describe(c byte) string {
	if c < 0x20 || c >= 0x7f {
		return fmt.Sprintf("byte 0x%02x", c)
	}
	return fmt.Sprintf("'%c'", c)
}
