// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package calc

import (
	"fmt"

	"nickandperla.net/hexproc/internal/token"
)

// item is an entry of the output queue: a number or an operator.
type item struct {
	num   float64
	op    token.Op
	isNum bool
}

// yard holds the operator stack and the postfix output queue.
// See https://en.wikipedia.org/wiki/Shunting-yard_algorithm
type yard struct {
	stack []token.Op
	queue []item
}

func (y *yard) put(it item) error {
	if len(y.queue) >= MaxQueue {
		return fmt.Errorf("shunting yard queue %w", ErrOverflow)
	}
	y.queue = append(y.queue, it)
	return nil
}

func (y *yard) putNum(v float64) error {
	return y.put(item{num: v, isNum: true})
}

func (y *yard) push(op token.Op) error {
	if len(y.stack) >= MaxStack {
		return fmt.Errorf("shunting yard stack %w", ErrOverflow)
	}
	y.stack = append(y.stack, op)
	return nil
}

func (y *yard) pop() (token.Op, error) {
	if len(y.stack) == 0 {
		return token.ILLEGAL, fmt.Errorf("shunting yard stack %w", ErrUnderflow)
	}
	op := y.stack[len(y.stack)-1]
	y.stack = y.stack[:len(y.stack)-1]
	return op, nil
}

func (y *yard) peek() token.Op {
	if len(y.stack) == 0 {
		return token.ILLEGAL
	}
	return y.stack[len(y.stack)-1]
}

// addOp moves operators that bind at least as tightly as op to the queue,
// then pushes op.
func (y *yard) addOp(op token.Op) error {
	for len(y.stack) > 0 {
		top := y.peek()
		if top == token.LPAREN {
			break
		}
		if top.Precedence() < op.Precedence() ||
			top.Precedence() == op.Precedence() && op.RightAssoc() {
			break
		}
		y.stack = y.stack[:len(y.stack)-1]
		if err := y.put(item{op: top}); err != nil {
			return err
		}
	}
	return y.push(op)
}

// closeParen moves operators to the queue up to the matching '('.
func (y *yard) closeParen() error {
	for {
		op, err := y.pop()
		if err != nil {
			return fmt.Errorf("%w: unmatched ')'", ErrMalformed)
		}
		if op == token.LPAREN {
			return nil
		}
		if err := y.put(item{op: op}); err != nil {
			return err
		}
	}
}
