// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package format

// Queue holds formatters in creation order until the output pass takes
// them.
type Queue struct {
	items []Formatter
	pos   int
}

// NewQueue creates a queue holding fs.
func NewQueue(fs ...Formatter) *Queue {
	return &Queue{items: fs}
}

// Push appends a formatter.
func (q *Queue) Push(f Formatter) {
	q.items = append(q.items, f)
}

// Take removes and returns the oldest pending formatter. ok is false when
// the queue is exhausted.
func (q *Queue) Take() (f Formatter, ok bool) {
	if q.pos >= len(q.items) {
		return Formatter{}, false
	}
	f = q.items[q.pos]
	q.pos++
	return f, true
}

// Len returns the number of formatters ever pushed.
func (q *Queue) Len() int {
	return len(q.items)
}

// Pending returns the number of formatters not yet taken.
func (q *Queue) Pending() int {
	return len(q.items) - q.pos
}

// Formatters returns every formatter in creation order, taken or not.
func (q *Queue) Formatters() []Formatter {
	return q.items
}
