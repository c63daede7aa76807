// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package output implements the second pass: it replays a program's
// source map, evaluates formatters now that every label is known, and
// writes the result as binary or hex text.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"nickandperla.net/hexproc/internal/calc"
	"nickandperla.net/hexproc/internal/diag"
	"nickandperla.net/hexproc/internal/format"
	"nickandperla.net/hexproc/internal/interp"
	"nickandperla.net/hexproc/internal/sourcemap"
)

var log = commonlog.GetLogger("hexproc.output")

// Mode selects the output representation.
type Mode int

const (
	Binary Mode = iota
	Hex
	ColorHex
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case Binary:
		return "binary"
	case Hex:
		return "hex"
	case ColorHex:
		return "color"
	}
	return "unknown"
}

// ParseMode parses a configuration name into a Mode.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(s) {
	case "binary", "bin":
		return Binary, true
	case "hex":
		return Hex, true
	case "color", "colour":
		return ColorHex, true
	}
	return Hex, false
}

// DefaultPalette holds the ANSI background colors cycled through per span.
var DefaultPalette = []int{46, 45, 42, 44, 41}

// ParsePalette parses a comma-separated list of SGR codes.
func ParsePalette(s string) ([]int, error) {
	var palette []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 || n > 255 {
			return nil, fmt.Errorf("invalid color code %q", field)
		}
		palette = append(palette, n)
	}
	if len(palette) == 0 {
		return nil, fmt.Errorf("empty palette")
	}
	return palette, nil
}

// Emitter renders programs.
type Emitter struct {
	mode    Mode
	palette []int
	calc    *calc.Evaluator
	diag    *diag.Sink
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithMode sets the output mode. The default is Hex.
func WithMode(m Mode) Option {
	return func(e *Emitter) { e.mode = m }
}

// WithPalette sets the colors used by ColorHex.
func WithPalette(p []int) Option {
	return func(e *Emitter) {
		if len(p) > 0 {
			e.palette = p
		}
	}
}

// New creates an Emitter that evaluates formatters with ev and reports
// problems to sink.
func New(ev *calc.Evaluator, sink *diag.Sink, opts ...Option) *Emitter {
	e := &Emitter{
		mode:    Hex,
		palette: DefaultPalette,
		calc:    ev,
		diag:    sink,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the output mode.
func (e *Emitter) Mode() Mode {
	return e.mode
}

// Emit writes p to w. A program can be emitted any number of times.
func (e *Emitter) Emit(w io.Writer, p interp.Program) error {
	st := &emission{
		Emitter: e,
		w:       bufio.NewWriter(w),
		smap:    sourcemap.New(p.Map...),
		queue:   format.NewQueue(p.Formatters...),
	}
	for _, b := range p.Bytes {
		st.consume(false)
		st.literal(b)
	}
	st.consume(true)

	if n := st.queue.Pending(); n > 0 {
		e.diag.Reportf("%d formatters were never emitted", n)
	}
	log.Debugf("emitted %d bytes as %s", st.offset, e.mode)
	if err := st.w.Flush(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

type emission struct {
	*Emitter
	w         *bufio.Writer
	smap      *sourcemap.Map
	queue     *format.Queue
	offset    uint64
	needSpace bool
	color     int
}

func (st *emission) hex() bool {
	return st.mode != Binary
}

// consume applies every source map action due at the current offset, or
// every remaining action when drain is set.
func (st *emission) consume(drain bool) {
	for {
		next, ok := st.smap.NextOffset()
		if !ok || !drain && next > st.offset {
			return
		}
		e, ok := st.smap.Take()
		if !ok {
			st.diag.Reportf("Source map underflow")
		}
		switch e.Action {
		case sourcemap.FormatterStart:
			st.formatter()
		case sourcemap.StringStart:
			st.separate()
			st.beginColor()
		case sourcemap.SpanEnd:
			st.endColor()
		case sourcemap.LineBreak:
			if st.hex() {
				st.w.WriteByte('\n')
			}
			st.needSpace = false
			st.color = 0
		}
	}
}

func (st *emission) formatter() {
	f, ok := st.queue.Take()
	if !ok {
		st.diag.Reportf("Formatter queue underflow")
		return
	}

	r := st.diag.At(f.File, f.Line)
	prev := st.calc.Reporter()
	st.calc.SetReporter(r)
	v, _ := st.calc.Eval(f.Expr)
	st.calc.SetReporter(prev)

	out := f.Render(v, r)
	st.offset += uint64(len(out))

	st.separate()
	st.beginColor()
	for i, b := range out {
		if i > 0 && st.hex() {
			st.w.WriteByte(' ')
		}
		st.writeByte(b)
	}
	st.needSpace = true
}

func (st *emission) literal(b byte) {
	st.separate()
	st.writeByte(b)
	st.needSpace = true
	st.offset++
}

// separate writes the space owed before the next byte on a hex line.
func (st *emission) separate() {
	if st.hex() && st.needSpace {
		st.w.WriteByte(' ')
	}
	st.needSpace = false
}

func (st *emission) writeByte(b byte) {
	if !st.hex() {
		st.w.WriteByte(b)
		return
	}
	const digits = "0123456789abcdef"
	st.w.WriteByte(digits[b>>4])
	st.w.WriteByte(digits[b&0xf])
}

func (st *emission) beginColor() {
	if st.mode != ColorHex {
		return
	}
	fmt.Fprintf(st.w, "\033[%dm", st.palette[st.color])
	st.color = (st.color + 1) % len(st.palette)
}

func (st *emission) endColor() {
	if st.mode == ColorHex {
		st.w.WriteString("\033[0m")
	}
}
