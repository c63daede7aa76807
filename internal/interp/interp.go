// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package interp implements the first pass: it scans hexproc source line by
// line, collecting literal bytes, labels, formatters and the source map.
package interp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tliron/commonlog"

	"nickandperla.net/hexproc/internal/calc"
	"nickandperla.net/hexproc/internal/diag"
	"nickandperla.net/hexproc/internal/format"
	"nickandperla.net/hexproc/internal/label"
	"nickandperla.net/hexproc/internal/scanner"
	"nickandperla.net/hexproc/internal/sourcemap"
)

// EndianLabel names the label formatters consult when their spec omits a
// byte order.
const EndianLabel = "hexproc.endian"

var log = commonlog.GetLogger("hexproc.interp")

// errReported aborts a line after the failure was already reported.
var errReported = errors.New("already reported")

// Hook is called before every line of a Run, before the line is parsed.
type Hook interface {
	BeforeLine(in *Interpreter, line string)
}

// Program is the result of the first pass.
type Program struct {
	Bytes      []byte
	Map        []sourcemap.Entry
	Formatters []format.Formatter
}

// Interpreter holds the state of the first pass.
type Interpreter struct {
	labels    *label.Table
	calc      *calc.Evaluator
	diag      *diag.Sink
	hook      Hook
	offset    uint64
	bytes     []byte
	smap      *sourcemap.Map
	queue     *format.Queue
	inComment bool // inside a /* */ block
	loadOnly  bool
	lines     int

	// where the open block comment started
	commentFile string
	commentLine int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLabels makes the interpreter define labels in t.
func WithLabels(t *label.Table) Option {
	return func(in *Interpreter) { in.labels = t }
}

// WithDiag sets the diagnostics sink.
func WithDiag(s *diag.Sink) Option {
	return func(in *Interpreter) { in.diag = s }
}

// WithHook installs a per-line hook.
func WithHook(h Hook) Option {
	return func(in *Interpreter) { in.hook = h }
}

// New creates a new Interpreter with the given options.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		smap:  sourcemap.New(),
		queue: format.NewQueue(),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.labels == nil {
		in.labels = label.NewTable()
	}
	if in.diag == nil {
		in.diag = diag.New(nil)
	}
	in.calc = calc.New(in.labels, in.diag)
	return in
}

// SetHook replaces the per-line hook. nil removes it.
func (in *Interpreter) SetHook(h Hook) {
	in.hook = h
}

// Labels returns the symbol table.
func (in *Interpreter) Labels() *label.Table {
	return in.labels
}

// Evaluator returns the expression evaluator bound to the symbol table.
func (in *Interpreter) Evaluator() *calc.Evaluator {
	return in.calc
}

// Diag returns the diagnostics sink.
func (in *Interpreter) Diag() *diag.Sink {
	return in.diag
}

// Offset returns the current output offset.
func (in *Interpreter) Offset() uint64 {
	return in.offset
}

// Program returns the bytes, source map and formatters collected so far.
func (in *Interpreter) Program() Program {
	return Program{
		Bytes:      in.bytes,
		Map:        in.smap.Entries(),
		Formatters: in.queue.Formatters(),
	}
}

// Run processes every line of r. It only fails on read errors; problems in
// the source are reported to the diagnostics sink.
func (in *Interpreter) Run(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 || err == nil {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			if in.hook != nil && !in.loadOnly {
				in.hook.BeforeLine(in, line)
			}
			in.ProcessLine(line)
			in.diag.NextLine()
			in.lines++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			in.closeComment()
			return fmt.Errorf("reading input: %w", err)
		}
	}
	in.closeComment()
	file, _ := in.diag.Position()
	log.Debugf("%s: %d lines, %d bytes, %d formatters", file, in.lines, in.offset, in.queue.Len())
	return nil
}

// Load processes r in definitions-only mode: assignments bind labels, but
// nothing is emitted and no source map entries are recorded.
func (in *Interpreter) Load(r io.Reader) error {
	in.loadOnly = true
	defer func() { in.loadOnly = false }()
	return in.Run(r)
}

// closeComment reports a block comment left open at the end of an input
// and closes it, so it cannot swallow the next one.
func (in *Interpreter) closeComment() {
	if !in.inComment {
		return
	}
	in.inComment = false
	in.diag.At(in.commentFile, in.commentLine).Reportf("Unterminated block comment")
}

// ProcessLine runs the first pass over a single line.
func (in *Interpreter) ProcessLine(line string) {
	in.scanLine(scanner.New(line))
	if !in.loadOnly {
		in.smap.Add(in.offset, sourcemap.LineBreak)
	}
}

func (in *Interpreter) scanLine(s *scanner.Scanner) {
	for {
		if in.inComment {
			end := strings.Index(s.Rest(), "*/")
			if end < 0 {
				return
			}
			s.Advance(end + 2)
			in.inComment = false
		}

		s.SkipWhitespace()
		if s.Done() {
			return
		}

		var err error
		switch c := s.Peek(); {
		case c == '/' && s.PeekAt(1) == '/':
			return
		case c == '/' && s.PeekAt(1) == '*':
			s.Advance(2)
			in.inComment = true
			in.commentFile, in.commentLine = in.diag.Position()
			continue
		case c == '#':
			if n, file, ok := s.ScanLineMarker(); ok {
				in.diag.SetPosition(file, n-1)
			}
			return
		case c == ';':
			s.Advance(1)
			continue
		case c == '[':
			err = in.formatter(s)
		case c == '"':
			err = in.quoted(s)
		default:
			err = in.statement(s)
		}

		if err != nil {
			if !errors.Is(err, errReported) {
				in.diag.Reportf("%v", err)
			}
			return
		}
	}
}

func (in *Interpreter) formatter(s *scanner.Scanner) error {
	spec, err := s.ScanBalanced('[', ']')
	if err != nil {
		return fmt.Errorf("formatter spec: %w", err)
	}
	var expr string
	if s.Peek() == '(' {
		expr, err = s.ScanBalanced('(', ')')
	} else {
		expr, err = s.ScanName()
	}
	if err != nil {
		return fmt.Errorf("formatter [%s]: %w", spec, err)
	}
	if in.loadOnly {
		return nil
	}

	f := format.Parse(spec, expr, in.DefaultEndian, in.diag)
	in.smap.Add(in.offset, sourcemap.FormatterStart)
	in.offset += uint64(f.Width)
	in.smap.Add(in.offset, sourcemap.SpanEnd)
	in.queue.Push(f)
	return nil
}

func (in *Interpreter) quoted(s *scanner.Scanner) error {
	text, err := s.ScanQuoted()
	if in.loadOnly {
		return err
	}
	in.smap.Add(in.offset, sourcemap.StringStart)
	in.bytes = append(in.bytes, text...)
	in.offset += uint64(len(text))
	in.smap.Add(in.offset, sourcemap.SpanEnd)
	return err
}

func (in *Interpreter) statement(s *scanner.Scanner) error {
	if a, ok := s.TryScanAssign(); ok {
		return in.assign(a)
	}
	b, err := s.ScanOctet()
	if err != nil {
		return err
	}
	if !in.loadOnly {
		in.bytes = append(in.bytes, b)
		in.offset++
	}
	return nil
}

func (in *Interpreter) assign(a scanner.Assignment) error {
	switch a.Mode {
	case scanner.AssignCapture:
		in.labels.SetConstant(a.Name, float64(in.offset))
	case scanner.AssignLazy:
		in.labels.SetExpression(a.Name, a.Expr)
	case scanner.AssignImmediate:
		v, err := in.calc.Eval(a.Expr)
		if err != nil {
			return fmt.Errorf("%s := %s: %w", a.Name, a.Expr, errReported)
		}
		in.labels.SetConstant(a.Name, v)
	}
	return nil
}

// DefaultEndian resolves the byte order for formatters that do not name
// one, from the current value of EndianLabel. Big endian is used when the
// label is missing or cannot be evaluated.
func (in *Interpreter) DefaultEndian() format.Endian {
	if !in.labels.Has(EndianLabel) {
		return format.Big
	}
	v, err := in.calc.Eval(EndianLabel)
	if err != nil {
		return format.Big
	}
	return format.EndianFromValue(v)
}
