// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package debugger implements the interactive line-stepping debugger.
package debugger

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/tliron/commonlog"

	"nickandperla.net/hexproc/internal/interp"
	"nickandperla.net/hexproc/internal/label"
)

var log = commonlog.GetLogger("hexproc.debugger")

const helpText = `  Available commands:
    b, break NUMBER - set a breakpoint before given line number
    d, delete NUMBER - remove the breakpoint before given line number
    r, resume - resume execution
    s, step - stop again before the next line
    v, vars - list current variables
    l, list - list current variables
    h, help - show debugger usage help
    e, eval EXPR - evaluate an expression
`

// Debugger stops the first pass before selected lines and runs commands
// read from its input. It implements interp.Hook.
type Debugger struct {
	in          *bufio.Reader
	out         io.Writer
	breakpoints map[int]bool
	step        bool
	interrupted atomic.Bool
	bold        bool
	onPrompt    func(active bool)
}

// Option configures a Debugger.
type Option func(*Debugger)

// WithBreakpoints sets breakpoints before the given lines.
func WithBreakpoints(lines ...int) Option {
	return func(d *Debugger) {
		for _, n := range lines {
			d.breakpoints[n] = true
		}
	}
}

// WithStep makes the debugger stop before the first line.
func WithStep(step bool) Option {
	return func(d *Debugger) { d.step = step }
}

// WithBoldPrompt highlights the prompt with ANSI bold.
func WithBoldPrompt(bold bool) Option {
	return func(d *Debugger) { d.bold = bold }
}

// WithPromptNotify calls fn with true when the debugger starts reading
// commands and with false when execution resumes.
func WithPromptNotify(fn func(active bool)) Option {
	return func(d *Debugger) { d.onPrompt = fn }
}

// New creates a Debugger reading commands from r and writing to w.
func New(r io.Reader, w io.Writer, opts ...Option) *Debugger {
	d := &Debugger{
		in:          bufio.NewReader(r),
		out:         w,
		breakpoints: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Interrupt requests a stop before the next line. It is safe to call from
// any goroutine, typically a signal handler.
func (d *Debugger) Interrupt() {
	d.interrupted.Store(true)
}

// Breakpoint reports whether a breakpoint is set before line n.
func (d *Debugger) Breakpoint(n int) bool {
	return d.breakpoints[n]
}

// BeforeLine implements interp.Hook.
func (d *Debugger) BeforeLine(in *interp.Interpreter, line string) {
	file, n := in.Diag().Position()
	interrupted := d.interrupted.Swap(false)
	if !interrupted && !d.step && !d.breakpoints[n] {
		return
	}
	d.step = false
	log.Debugf("stopped at %s:%d", file, n)
	if d.onPrompt != nil {
		d.onPrompt(true)
		defer d.onPrompt(false)
	}

	fmt.Fprintf(d.out, "  %d: %s\n", n, line)
	for {
		d.prompt(file, n)
		text, err := d.in.ReadString('\n')
		if err != nil && strings.TrimSpace(text) == "" {
			fmt.Fprintln(d.out)
			return
		}
		if !d.command(in, text) || err != nil {
			return
		}
	}
}

func (d *Debugger) prompt(file string, n int) {
	if d.bold {
		fmt.Fprintf(d.out, "\033[1mdebug %s:%d> \033[0m", file, n)
		return
	}
	fmt.Fprintf(d.out, "debug %s:%d> ", file, n)
}

// command runs one command line and returns false when execution should
// resume.
func (d *Debugger) command(in *interp.Interpreter, text string) bool {
	name, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "":
	case "b", "break":
		n, ok := d.lineArg(arg)
		if ok && !d.breakpoints[n] {
			d.breakpoints[n] = true
			fmt.Fprintf(d.out, "Added breakpoint before line %d\n", n)
		}
	case "d", "delete":
		if n, ok := d.lineArg(arg); ok {
			delete(d.breakpoints, n)
			fmt.Fprintf(d.out, "Removed breakpoint before line %d\n", n)
		}
	case "r", "resume":
		return false
	case "s", "step":
		d.step = true
		return false
	case "v", "vars", "l", "list":
		d.vars(in.Labels())
	case "h", "help", "?":
		fmt.Fprint(d.out, helpText)
	case "e", "eval", "=":
		v, err := in.Evaluator().Eval(arg)
		if err == nil {
			fmt.Fprintf(d.out, "= %s\n", FormatValue(v))
		}
	default:
		fmt.Fprintf(d.out, "  Unknown command: %q\n", name)
	}
	return true
}

func (d *Debugger) lineArg(arg string) (int, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		fmt.Fprintf(d.out, "  Expected a line number, got %q\n", arg)
		return 0, false
	}
	return n, true
}

func (d *Debugger) vars(t *label.Table) {
	fmt.Fprintln(d.out, "  List of variables:")
	t.Each(func(name string, b label.Binding) {
		if b.IsLazy() {
			fmt.Fprintf(d.out, "\t%16s = %q\n", name, b.String())
		} else {
			fmt.Fprintf(d.out, "\t%16s = %s\n", name, b.String())
		}
	})
}

// FormatValue prints integral values without a fraction and everything
// else in the shortest exact form.
func FormatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1<<63 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
