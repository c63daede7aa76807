// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package debugger

import (
	"math"
	"strings"
	"testing"

	"nickandperla.net/hexproc/internal/diag"
	"nickandperla.net/hexproc/internal/interp"
)

func runDebugged(t *testing.T, d *Debugger, src string) *interp.Interpreter {
	t.Helper()
	var errs strings.Builder
	sink := diag.New(&errs)
	sink.SetPosition("dbg.hexp", 1)
	in := interp.New(interp.WithDiag(sink), interp.WithHook(d))
	if err := in.Run(strings.NewReader(src)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return in
}

func TestNoStopWithoutBreakpoints(t *testing.T) {
	var out strings.Builder
	d := New(strings.NewReader(""), &out)
	runDebugged(t, d, "00\n01\n02")
	if out.Len() != 0 {
		t.Errorf("expected debugger to stay silent, got %q", out.String())
	}
}

func TestBreakpoint(t *testing.T) {
	var out strings.Builder
	d := New(strings.NewReader("v\nr\n"), &out, WithBreakpoints(2))
	runDebugged(t, d, "x := 7\ny = x + 1\n00")

	got := out.String()
	if strings.Count(got, "debug dbg.hexp:2> ") != 2 {
		t.Errorf("expected two prompts at line 2, got %q", got)
	}
	if !strings.Contains(got, "  2: y = x + 1\n") {
		t.Errorf("expected the pending line to be shown, got %q", got)
	}
	// The breakpoint runs before line 2 is parsed, so y is not defined yet.
	if !strings.Contains(got, "x = 7") || strings.Contains(got, `"x + 1"`) {
		t.Errorf("unexpected variable listing %q", got)
	}
}

func TestStep(t *testing.T) {
	var out strings.Builder
	d := New(strings.NewReader("s\ns\nr\n"), &out, WithStep(true))
	runDebugged(t, d, "00\n01\n02\n03")

	got := out.String()
	for _, want := range []string{"dbg.hexp:1> ", "dbg.hexp:2> ", "dbg.hexp:3> "} {
		if !strings.Contains(got, want) {
			t.Errorf("expected a stop at %q, got %q", want, got)
		}
	}
	if strings.Contains(got, "dbg.hexp:4> ") {
		t.Errorf("expected resume to run to the end, got %q", got)
	}
}

func TestCommands(t *testing.T) {
	var out strings.Builder
	script := strings.Join([]string{
		"b 3",
		"break 3",
		"b x",
		"e 2+3*4",
		"= 1/4",
		"eval nope",
		"frobnicate",
		"h",
		"d 3",
		"",
		"r",
	}, "\n") + "\n"
	d := New(strings.NewReader(script), &out, WithStep(true))
	in := runDebugged(t, d, "00\n01\n02")

	got := out.String()
	for _, want := range []string{
		"Added breakpoint before line 3\n",
		`Expected a line number, got "x"`,
		"= 14\n",
		"= 0.25\n",
		`Unknown command: "frobnicate"`,
		"Available commands:",
		"Removed breakpoint before line 3\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got %q", want, got)
		}
	}
	if n := strings.Count(got, "Added breakpoint"); n != 1 {
		t.Errorf("expected duplicate breakpoint to be ignored, got %d", n)
	}
	if d.Breakpoint(3) {
		t.Error("expected breakpoint 3 to be removed")
	}
	if in.Diag().Errors() != 1 {
		t.Errorf("expected the failed eval to be reported once, got %d", in.Diag().Errors())
	}
}

func TestEOFResumes(t *testing.T) {
	var out strings.Builder
	d := New(strings.NewReader("v\n"), &out, WithStep(true))
	in := runDebugged(t, d, "00\n01")

	if strings.Count(out.String(), "debug dbg.hexp:") != 2 {
		t.Errorf("expected a prompt for the command and one for EOF, got %q", out.String())
	}
	if len(in.Program().Bytes) != 2 {
		t.Errorf("expected processing to finish after EOF, got % x", in.Program().Bytes)
	}
}

func TestInterrupt(t *testing.T) {
	var out strings.Builder
	d := New(strings.NewReader("r\n"), &out)
	d.Interrupt()
	runDebugged(t, d, "00\n01")

	got := out.String()
	if strings.Count(got, "debug dbg.hexp:1> ") != 1 {
		t.Errorf("expected one stop at line 1, got %q", got)
	}
	if strings.Contains(got, "dbg.hexp:2> ") {
		t.Errorf("expected interrupt to be cleared after the stop, got %q", got)
	}
}

func TestPromptNotify(t *testing.T) {
	var out strings.Builder
	var calls []bool
	d := New(strings.NewReader("v\nr\n"), &out,
		WithBreakpoints(2),
		WithPromptNotify(func(active bool) { calls = append(calls, active) }),
	)
	runDebugged(t, d, "00\n01\n02")

	if len(calls) != 2 || !calls[0] || calls[1] {
		t.Errorf("expected one active/inactive pair around the stop, got %v", calls)
	}
}

func TestBoldPrompt(t *testing.T) {
	var out strings.Builder
	d := New(strings.NewReader("r\n"), &out, WithStep(true), WithBoldPrompt(true))
	runDebugged(t, d, "00")
	if !strings.Contains(out.String(), "\033[1mdebug dbg.hexp:1> \033[0m") {
		t.Errorf("expected bold prompt, got %q", out.String())
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{14, "14"},
		{-3, "-3"},
		{0.25, "0.25"},
		{1e300, "1e+300"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "+Inf"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.input); got != tt.expected {
			t.Errorf("FormatValue(%v) = %q; expected %q", tt.input, got, tt.expected)
		}
	}
}
