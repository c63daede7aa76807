// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package format

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"nickandperla.net/hexproc/internal/diag"
)

func newSink() (*diag.Sink, *strings.Builder) {
	var errs strings.Builder
	sink := diag.New(&errs)
	sink.SetPosition("fmt.hexp", 7)
	return sink, &errs
}

func fixed(e Endian) func() Endian {
	return func() Endian { return e }
}

func TestParse(t *testing.T) {
	tests := []struct {
		spec     string
		datatype Datatype
		width    int
		endian   Endian
	}{
		{"", Integer, 1, Big},
		{"4", Integer, 4, Big},
		{"int", Integer, 4, Big},
		{"4,int,LE", Integer, 4, Little},
		{"LE, int, 4", Integer, 4, Little},
		{" 2 , short ", Integer, 2, Big},
		{"long", Integer, 8, Big},
		{"int64,LE", Integer, 8, Little},
		{"byte", Integer, 1, Big},
		{"char", Integer, 1, Big},
		{"float", Float32, 4, Big},
		{"ieee754_single", Float32, 4, Big},
		{"double,LE", Float64, 8, Little},
		{"3,long", Integer, 3, Big},
		{"BE", Integer, 1, Big},
	}

	for _, tt := range tests {
		sink, errs := newSink()
		f := Parse(tt.spec, "x", nil, sink)
		if f.Datatype != tt.datatype || f.Width != tt.width || f.Endian != tt.endian {
			t.Errorf("%q: expected %v/%d/%v, got %v/%d/%v",
				tt.spec, tt.datatype, tt.width, tt.endian, f.Datatype, f.Width, f.Endian)
		}
		if errs.Len() != 0 {
			t.Errorf("%q: unexpected diagnostics:\n%s", tt.spec, errs.String())
		}
	}
}

func TestParseDefaultEndian(t *testing.T) {
	calls := 0
	resolve := func() Endian {
		calls++
		return Little
	}

	tests := []struct {
		spec   string
		endian Endian
		calls  int
	}{
		{"4,int", Little, 1},
		{"4,int,BE", Big, 0},
		{"LE,short", Little, 0},
	}
	for _, tt := range tests {
		calls = 0
		sink, _ := newSink()
		f := Parse(tt.spec, "x", resolve, sink)
		if f.Endian != tt.endian || calls != tt.calls {
			t.Errorf("%q: expected %v after %d lookups, got %v after %d",
				tt.spec, tt.endian, tt.calls, f.Endian, calls)
		}
	}
}

func TestParseRecordsPosition(t *testing.T) {
	sink, _ := newSink()
	f := Parse("4", "len", fixed(Little), sink)
	if f.File != "fmt.hexp" || f.Line != 7 {
		t.Errorf("expected fmt.hexp:7, got %s:%d", f.File, f.Line)
	}
	if f.Expr != "len" {
		t.Errorf("expected expr 'len', got '%s'", f.Expr)
	}
	if f.Endian != Little {
		t.Errorf("expected default endian to apply, got %v", f.Endian)
	}
}

func TestParseFallbacks(t *testing.T) {
	tests := []struct {
		spec    string
		width   int
		message string
	}{
		{"9", 8, "can't be more than 8"},
		{"99999999999999999999", 8, "can't be more than 8"},
		{"0", 1, "can't be zero"},
		{"0,short", 2, "can't be zero"},
		{"quad", 4, `Unknown data type "quad"`},
	}

	for _, tt := range tests {
		sink, errs := newSink()
		f := Parse(tt.spec, "x", nil, sink)
		if f.Width != tt.width {
			t.Errorf("%q: expected width %d, got %d", tt.spec, tt.width, f.Width)
		}
		if f.Datatype != Integer {
			t.Errorf("%q: expected integer fallback, got %v", tt.spec, f.Datatype)
		}
		if !strings.Contains(errs.String(), tt.message) {
			t.Errorf("%q: expected %q reported, got:\n%s", tt.spec, tt.message, errs.String())
		}
		if !strings.HasPrefix(errs.String(), "fmt.hexp:7  ") {
			t.Errorf("%q: expected position prefix, got:\n%s", tt.spec, errs.String())
		}
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		spec     string
		value    float64
		expected []byte
	}{
		{"4,int,LE", 16909060, []byte{0x04, 0x03, 0x02, 0x01}},
		{"4,int,BE", 16909060, []byte{0x01, 0x02, 0x03, 0x04}},
		{"1", 0x1FF, []byte{0xff}},
		{"3,LE", 0x1122334455, []byte{0x55, 0x44, 0x33}},
		{"3,BE", 0x1122334455, []byte{0x33, 0x44, 0x55}},
		{"2", -1, []byte{0xff, 0xff}},
		{"short,LE", -2, []byte{0xfe, 0xff}},
		{"long", -(1 << 63), []byte{0x80, 0, 0, 0, 0, 0, 0, 0}},
		{"long", -1e30, []byte{0x80, 0, 0, 0, 0, 0, 0, 0}},
		{"long", 1 << 63, []byte{0x80, 0, 0, 0, 0, 0, 0, 0}},
		{"long", 1e30, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{"int", 3.99, []byte{0, 0, 0, 3}},
		{"float", 1, []byte{0x3f, 0x80, 0x00, 0x00}},
		{"float,LE", 1, []byte{0x00, 0x00, 0x80, 0x3f}},
		{"double", -2, []byte{0xc0, 0, 0, 0, 0, 0, 0, 0}},
		{"2,double", 1, []byte{0, 0}},
	}

	for _, tt := range tests {
		sink, errs := newSink()
		f := Parse(tt.spec, "", nil, sink)
		got := f.Render(tt.value, sink)
		if !bytes.Equal(got, tt.expected) {
			t.Errorf("%q(%v): expected % x, got % x", tt.spec, tt.value, tt.expected, got)
		}
		if len(got) != f.Width {
			t.Errorf("%q: rendered %d bytes for width %d", tt.spec, len(got), f.Width)
		}
		if errs.Len() != 0 {
			t.Errorf("%q(%v): unexpected diagnostics:\n%s", tt.spec, tt.value, errs.String())
		}
	}
}

func TestRenderNonFinite(t *testing.T) {
	tests := []struct {
		value    float64
		expected []byte
	}{
		{math.NaN(), []byte{0, 0}},
		{math.Inf(1), []byte{0xff, 0xff}},
		{math.Inf(-1), []byte{0x80, 0}},
	}

	for _, tt := range tests {
		sink, errs := newSink()
		f := Formatter{Datatype: Integer, Width: 8, Endian: Big}
		got := f.Render(tt.value, sink)[:2]
		if !bytes.Equal(got, tt.expected) {
			t.Errorf("%v: expected % x, got % x", tt.value, tt.expected, got)
		}
		if !strings.Contains(errs.String(), "cannot be converted to an integer") {
			t.Errorf("%v: expected conversion diagnostic, got:\n%s", tt.value, errs.String())
		}
	}

	// Float formatters carry non-finite values through their bit pattern.
	sink, errs := newSink()
	f := Formatter{Datatype: Float64, Width: 8, Endian: Big}
	if got := f.Render(math.Inf(1), sink); got[0] != 0x7f || got[1] != 0xf0 {
		t.Errorf("expected +Inf double pattern, got % x", got)
	}
	if errs.Len() != 0 {
		t.Errorf("unexpected diagnostics:\n%s", errs.String())
	}
}

func TestFormatterString(t *testing.T) {
	sink, _ := newSink()
	f := Parse("LE,short", "a+b", nil, sink)
	if got := f.String(); got != "[2,int,LE](a+b)" {
		t.Errorf("expected '[2,int,LE](a+b)', got '%s'", got)
	}
}

func TestEndianFromValue(t *testing.T) {
	if EndianFromValue(0) != Little {
		t.Error("expected 0 to select little endian")
	}
	if EndianFromValue(1) != Big || EndianFromValue(-3) != Big {
		t.Error("expected nonzero to select big endian")
	}
}

func TestQueue(t *testing.T) {
	q := NewQueue()
	q.Push(Formatter{Expr: "a"})
	q.Push(Formatter{Expr: "b"})

	if q.Len() != 2 || q.Pending() != 2 {
		t.Fatalf("expected 2/2, got %d/%d", q.Len(), q.Pending())
	}
	for _, want := range []string{"a", "b"} {
		f, ok := q.Take()
		if !ok || f.Expr != want {
			t.Fatalf("expected %q, got %q (ok=%v)", want, f.Expr, ok)
		}
	}
	if _, ok := q.Take(); ok {
		t.Error("expected underflow")
	}
	if q.Pending() != 0 || q.Len() != 2 {
		t.Errorf("expected 2/0 after draining, got %d/%d", q.Len(), q.Pending())
	}

	replay := NewQueue(q.Formatters()...)
	if f, ok := replay.Take(); !ok || f.Expr != "a" {
		t.Errorf("expected replayed queue to start at 'a', got %q", f.Expr)
	}
}
