// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package interp

import (
	"bytes"
	"strings"
	"testing"

	"nickandperla.net/hexproc/internal/diag"
	"nickandperla.net/hexproc/internal/format"
	"nickandperla.net/hexproc/internal/label"
	"nickandperla.net/hexproc/internal/sourcemap"
)

func newTestInterpreter(opts ...Option) (*Interpreter, *strings.Builder) {
	var errs strings.Builder
	sink := diag.New(&errs)
	sink.SetPosition("test.hexp", 1)
	return New(append([]Option{WithDiag(sink)}, opts...)...), &errs
}

func run(t *testing.T, in *Interpreter, src string) {
	t.Helper()
	if err := in.Run(strings.NewReader(src)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestLiteralOctetsIgnoreWhitespace(t *testing.T) {
	expected := []byte{0x00, 0x01, 0xff, 0xab}
	for _, src := range []string{
		"00 01 ff ab",
		"0001ffab",
		"  00\t01   FF Ab  ",
		"00;01 ; ff;ab",
	} {
		in, errs := newTestInterpreter()
		run(t, in, src)
		if got := in.Program().Bytes; !bytes.Equal(got, expected) {
			t.Errorf("%q: expected % x, got % x", src, expected, got)
		}
		if in.Offset() != uint64(len(expected)) {
			t.Errorf("%q: expected offset %d, got %d", src, len(expected), in.Offset())
		}
		if errs.Len() != 0 {
			t.Errorf("%q: unexpected diagnostics:\n%s", src, errs.String())
		}
	}
}

func TestSourceMap(t *testing.T) {
	in, errs := newTestInterpreter()
	run(t, in, `"ab" [2](x) 00`+"\n01")

	p := in.Program()
	if !bytes.Equal(p.Bytes, []byte{'a', 'b', 0x00, 0x01}) {
		t.Errorf("unexpected bytes: % x", p.Bytes)
	}
	expected := []sourcemap.Entry{
		{Offset: 0, Action: sourcemap.StringStart},
		{Offset: 2, Action: sourcemap.SpanEnd},
		{Offset: 2, Action: sourcemap.FormatterStart},
		{Offset: 4, Action: sourcemap.SpanEnd},
		{Offset: 5, Action: sourcemap.LineBreak},
		{Offset: 6, Action: sourcemap.LineBreak},
	}
	if len(p.Map) != len(expected) {
		t.Fatalf("expected %d map entries, got %d: %+v", len(expected), len(p.Map), p.Map)
	}
	for i := range expected {
		if p.Map[i] != expected[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, expected[i], p.Map[i])
		}
	}
	if len(p.Formatters) != 1 || p.Formatters[0].Width != 2 || p.Formatters[0].Expr != "x" {
		t.Errorf("unexpected formatters: %+v", p.Formatters)
	}
	if errs.Len() != 0 {
		t.Errorf("unexpected diagnostics:\n%s", errs.String())
	}
}

func TestAssignments(t *testing.T) {
	in, errs := newTestInterpreter()
	run(t, in, "start: 00 01 here: ; x := here * 2; y = x + 1\n[4]y")

	labels := in.Labels()
	checkConstant(t, labels, "start", 0)
	checkConstant(t, labels, "here", 2)
	checkConstant(t, labels, "x", 4)

	b, ok := labels.Lookup("y")
	if !ok {
		t.Fatal("expected y to be defined")
	}
	if e, ok := b.(label.Expression); !ok || e.Text != "x + 1" {
		t.Errorf("expected lazy 'x + 1', got %#v", b)
	}
	if p := in.Program(); len(p.Formatters) != 1 || p.Formatters[0].Expr != "y" {
		t.Errorf("expected [4]y formatter, got %+v", p.Formatters)
	}
	if errs.Len() != 0 {
		t.Errorf("unexpected diagnostics:\n%s", errs.String())
	}
}

func checkConstant(t *testing.T, labels *label.Table, name string, want float64) {
	t.Helper()
	b, ok := labels.Lookup(name)
	if !ok {
		t.Errorf("expected %s to be defined", name)
		return
	}
	if c, ok := b.(label.Constant); !ok || c.Value != want {
		t.Errorf("expected %s = %v, got %#v", name, want, b)
	}
}

func TestComments(t *testing.T) {
	in, errs := newTestInterpreter()
	run(t, in, "00 // 01\n02 /* 03\n04 */ 05 /* 06 */ 07\n# plain comment\n08")

	expected := []byte{0x00, 0x02, 0x05, 0x07, 0x08}
	if got := in.Program().Bytes; !bytes.Equal(got, expected) {
		t.Errorf("expected % x, got % x", expected, got)
	}

	breaks := 0
	for _, e := range in.Program().Map {
		if e.Action == sourcemap.LineBreak {
			breaks++
		}
	}
	if breaks != 5 {
		t.Errorf("expected one line break per input line, got %d", breaks)
	}
	if errs.Len() != 0 {
		t.Errorf("unexpected diagnostics:\n%s", errs.String())
	}
}

func TestUnterminatedComment(t *testing.T) {
	in, errs := newTestInterpreter()
	run(t, in, "01 /* never\nclosed\n")
	if got := in.Program().Bytes; !bytes.Equal(got, []byte{0x01}) {
		t.Errorf("expected only 01, got % x", got)
	}
	if errs.String() != "test.hexp:1  Unterminated block comment\n" {
		t.Errorf("expected the comment to be reported where it opened, got %q", errs.String())
	}
}

func TestCommentDoesNotLeakFromLoad(t *testing.T) {
	in, errs := newTestInterpreter()
	in.Diag().SetPosition("defs.hexp", 1)
	if err := in.Load(strings.NewReader("x := 1\n; /* opened")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	in.Diag().SetPosition("test.hexp", 1)
	run(t, in, "01 02\n03\n")

	if got := in.Program().Bytes; !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("expected the program after the definitions to survive, got % x", got)
	}
	if errs.String() != "defs.hexp:2  Unterminated block comment\n" {
		t.Errorf("unexpected diagnostics %q", errs.String())
	}
}

func TestExplicitEndianSkipsDefault(t *testing.T) {
	in, errs := newTestInterpreter()
	run(t, in, "hexproc.endian = nope\n[2,LE](1) [2,BE](1)")
	if errs.Len() != 0 {
		t.Errorf("expected no lookup of %s, got:\n%s", EndianLabel, errs.String())
	}

	run(t, in, "[2](1)")
	if !strings.Contains(errs.String(), "nope") {
		t.Errorf("expected the default lookup to report, got %q", errs.String())
	}
	if fs := in.Program().Formatters; fs[2].Endian != format.Big {
		t.Errorf("expected a failed lookup to fall back to BE, got %v", fs[2].Endian)
	}
}

func TestLineMarker(t *testing.T) {
	in, errs := newTestInterpreter()
	run(t, in, "00\n#10 \"other.hexp\"\n01\nzz")

	if !strings.HasPrefix(errs.String(), "other.hexp:11  ") {
		t.Errorf("expected error at other.hexp:11, got:\n%s", errs.String())
	}
	if file, line := in.Diag().Position(); file != "other.hexp" || line != 12 {
		t.Errorf("expected final position other.hexp:12, got %s:%d", file, line)
	}
}

func TestScanErrorAbortsLine(t *testing.T) {
	in, errs := newTestInterpreter()
	run(t, in, "00 0g 01\n02 [2] 03\n04")

	expected := []byte{0x00, 0x02, 0x04}
	if got := in.Program().Bytes; !bytes.Equal(got, expected) {
		t.Errorf("expected % x, got % x", expected, got)
	}
	out := errs.String()
	if !strings.Contains(out, "test.hexp:1  bad octet") {
		t.Errorf("expected bad octet on line 1, got:\n%s", out)
	}
	if !strings.Contains(out, "test.hexp:2  formatter [2]") {
		t.Errorf("expected formatter error on line 2, got:\n%s", out)
	}
	if n := len(in.Program().Formatters); n != 0 {
		t.Errorf("expected no formatters, got %d", n)
	}
}

func TestUnterminatedString(t *testing.T) {
	in, errs := newTestInterpreter()
	run(t, in, `"abc`)

	if got := in.Program().Bytes; string(got) != "abc" {
		t.Errorf("expected best-effort 'abc', got %q", got)
	}
	if !strings.Contains(errs.String(), "unterminated") {
		t.Errorf("expected unterminated diagnostic, got:\n%s", errs.String())
	}
}

func TestImmediateFailure(t *testing.T) {
	in, errs := newTestInterpreter()
	run(t, in, "x := nope; 00\n01")

	if in.Labels().Has("x") {
		t.Error("expected failed assignment to leave x unbound")
	}
	if got := in.Program().Bytes; !bytes.Equal(got, []byte{0x01}) {
		t.Errorf("expected rest of line aborted, got % x", got)
	}
	if n := strings.Count(errs.String(), "\n"); n != 1 {
		t.Errorf("expected exactly one diagnostic, got:\n%s", errs.String())
	}
}

func TestDefaultEndian(t *testing.T) {
	in, _ := newTestInterpreter()
	run(t, in, "[4](1)\nhexproc.endian := 0\n[4](1) [4,BE](1)\nhexproc.endian := 1\n[4](1)")

	fs := in.Program().Formatters
	expected := []format.Endian{format.Big, format.Little, format.Big, format.Big}
	if len(fs) != len(expected) {
		t.Fatalf("expected %d formatters, got %d", len(expected), len(fs))
	}
	for i, want := range expected {
		if fs[i].Endian != want {
			t.Errorf("formatter %d: expected %v, got %v", i, want, fs[i].Endian)
		}
	}
}

func TestFormatterPosition(t *testing.T) {
	in, _ := newTestInterpreter()
	run(t, in, "00\n\n[2](a)")

	fs := in.Program().Formatters
	if len(fs) != 1 || fs[0].File != "test.hexp" || fs[0].Line != 3 {
		t.Errorf("expected formatter at test.hexp:3, got %+v", fs)
	}
}

func TestLoad(t *testing.T) {
	in, errs := newTestInterpreter()
	err := in.Load(strings.NewReader("a := 1\n00 01\n[4](a)\n\"str\"\nb:\nc = a + 1"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	p := in.Program()
	if len(p.Bytes) != 0 || len(p.Map) != 0 || len(p.Formatters) != 0 {
		t.Errorf("expected nothing emitted, got %+v", p)
	}
	checkConstant(t, in.Labels(), "a", 1)
	checkConstant(t, in.Labels(), "b", 0)
	if !in.Labels().Has("c") {
		t.Error("expected c to be defined")
	}
	if errs.Len() != 0 {
		t.Errorf("unexpected diagnostics:\n%s", errs.String())
	}

	// Normal processing resumes afterwards.
	run(t, in, "00")
	if len(in.Program().Bytes) != 1 {
		t.Error("expected Run after Load to emit bytes")
	}
}

type recordingHook struct {
	lines []string
	pos   []int
}

func (h *recordingHook) BeforeLine(in *Interpreter, line string) {
	_, n := in.Diag().Position()
	h.lines = append(h.lines, line)
	h.pos = append(h.pos, n)
}

func TestHook(t *testing.T) {
	hook := &recordingHook{}
	in, _ := newTestInterpreter(WithHook(hook))

	if err := in.Load(strings.NewReader("a := 1")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(hook.lines) != 0 {
		t.Fatalf("expected hook to stay quiet during Load, got %q", hook.lines)
	}

	in.Diag().SetPosition("test.hexp", 1)
	run(t, in, "00\r\n01\n")
	if len(hook.lines) != 2 || hook.lines[0] != "00" || hook.lines[1] != "01" {
		t.Errorf("expected hook to see each line, got %q", hook.lines)
	}
	if len(hook.pos) != 2 || hook.pos[0] != 1 || hook.pos[1] != 2 {
		t.Errorf("expected hook to run before each line, got positions %v", hook.pos)
	}
}
