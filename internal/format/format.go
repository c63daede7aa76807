// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package format turns bracketed formatter specs into byte-serialization
// recipes and renders evaluated values with them.
package format

import (
	"math"
	"strconv"
	"strings"

	"nickandperla.net/hexproc/internal/diag"
	"nickandperla.net/hexproc/internal/scanner"
)

// MaxWidth is the widest value a formatter can emit, in bytes.
const MaxWidth = 8

// DefaultWidth is used when a spec names neither a width nor a type.
const DefaultWidth = 1

// Datatype selects how a value is converted to a bit pattern.
type Datatype int

const (
	Integer Datatype = iota
	Float32
	Float64
)

// String returns the canonical type name.
func (d Datatype) String() string {
	switch d {
	case Integer:
		return "int"
	case Float32:
		return "float"
	case Float64:
		return "double"
	}
	return "unknown"
}

// Endian is a byte order.
type Endian int

const (
	Big Endian = iota
	Little
)

// String returns the byte order as written in a formatter.
func (e Endian) String() string {
	if e == Little {
		return "LE"
	}
	return "BE"
}

// EndianFromValue maps a numeric label value to a byte order: 0 is little
// endian, anything else big endian.
func EndianFromValue(v float64) Endian {
	if v == 0 {
		return Little
	}
	return Big
}

type typeInfo struct {
	datatype Datatype
	width    int
}

var types = map[string]typeInfo{
	"byte":           {Integer, 1},
	"int8":           {Integer, 1},
	"char":           {Integer, 1},
	"short":          {Integer, 2},
	"int16":          {Integer, 2},
	"int":            {Integer, 4},
	"int32":          {Integer, 4},
	"long":           {Integer, 8},
	"int64":          {Integer, 8},
	"float":          {Float32, 4},
	"ieee754_single": {Float32, 4},
	"double":         {Float64, 8},
	"ieee754_double": {Float64, 8},
}

// Formatter is a delayed expression together with the recipe for
// serializing its value.
type Formatter struct {
	Datatype Datatype
	Width    int
	Endian   Endian
	Expr     string

	// Where the formatter was written, for diagnostics in the output pass.
	File string
	Line int
}

// Parse builds a Formatter from the attribute list inside the brackets
// and the expression it applies to. Problems are reported to r and
// replaced by fallbacks, so the result is always usable. defaultEndian is
// only called when spec names no byte order; nil means big endian.
func Parse(spec, expr string, defaultEndian func() Endian, r diag.Reporter) Formatter {
	f := Formatter{Datatype: Integer, Expr: expr}
	f.File, f.Line = r.Position()
	endianSet := false

	width := 0
	natural := DefaultWidth
	for _, attr := range strings.Split(spec, ",") {
		attr = strings.TrimSpace(attr)
		switch {
		case attr == "":
		case isNumber(attr):
			n, err := strconv.Atoi(attr)
			if err != nil || n > MaxWidth {
				r.Reportf("Number of bytes (%s) can't be more than %d", attr, MaxWidth)
				n = MaxWidth
			}
			if n == 0 {
				r.Reportf("Number of bytes can't be zero")
			}
			width = n
		case attr == "LE":
			f.Endian, endianSet = Little, true
		case attr == "BE":
			f.Endian, endianSet = Big, true
		default:
			info, ok := types[attr]
			if !ok {
				r.Reportf("Unknown data type \"%s\"", attr)
				info = types["int"]
			}
			f.Datatype = info.datatype
			natural = info.width
		}
	}
	if width == 0 {
		width = natural
	}
	f.Width = width
	if !endianSet && defaultEndian != nil {
		f.Endian = defaultEndian()
	}
	return f
}

func isNumber(s string) bool {
	for i := 0; i < len(s); i++ {
		if !scanner.IsDigit(s[i]) {
			return false
		}
	}
	return len(s) > 0
}

// Spec returns the attribute list that reproduces f.
func (f Formatter) Spec() string {
	return strconv.Itoa(f.Width) + "," + f.Datatype.String() + "," + f.Endian.String()
}

// String returns the formatter in source form.
func (f Formatter) String() string {
	return "[" + f.Spec() + "](" + f.Expr + ")"
}

// Bits converts v to the 64-bit pattern the formatter serializes.
func (f Formatter) Bits(v float64, r diag.Reporter) uint64 {
	switch f.Datatype {
	case Float32:
		return uint64(math.Float32bits(float32(v)))
	case Float64:
		return math.Float64bits(v)
	}

	switch {
	case math.IsNaN(v):
		r.Reportf("%v cannot be converted to an integer", v)
		return 0
	case math.IsInf(v, 1):
		r.Reportf("%v cannot be converted to an integer", v)
		return math.MaxUint64
	case math.IsInf(v, -1):
		r.Reportf("%v cannot be converted to an integer", v)
		return 1 << 63
	case v >= 1<<64:
		return math.MaxUint64
	case v >= 1<<63:
		return uint64(v)
	case v < -(1 << 63):
		return 1 << 63
	}
	return uint64(int64(v))
}

// Render serializes v into exactly f.Width bytes. A width narrower than
// the bit pattern keeps its low-order bytes.
func (f Formatter) Render(v float64, r diag.Reporter) []byte {
	bits := f.Bits(v, r)
	out := make([]byte, f.Width)
	if f.Endian == Big {
		shift := uint(f.Width * 8)
		for i := range out {
			shift -= 8
			out[i] = byte(bits >> shift)
		}
		return out
	}
	for i := range out {
		out[i] = byte(bits >> uint(i*8))
	}
	return out
}
