// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"nickandperla.net/hexproc/internal/label"
)

const (
	kindConstant   = 1
	kindExpression = 2
)

// record is the stored form of a binding.
type record struct {
	Kind  int     `cbor:"1,keyasint"`
	Value float64 `cbor:"2,keyasint,omitempty"`
	Text  string  `cbor:"3,keyasint,omitempty"`
}

// Canonical encoding makes equal bindings encode to equal bytes.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Encode serializes a binding to CBOR.
func Encode(b label.Binding) ([]byte, error) {
	var r record
	switch b := b.(type) {
	case label.Constant:
		r = record{Kind: kindConstant, Value: b.Value}
	case label.Expression:
		r = record{Kind: kindExpression, Text: b.Text}
	default:
		return nil, fmt.Errorf("store: cannot encode binding %T", b)
	}
	return encMode.Marshal(r)
}

// Decode deserializes a binding from CBOR.
func Decode(data []byte) (label.Binding, error) {
	var r record
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("store: unmarshal binding: %w", err)
	}
	switch r.Kind {
	case kindConstant:
		return label.Constant{Value: r.Value}, nil
	case kindExpression:
		return label.Expression{Text: r.Text}, nil
	}
	return nil, fmt.Errorf("store: unknown binding kind %d", r.Kind)
}
