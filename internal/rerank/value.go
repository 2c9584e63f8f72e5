// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package rerank

import (
	"bytes"
	"strconv"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindString
	KindNumber
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBytes:
		return "bytes"
	default:
		return "none"
	}
}

// Value is a field value extracted from a hit.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    []byte
}

func StringValue(s string) Value { return Value{kind: KindString, s: s} }
func NumberValue(n float64) Value { return Value{kind: KindNumber, n: n} }
func BytesValue(b []byte) Value { return Value{kind: KindBytes, b: b} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) Str() string { return v.s }
func (v Value) Num() float64 { return v.n }
func (v Value) Bytes() []byte { return v.b }
func (v Value) IsZero() bool { return v.kind == KindNone }

// String renders the value the way it is matched against ignore lists.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBytes:
		return string(v.b)
	default:
		return ""
	}
}

// Equal reports exact equality of kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n
	case KindBytes:
		return bytes.Equal(v.b, o.b)
	default:
		return true
	}
}
