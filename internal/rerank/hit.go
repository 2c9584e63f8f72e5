// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package rerank

import (
	"bytes"
	"errors"

	"github.com/tidwall/gjson"
)

// ErrNotArray is returned by ParseHits when the input is not a JSON array.
var ErrNotArray = errors.New("hits is not a JSON array")

// Hit is one element of a search response's hits.hits array.
// It holds the raw bytes as received and is never modified.
type Hit struct {
	raw []byte
}

// NewHit wraps the raw JSON of a single hit.
func NewHit(raw []byte) Hit {
	return Hit{raw: raw}
}

// Raw returns the hit's JSON exactly as received.
func (h Hit) Raw() []byte {
	return h.raw
}

// ID returns the document id, or "" when absent.
func (h Hit) ID() string {
	return gjson.GetBytes(h.raw, "_id").String()
}

// Score returns the hit's _score and whether it was present and numeric.
func (h Hit) Score() (float64, bool) {
	r := gjson.GetBytes(h.raw, "_score")
	if r.Type != gjson.Number {
		return 0, false
	}
	return r.Float(), true
}

// Field returns the value of a document field.
//
// The returned form ("fields.<name>", first element) is preferred over the
// stored document ("_source.<name>"). Only string and number values are
// recognised; anything else, including null, is reported as absent. Field
// names are matched literally, so names containing dots need no escaping.
func (h Hit) Field(name string) (Value, bool) {
	if r, ok := member(gjson.GetBytes(h.raw, "fields"), name); ok {
		if r.IsArray() {
			arr := r.Array()
			if len(arr) > 0 {
				if v, ok := scalar(arr[0]); ok {
					return v, true
				}
			}
		} else if v, ok := scalar(r); ok {
			return v, true
		}
	}
	if r, ok := member(gjson.GetBytes(h.raw, "_source"), name); ok {
		return scalar(r)
	}
	return Value{}, false
}

func member(obj gjson.Result, name string) (gjson.Result, bool) {
	if !obj.IsObject() {
		return gjson.Result{}, false
	}
	var found gjson.Result
	var ok bool
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == name {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}

func scalar(r gjson.Result) (Value, bool) {
	switch r.Type {
	case gjson.String:
		return StringValue(r.String()), true
	case gjson.Number:
		return NumberValue(r.Float()), true
	default:
		return Value{}, false
	}
}

// ParseHits splits a raw hits.hits array into hits.
func ParseHits(raw []byte) ([]Hit, error) {
	arr := gjson.ParseBytes(raw)
	if !arr.IsArray() {
		return nil, ErrNotArray
	}
	hits := make([]Hit, 0, 16)
	arr.ForEach(func(_, v gjson.Result) bool {
		hits = append(hits, NewHit(rawBytes(raw, v)))
		return true
	})
	return hits, nil
}

// rawBytes returns the slice of src backing r, falling back to a copy of r.Raw.
func rawBytes(src []byte, r gjson.Result) []byte {
	if r.Index > 0 && r.Index+len(r.Raw) <= len(src) {
		return src[r.Index : r.Index+len(r.Raw)]
	}
	return []byte(r.Raw)
}

// MarshalHits joins hits back into a JSON array.
func MarshalHits(hits []Hit) []byte {
	var buf bytes.Buffer
	n := 2
	for _, h := range hits {
		n += len(h.raw) + 1
	}
	buf.Grow(n)
	buf.WriteByte('[')
	for i, h := range hits {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(h.raw)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// IDs returns the document ids of hits in order.
func IDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID()
	}
	return ids
}
