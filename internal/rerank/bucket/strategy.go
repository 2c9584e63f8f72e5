// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package bucket

import (
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/dynarank/internal/rerank"
)

// Strategy decides whether a value belongs in a bucket.
type Strategy interface {
	Name() string
	// Normalize prepares a raw field value once per hit and pass.
	// sketch is true for fields declared as MinHash sketches.
	Normalize(v rerank.Value, sketch bool) rerank.Value
	// Matches reports whether v belongs with the bucket representative rep.
	Matches(rep, v rerank.Value, threshold float64) bool
}

// Standard compares values by type: strings by equality, numbers by
// distance, sketches by MinHash similarity. Values of different types never match.
type Standard struct{}

func (Standard) Name() string { return "standard" }

func (Standard) Normalize(v rerank.Value, sketch bool) rerank.Value {
	if sketch && v.Kind() == rerank.KindString {
		if b, ok := DecodeSketch(v.Str()); ok {
			return rerank.BytesValue(b)
		}
	}
	return v
}

func (Standard) Matches(rep, v rerank.Value, threshold float64) bool {
	if rep.Kind() != v.Kind() {
		return false
	}
	switch v.Kind() {
	case rerank.KindString:
		return rep.Str() == v.Str()
	case rerank.KindNumber:
		return math.Abs(v.Num()-rep.Num()) < threshold
	case rerank.KindBytes:
		return Similarity(rep.Bytes(), v.Bytes()) >= threshold
	default:
		return false
	}
}

// Sketch treats every value as a base64 MinHash sketch.
type Sketch struct{}

func (Sketch) Name() string { return "minhash" }

func (Sketch) Normalize(v rerank.Value, _ bool) rerank.Value {
	if v.Kind() == rerank.KindString {
		if b, ok := DecodeSketch(v.Str()); ok {
			return rerank.BytesValue(b)
		}
	}
	return v
}

func (Sketch) Matches(rep, v rerank.Value, threshold float64) bool {
	if rep.Kind() != rerank.KindBytes || v.Kind() != rerank.KindBytes {
		return false
	}
	return Similarity(rep.Bytes(), v.Bytes()) >= threshold
}

var builtinStrategies = map[string]Strategy{
	"standard": Standard{},
	"minhash":  Sketch{},
}

// BuiltinStrategies lists the strategies compiled into the binary.
func BuiltinStrategies() []string {
	names := make([]string, 0, len(builtinStrategies))
	for n := range builtinStrategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Strategies is the set of strategies enabled for this process.
type Strategies struct {
	byName map[string]Strategy
}

// NewStrategies enables the named builtin strategies. No names enables all of them.
func NewStrategies(names ...string) (*Strategies, error) {
	if len(names) == 0 {
		names = BuiltinStrategies()
	}
	s := &Strategies{byName: make(map[string]Strategy, len(names))}
	for _, n := range names {
		st, ok := builtinStrategies[n]
		if !ok {
			return nil, fmt.Errorf("unknown bucket strategy %q (available: %v)", n, BuiltinStrategies())
		}
		s.byName[n] = st
	}
	return s, nil
}

// Get returns an enabled strategy.
func (s *Strategies) Get(name string) (Strategy, bool) {
	st, ok := s.byName[name]
	return st, ok
}
