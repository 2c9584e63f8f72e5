// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package bucket

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dynarank/internal/rerank"
)

// Parameter names read from the config.
const (
	ParamDiversityFields     = "diversity_fields"
	ParamDiversityThresholds = "diversity_thresholds"
	ParamIgnoredSuffix       = "_ignored_objects"
	ParamMinBucketThreshold  = "min_bucket_threshold"
	ParamMaxBucketThreshold  = "max_bucket_threshold"
	ParamShuffleSeed         = "shuffle_seed"
	ParamShuffleWeight       = "shuffle_weight"
	ParamShuffleBoostMode    = "shuffle_boost_mode"
	ParamShuffleField        = "shuffle_field"
	ParamBucketFactory       = "bucket_factory"
	ParamMinhashFields       = "minhash_fields"
)

// DefaultBucketFactory is the strategy used when bucket_factory is not set.
const DefaultBucketFactory = "standard"

var boostModes = map[string]bool{
	"multiply": true, "replace": true, "sum": true, "avg": true, "max": true, "min": true,
}

// Field is one diversity field with its comparison settings.
type Field struct {
	Name      string
	Threshold float64
	Ignored   []rerank.Value
	Sketch    bool
}

// Params are the typed engine parameters of one config.
type Params struct {
	Fields             []Field
	MinBucketThreshold int
	MaxBucketThreshold int
	Shuffle            *Shuffle
	BucketFactory      string
}

// Shuffle describes the random_score rewrite used on retry.
type Shuffle struct {
	Seed      string
	Weight    float64
	BoostMode string
	Field     string
}

// ParseParams validates and converts the raw parameter map.
func ParseParams(raw map[string]any) (Params, error) {
	var p Params

	fields, err := stringList(raw[ParamDiversityFields])
	if err != nil {
		return p, fmt.Errorf("%s: %w", ParamDiversityFields, err)
	}
	if fields == nil {
		return p, errors.New("diversity_fields is null")
	}
	thresholds, err := stringList(raw[ParamDiversityThresholds])
	if err != nil {
		return p, fmt.Errorf("%s: %w", ParamDiversityThresholds, err)
	}
	if thresholds == nil {
		return p, errors.New("diversity_thresholds is null")
	}
	if len(thresholds) != len(fields) {
		return p, fmt.Errorf("diversity_thresholds has %d values for %d diversity_fields", len(thresholds), len(fields))
	}

	sketches, err := stringList(raw[ParamMinhashFields])
	if err != nil {
		return p, fmt.Errorf("%s: %w", ParamMinhashFields, err)
	}
	sketchSet := make(map[string]bool, len(sketches))
	for _, s := range sketches {
		sketchSet[s] = true
	}

	p.Fields = make([]Field, len(fields))
	for i, name := range fields {
		t, err := strconv.ParseFloat(strings.TrimSpace(thresholds[i]), 64)
		if err != nil {
			return p, fmt.Errorf("invalid diversity threshold %q for %s", thresholds[i], name)
		}
		ignored, err := valueList(raw[name+ParamIgnoredSuffix])
		if err != nil {
			return p, fmt.Errorf("%s%s: %w", name, ParamIgnoredSuffix, err)
		}
		p.Fields[i] = Field{Name: name, Threshold: t, Ignored: ignored, Sketch: sketchSet[name]}
	}

	if p.MinBucketThreshold, err = intParam(raw, ParamMinBucketThreshold); err != nil {
		return p, err
	}
	if p.MaxBucketThreshold, err = intParam(raw, ParamMaxBucketThreshold); err != nil {
		return p, err
	}

	if seed, ok := raw[ParamShuffleSeed]; ok && seed != nil {
		sh := &Shuffle{Seed: scalarString(seed), Weight: 1}
		if w, ok := raw[ParamShuffleWeight]; ok && w != nil {
			f, err := strconv.ParseFloat(scalarString(w), 64)
			if err != nil {
				return p, fmt.Errorf("invalid value of %s: %v", ParamShuffleWeight, w)
			}
			sh.Weight = f
		}
		if m, ok := raw[ParamShuffleBoostMode]; ok && m != nil {
			sh.BoostMode = strings.ToLower(scalarString(m))
			if !boostModes[sh.BoostMode] {
				return p, fmt.Errorf("invalid value of %s: %v", ParamShuffleBoostMode, m)
			}
		}
		if f, ok := raw[ParamShuffleField]; ok && f != nil {
			sh.Field = scalarString(f)
		}
		p.Shuffle = sh
	}

	p.BucketFactory = DefaultBucketFactory
	if f, ok := raw[ParamBucketFactory]; ok && f != nil {
		p.BucketFactory = scalarString(f)
	}
	return p, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// stringList accepts a list of scalars or a single scalar. nil stays nil.
func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			if e == nil {
				return nil, fmt.Errorf("element %d is null", i)
			}
			out[i] = scalarString(e)
		}
		return out, nil
	case string, float64, int, int64, json.Number:
		return []string{scalarString(t)}, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func valueList(v any) ([]rerank.Value, error) {
	var items []any
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		items = t
	case []string:
		for _, s := range t {
			items = append(items, s)
		}
	default:
		items = []any{t}
	}
	out := make([]rerank.Value, 0, len(items))
	for _, e := range items {
		switch x := e.(type) {
		case string:
			out = append(out, rerank.StringValue(x))
		case float64:
			out = append(out, rerank.NumberValue(x))
		case int:
			out = append(out, rerank.NumberValue(float64(x)))
		case json.Number:
			f, err := x.Float64()
			if err != nil {
				return nil, err
			}
			out = append(out, rerank.NumberValue(f))
		default:
			return nil, fmt.Errorf("unsupported element type %T", e)
		}
	}
	return out, nil
}

func intParam(raw map[string]any, name string) (int, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		return 0, nil
	}
	switch t := v.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("invalid value of %s: %s", name, t)
		}
		return n, nil
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid value of %s: %s", name, t)
		}
		return int(n), nil
	default:
		return 0, nil
	}
}
