// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package bucket

import (
	"context"
	"fmt"
	"math"

	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/metrics"
	"github.com/tomtom215/dynarank/internal/models"
	"github.com/tomtom215/dynarank/internal/rerank"
)

// EngineName is the lang of the diversity sort engine.
const EngineName = "dynarank_diversity_sort"

// Engine compiles diversity sort configs.
type Engine struct {
	strategies *Strategies
}

// NewEngine creates the engine with the enabled bucket strategies.
func NewEngine(strategies *Strategies) *Engine {
	return &Engine{strategies: strategies}
}

// Name returns EngineName.
func (e *Engine) Name() string {
	return EngineName
}

// Compile parses the config parameters and binds the bucket strategy.
func (e *Engine) Compile(cfg *models.RerankConfig) (rerank.Program, error) {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return nil, err
	}
	strategy, ok := e.strategies.Get(params.BucketFactory)
	if !ok {
		return nil, fmt.Errorf("bucket_factory is invalid: %s", params.BucketFactory)
	}
	return &Program{params: params, strategy: strategy}, nil
}

// Program is a compiled diversity sort.
type Program struct {
	params   Params
	strategy Strategy
}

// NewProgram builds a program directly from typed params.
func NewProgram(params Params, strategy Strategy) *Program {
	return &Program{params: params, strategy: strategy}
}

type bucket struct {
	rep       rerank.Value
	threshold float64
	hits      []rerank.Hit
}

// Reorder groups and interleaves hits field by field, last field first.
func (p *Program) Reorder(ctx context.Context, hits []rerank.Hit) (rerank.Outcome, error) {
	if len(p.params.Fields) == 0 || len(hits) == 0 {
		return rerank.Reordered(hits), nil
	}

	logger := logging.Ctx(ctx)
	current := hits
	maxBuckets, minBuckets := 0, math.MaxInt

	for i := len(p.params.Fields) - 1; i >= 0; i-- {
		field := p.params.Fields[i]
		buckets, ok := p.group(current, field)
		if !ok {
			logger.Debug().Str("field", field.Name).Msg("diversity field missing on a hit, reranking skipped")
			return rerank.Reordered(hits), nil
		}

		n := len(buckets)
		if n > maxBuckets {
			maxBuckets = n
		}
		if n < minBuckets {
			minBuckets = n
		}
		metrics.DiversityBuckets.Observe(float64(n))
		logger.Debug().Str("field", field.Name).Int("hits", len(current)).Int("buckets", n).Msg("diversity pass")

		groups := make([][]rerank.Hit, n)
		for j, b := range buckets {
			groups[j] = b.hits
		}
		current = RoundRobin(groups)
	}

	if p.needsShuffle(minBuckets, maxBuckets) {
		logger.Debug().
			Int("min_buckets", minBuckets).
			Int("max_buckets", maxBuckets).
			Str("seed", p.params.Shuffle.Seed).
			Msg("bucket distribution below threshold, requesting shuffled retry")
		return rerank.RetryRequested(p.params.Shuffle.Rewrite), nil
	}
	return rerank.Reordered(current), nil
}

// group assigns every hit to a bucket. It reports false when a hit lacks the field.
func (p *Program) group(hits []rerank.Hit, field Field) ([]*bucket, bool) {
	var buckets []*bucket
	for _, h := range hits {
		raw, ok := h.Field(field.Name)
		if !ok {
			return nil, false
		}

		if isIgnored(field.Ignored, raw) {
			buckets = append(buckets, &bucket{rep: raw, threshold: field.Threshold, hits: []rerank.Hit{h}})
			continue
		}

		v := p.strategy.Normalize(raw, field.Sketch)
		placed := false
		for _, b := range buckets {
			if p.strategy.Matches(b.rep, v, b.threshold) {
				b.hits = append(b.hits, h)
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, &bucket{rep: v, threshold: field.Threshold, hits: []rerank.Hit{h}})
		}
	}
	return buckets, true
}

func isIgnored(ignored []rerank.Value, v rerank.Value) bool {
	for _, ig := range ignored {
		if ig.Equal(v) || (ig.Kind() == rerank.KindString && v.Kind() != rerank.KindBytes && ig.Str() == v.String()) {
			return true
		}
	}
	return false
}

func (p *Program) needsShuffle(minBuckets, maxBuckets int) bool {
	if p.params.Shuffle == nil {
		return false
	}
	minT, maxT := p.params.MinBucketThreshold, p.params.MaxBucketThreshold
	return (minT > 0 && minT >= minBuckets) || (maxT > 0 && maxT >= maxBuckets)
}

// RoundRobin merges groups by taking one hit from each non-exhausted group
// in group order until all groups are drained.
func RoundRobin(groups [][]rerank.Hit) []rerank.Hit {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	out := make([]rerank.Hit, 0, total)
	for depth := 0; len(out) < total; depth++ {
		for _, g := range groups {
			if depth < len(g) {
				out = append(out, g[depth])
			}
		}
	}
	return out
}
