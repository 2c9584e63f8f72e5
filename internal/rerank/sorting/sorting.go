// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

// Package sorting implements a reorder engine that re-sorts the window by a numeric field.
package sorting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/dynarank/internal/models"
	"github.com/tomtom215/dynarank/internal/rerank"
)

// EngineName is the lang of the field sort engine.
const EngineName = "dynarank_field_sort"

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Engine compiles field sort configs. Params: field (required), order (asc|desc, default desc).
type Engine struct{}

// NewEngine creates the engine.
func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Name() string { return EngineName }

func (e *Engine) Compile(cfg *models.RerankConfig) (rerank.Program, error) {
	fieldParam, _ := cfg.Param("field")
	field, _ := fieldParam.(string)
	if field == "" {
		return nil, errors.New("field is required")
	}

	order := OrderDesc
	if o, ok := cfg.Param("order"); ok && o != nil {
		s, _ := o.(string)
		order = strings.ToLower(s)
	}
	if order != OrderAsc && order != OrderDesc {
		return nil, fmt.Errorf("order must be %s or %s", OrderAsc, OrderDesc)
	}
	return &program{field: field, desc: order == OrderDesc}, nil
}

type program struct {
	field string
	desc  bool
}

type keyed struct {
	hit rerank.Hit
	key float64
	ok  bool
}

// Reorder sorts stably by the field. Hits without a numeric value keep their
// relative order after the hits that have one.
func (p *program) Reorder(_ context.Context, hits []rerank.Hit) (rerank.Outcome, error) {
	items := make([]keyed, len(hits))
	for i, h := range hits {
		v, ok := h.Field(p.field)
		items[i] = keyed{hit: h, key: v.Num(), ok: ok && v.Kind() == rerank.KindNumber}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		if p.desc {
			return a.key > b.key
		}
		return a.key < b.key
	})

	out := make([]rerank.Hit, len(items))
	for i, it := range items {
		out[i] = it.hit
	}
	return rerank.Reordered(out), nil
}
