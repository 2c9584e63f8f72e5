// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package rerank

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tomtom215/dynarank/internal/models"
)

// ErrInvalidConfig marks configs that cannot be compiled into a plan.
// Requests against such an index fail instead of passing through.
var ErrInvalidConfig = errors.New("invalid rerank config")

// Engine compiles configs into reorder programs.
type Engine interface {
	// Name is the lang (or script id) the engine answers to.
	Name() string
	// Compile validates cfg and builds an immutable program.
	Compile(cfg *models.RerankConfig) (Program, error)
}

// Program reorders a window of hits.
// Implementations must not modify the input slice.
type Program interface {
	Reorder(ctx context.Context, hits []Hit) (Outcome, error)
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(ctx context.Context, hits []Hit) (Outcome, error)

// Reorder calls f.
func (f ProgramFunc) Reorder(ctx context.Context, hits []Hit) (Outcome, error) {
	return f(ctx, hits)
}

// Plan is a compiled config ready to serve requests.
type Plan struct {
	Config  *models.RerankConfig
	Engine  string
	program Program
}

// NewPlan binds a config to its compiled program.
func NewPlan(cfg *models.RerankConfig, engine string, program Program) *Plan {
	return &Plan{Config: cfg, Engine: engine, program: program}
}

// ReorderSize returns the window size of the plan.
func (p *Plan) ReorderSize() int {
	return p.Config.ReorderSize
}

// Reorder runs the program over hits. The first KeepTopN hits are never
// passed to the program and stay in front of the result.
func (p *Plan) Reorder(ctx context.Context, hits []Hit) (Outcome, error) {
	keep := p.Config.KeepTopN
	if keep <= 0 {
		return p.program.Reorder(ctx, hits)
	}
	if keep >= len(hits) {
		return Reordered(hits), nil
	}

	out, err := p.program.Reorder(ctx, hits[keep:])
	if err != nil || out.Retry() {
		return out, err
	}

	merged := make([]Hit, 0, len(hits))
	merged = append(merged, hits[:keep]...)
	merged = append(merged, out.Hits()...)
	return Reordered(merged), nil
}

// Registry maps engine names to engines. It is built once at startup.
type Registry struct {
	engines map[string]Engine
}

// NewRegistry builds a registry. Later engines with a duplicate name replace earlier ones.
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.Name()] = e
	}
	return r
}

// Names returns the registered engine names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for n := range r.engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup finds the engine for cfg by lang, then by script id.
func (r *Registry) Lookup(cfg *models.RerankConfig) (Engine, error) {
	if e, ok := r.engines[cfg.Lang]; ok {
		return e, nil
	}
	if e, ok := r.engines[cfg.ScriptID]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: no reorder engine for lang %q script %q", ErrInvalidConfig, cfg.Lang, cfg.ScriptID)
}

// Compile turns cfg into a plan. A nil config, or one without a script,
// yields a nil plan and no error.
func (r *Registry) Compile(cfg *models.RerankConfig) (*Plan, error) {
	if !cfg.HasScript() {
		return nil, nil
	}
	e, err := r.Lookup(cfg)
	if err != nil {
		return nil, err
	}
	prog, err := e.Compile(cfg)
	if err != nil {
		if errors.Is(err, ErrInvalidConfig) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, e.Name(), err)
	}
	return NewPlan(cfg, e.Name(), prog), nil
}
