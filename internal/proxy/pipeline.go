// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/metrics"
	"github.com/tomtom215/dynarank/internal/rerank"
	"github.com/tomtom215/dynarank/internal/search"
)

// Default request signal headers.
const (
	DefaultDisableHeader      = "X-Dynarank-Rerank"
	DefaultMinTotalHitsHeader = "X-Dynarank-Min-Total-Hits"
)

// Plans returns the rerank plan of a search target. *cache.ConfigCache implements it.
type Plans interface {
	Get(ctx context.Context, key string) (*rerank.Plan, error)
}

// Searcher sends a search upstream. *search.BreakerClient implements it.
type Searcher interface {
	Search(ctx context.Context, req *search.Request) (*search.Response, error)
}

// Options tune the request signals understood by the pipeline.
type Options struct {
	// DisableHeader set to "false" forwards the call without reranking.
	DisableHeader string
	// MinTotalHitsHeader carries the minimum hits.total worth reordering.
	MinTotalHitsHeader string
}

// Pipeline runs searches through the reorder window.
type Pipeline struct {
	plans    Plans
	searcher Searcher
	opts     Options
	now      func() time.Time
}

// NewPipeline creates a pipeline. Empty header names fall back to the defaults.
func NewPipeline(plans Plans, searcher Searcher, opts Options) *Pipeline {
	if opts.DisableHeader == "" {
		opts.DisableHeader = DefaultDisableHeader
	}
	if opts.MinTotalHitsHeader == "" {
		opts.MinTotalHitsHeader = DefaultMinTotalHitsHeader
	}
	return &Pipeline{plans: plans, searcher: searcher, opts: opts, now: time.Now}
}

// Search executes req.
//
// The returned response is either the upstream response as received, or the
// upstream response with its page of hits reordered. Errors are transport
// failures, invalid plans (rerank.ErrInvalidConfig) and unreadable upstream
// responses (ErrParseResponse).
func (p *Pipeline) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	start := p.now()
	fwd, disabled, minTotal := p.prepare(ctx, req)
	logger := logging.Ctx(ctx)

	if disabled {
		metrics.RecordRerank(metrics.OutcomeDisabled, "", 0, time.Since(start))
		return p.forward(ctx, fwd)
	}
	key, ok := SingleTarget(fwd.Target)
	if !ok {
		metrics.RecordRerank(metrics.OutcomeWindowSkipped, "", 0, time.Since(start))
		return p.forward(ctx, fwd)
	}

	plan, err := p.plans.Get(ctx, key)
	if err != nil {
		if errors.Is(err, rerank.ErrInvalidConfig) {
			metrics.RecordRerank(metrics.OutcomeConfigInvalid, "", 0, time.Since(start))
		}
		return nil, err
	}
	if plan == nil {
		metrics.RecordRerank(metrics.OutcomeNoConfig, "", 0, time.Since(start))
		return p.forward(ctx, fwd)
	}

	win, ok := Rewrite(fwd, plan)
	if !ok {
		metrics.RecordRerank(metrics.OutcomeWindowSkipped, plan.Engine, 0, time.Since(start))
		return p.forward(ctx, fwd)
	}
	metrics.WindowExpansions.Inc()

	resp, err := p.searcher.Search(ctx, win.Request)
	if err != nil {
		metrics.RecordRerank(metrics.OutcomeUpstreamError, plan.Engine, 0, time.Since(start))
		return nil, err
	}
	if !resp.OK() {
		metrics.RecordRerank(metrics.OutcomeUpstreamNon2xx, plan.Engine, 0, time.Since(start))
		return resp, nil
	}

	env, err := ParseEnvelope(resp.Body)
	if err != nil {
		metrics.RecordRerank(metrics.OutcomeResponseRejected, plan.Engine, 0, time.Since(start))
		logger.Warn().Err(err).Str("key", key).Msg("upstream search response rejected")
		return nil, err
	}

	total, known := env.TotalHits()
	if known && total == 0 {
		metrics.RecordRerank(metrics.OutcomeBelowMinHits, plan.Engine, 0, time.Since(start))
		return resp, nil
	}
	hits := env.Hits()
	if known && minTotal > 0 && total < minTotal {
		metrics.RecordRerank(metrics.OutcomeBelowMinHits, plan.Engine, len(hits), time.Since(start))
		return p.respond(resp, env, Page(hits, win.From, win.Size), start)
	}

	out, err := Splice(ctx, plan, hits, win.From, win.Size)
	if err != nil {
		metrics.RecordRerank(metrics.OutcomeReorderFailed, plan.Engine, len(hits), time.Since(start))
		return nil, fmt.Errorf("reorder %s: %w", key, err)
	}

	if out.Retry() {
		metrics.RecordRerank(metrics.OutcomeRetried, plan.Engine, len(hits), time.Since(start))
		metrics.RerankRetries.Inc()
		logger.Debug().Str("key", key).Msg("reorder requested a reshuffled retry")

		retry, err := retryRequest(fwd, out)
		if err != nil {
			return nil, err
		}
		return p.Search(WithRerankDisabled(ctx), retry)
	}

	metrics.RecordRerank(metrics.OutcomeReordered, plan.Engine, len(hits), time.Since(start))
	return p.respond(resp, env, out.Hits(), start)
}

// prepare reads the request signals and strips them from the request that
// goes upstream.
func (p *Pipeline) prepare(ctx context.Context, req *search.Request) (fwd *search.Request, disabled bool, minTotal int64) {
	fwd = req.Clone()
	if fwd.Header == nil {
		fwd.Header = http.Header{}
	}
	if fwd.Query == nil {
		fwd.Query = map[string][]string{}
	}

	disabled = RerankDisabled(ctx) || strings.EqualFold(strings.TrimSpace(fwd.Header.Get(p.opts.DisableHeader)), "false")
	if v := strings.TrimSpace(fwd.Header.Get(p.opts.MinTotalHitsHeader)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			minTotal = n
		}
	}
	fwd.Header.Del(p.opts.DisableHeader)
	fwd.Header.Del(p.opts.MinTotalHitsHeader)
	return fwd, disabled, minTotal
}

func (p *Pipeline) forward(ctx context.Context, req *search.Request) (*search.Response, error) {
	return p.searcher.Search(ctx, req)
}

func (p *Pipeline) respond(resp *search.Response, env *Envelope, hits []rerank.Hit, start time.Time) (*search.Response, error) {
	body, err := env.Rebuild(hits, p.now().Sub(start).Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseResponse, err)
	}
	return &search.Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
