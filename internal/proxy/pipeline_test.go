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
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/tomtom215/dynarank/internal/models"
	"github.com/tomtom215/dynarank/internal/rerank"
	"github.com/tomtom215/dynarank/internal/search"
)

const testAggregations = `{"brands":{"buckets":[{"key":"acme","doc_count":1000}]}}`

type fakePlans struct {
	plan  *rerank.Plan
	err   error
	calls int
}

func (f *fakePlans) Get(context.Context, string) (*rerank.Plan, error) {
	f.calls++
	return f.plan, f.err
}

// fakeCluster answers searches over a corpus of numbered documents.
type fakeCluster struct {
	mu       sync.Mutex
	total    int
	status   int
	raw      string
	requests []*search.Request
	contexts []context.Context
}

func (f *fakeCluster) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.contexts = append(f.contexts, ctx)
	f.mu.Unlock()

	if f.status != 0 {
		return &search.Response{StatusCode: f.status, Body: []byte(`{"error":"overloaded"}`)}, nil
	}
	if f.raw != "" {
		return &search.Response{StatusCode: http.StatusOK, Body: []byte(f.raw)}, nil
	}

	from, size := 0, 10
	if r := gjson.GetBytes(req.Body, "from"); r.Exists() {
		from = int(r.Int())
	}
	if r := gjson.GetBytes(req.Body, "size"); r.Exists() {
		size = int(r.Int())
	}
	var docs []string
	for i := from; i < from+size && i < f.total; i++ {
		docs = append(docs, fmt.Sprintf(`{"_index":"products","_id":"%d","_score":%d}`, i, f.total-i))
	}
	body := fmt.Sprintf(`{"took":3,"timed_out":false,"hits":{"total":{"value":%d,"relation":"eq"},"max_score":1,"hits":[%s]},"aggregations":%s}`,
		f.total, strings.Join(docs, ","), testAggregations)
	return &search.Response{StatusCode: http.StatusOK, Header: http.Header{"Content-Type": {"application/json"}}, Body: []byte(body)}, nil
}

func responseIDs(t *testing.T, resp *search.Response) []string {
	t.Helper()
	var ids []string
	gjson.GetBytes(resp.Body, "hits.hits.#._id").ForEach(func(_, v gjson.Result) bool {
		ids = append(ids, v.String())
		return true
	})
	return ids
}

func TestPipeline_ReordersPage(t *testing.T) {
	cluster := &fakeCluster{total: 1000}
	p := NewPipeline(&fakePlans{plan: reversePlan(100)}, cluster, Options{})

	resp, err := p.Search(context.Background(), &search.Request{
		Target: "products",
		Body:   []byte(`{"query":{"match_all":{}},"from":10,"size":10}`),
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(cluster.requests) != 1 {
		t.Fatalf("upstream calls = %d, want 1", len(cluster.requests))
	}
	sent := cluster.requests[0].Body
	if gjson.GetBytes(sent, "from").Int() != 0 || gjson.GetBytes(sent, "size").Int() != 100 {
		t.Errorf("upstream body = %s, want from 0 size 100", sent)
	}

	want := idRange(89, 79, -1)
	if got := responseIDs(t, resp); !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
	if got := gjson.GetBytes(resp.Body, "aggregations").Raw; got != testAggregations {
		t.Errorf("aggregations = %s, want untouched", got)
	}
	if gjson.GetBytes(resp.Body, "hits.total.value").Int() != 1000 {
		t.Errorf("hits.total changed: %s", gjson.GetBytes(resp.Body, "hits.total").Raw)
	}
}

func TestPipeline_PageBeyondWindowTail(t *testing.T) {
	cluster := &fakeCluster{total: 1000}
	p := NewPipeline(&fakePlans{plan: reversePlan(100)}, cluster, Options{})

	resp, err := p.Search(context.Background(), &search.Request{
		Target: "products",
		Body:   []byte(`{"from":95,"size":10}`),
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := append(idRange(4, -1, -1), idRange(100, 105, 1)...)
	if got := responseIDs(t, resp); !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestPipeline_PassThrough(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		body      string
		header    http.Header
		ctx       context.Context
		wantPlans int
	}{
		{name: "from beyond window", target: "products", body: `{"from":100,"size":10}`, wantPlans: 1},
		{name: "multi target", target: "products,offers", body: `{"from":0}`},
		{name: "disable header", target: "products", body: `{"from":0}`, header: http.Header{DefaultDisableHeader: {"false"}}},
		{name: "disabled context", target: "products", body: `{"from":0}`, ctx: WithRerankDisabled(context.Background())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cluster := &fakeCluster{total: 1000}
			plans := &fakePlans{plan: reversePlan(100)}
			p := NewPipeline(plans, cluster, Options{})

			ctx := tt.ctx
			if ctx == nil {
				ctx = context.Background()
			}
			if _, err := p.Search(ctx, &search.Request{Target: tt.target, Header: tt.header, Body: []byte(tt.body)}); err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if plans.calls != tt.wantPlans {
				t.Errorf("plan lookups = %d, want %d", plans.calls, tt.wantPlans)
			}
			sent := cluster.requests[0]
			if string(sent.Body) != tt.body {
				t.Errorf("upstream body = %s, want %s", sent.Body, tt.body)
			}
			if sent.Header.Get(DefaultDisableHeader) != "" {
				t.Errorf("disable header was forwarded upstream")
			}
		})
	}
}

func TestPipeline_NoPlan(t *testing.T) {
	cluster := &fakeCluster{total: 50}
	p := NewPipeline(&fakePlans{}, cluster, Options{})

	resp, err := p.Search(context.Background(), &search.Request{Target: "products", Body: []byte(`{"size":5}`)})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := responseIDs(t, resp); !reflect.DeepEqual(got, idRange(0, 5, 1)) {
		t.Errorf("ids = %v, want upstream order", got)
	}
}

func TestPipeline_Non2xx(t *testing.T) {
	cluster := &fakeCluster{status: http.StatusTooManyRequests}
	p := NewPipeline(&fakePlans{plan: reversePlan(10)}, cluster, Options{})

	resp, err := p.Search(context.Background(), &search.Request{Target: "products"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.StatusCode != http.StatusTooManyRequests || string(resp.Body) != `{"error":"overloaded"}` {
		t.Errorf("Search() = %d %s, want upstream answer", resp.StatusCode, resp.Body)
	}
}

func TestPipeline_ZeroHits(t *testing.T) {
	raw := `{"took":1,"hits":{"total":{"value":0,"relation":"eq"},"hits":[]}}`
	cluster := &fakeCluster{raw: raw}
	p := NewPipeline(&fakePlans{plan: reversePlan(10)}, cluster, Options{})

	resp, err := p.Search(context.Background(), &search.Request{Target: "products"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if string(resp.Body) != raw {
		t.Errorf("Search() body = %s, want unchanged", resp.Body)
	}
}

func TestPipeline_BelowMinTotalHits(t *testing.T) {
	cluster := &fakeCluster{total: 1000}
	p := NewPipeline(&fakePlans{plan: reversePlan(100)}, cluster, Options{})

	resp, err := p.Search(context.Background(), &search.Request{
		Target: "products",
		Header: http.Header{DefaultMinTotalHitsHeader: {"5000"}},
		Body:   []byte(`{"from":10,"size":10}`),
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := responseIDs(t, resp); !reflect.DeepEqual(got, idRange(10, 20, 1)) {
		t.Errorf("ids = %v, want caller page in upstream order", got)
	}
	if cluster.requests[0].Header.Get(DefaultMinTotalHitsHeader) != "" {
		t.Errorf("min total hits header was forwarded upstream")
	}
}

func TestPipeline_Retry(t *testing.T) {
	cfg := &models.RerankConfig{ScriptID: "shuffle", ReorderSize: 100}
	var reorders int
	plan := rerank.NewPlan(cfg, "shuffle", rerank.ProgramFunc(func(context.Context, []rerank.Hit) (rerank.Outcome, error) {
		reorders++
		return rerank.RetryRequested(func(q []byte) ([]byte, error) {
			return []byte(`{"function_score":{"query":` + string(q) + `}}`), nil
		}), nil
	}))
	cluster := &fakeCluster{total: 1000}
	p := NewPipeline(&fakePlans{plan: plan}, cluster, Options{})

	resp, err := p.Search(context.Background(), &search.Request{
		Target: "products",
		Body:   []byte(`{"query":{"term":{"brand":"acme"}},"from":20,"size":5}`),
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(cluster.requests) != 2 {
		t.Fatalf("upstream calls = %d, want 2", len(cluster.requests))
	}
	if reorders != 1 {
		t.Errorf("reorders = %d, want 1", reorders)
	}
	if !RerankDisabled(cluster.contexts[1]) {
		t.Errorf("retry context is not marked rerank-disabled")
	}

	retry := cluster.requests[1].Body
	if got := gjson.GetBytes(retry, "query").Raw; got != `{"function_score":{"query":{"term":{"brand":"acme"}}}}` {
		t.Errorf("retry query = %s", got)
	}
	if gjson.GetBytes(retry, "from").Int() != 20 || gjson.GetBytes(retry, "size").Int() != 5 {
		t.Errorf("retry paging = %s, want caller paging", retry)
	}
	if got := responseIDs(t, resp); !reflect.DeepEqual(got, idRange(20, 25, 1)) {
		t.Errorf("ids = %v, want resent response as received", got)
	}
}

func TestPipeline_Errors(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name    string
		plans   *fakePlans
		cluster Searcher
		want    error
	}{
		{"invalid config", &fakePlans{err: fmt.Errorf("%w: bad params", rerank.ErrInvalidConfig)}, &fakeCluster{total: 1}, rerank.ErrInvalidConfig},
		{"unparseable response", &fakePlans{plan: reversePlan(10)}, &fakeCluster{raw: `<html>`}, ErrParseResponse},
		{"transport failure", &fakePlans{plan: reversePlan(10)}, failingSearcher{boom}, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(tt.plans, tt.cluster, Options{})
			if _, err := p.Search(context.Background(), &search.Request{Target: "products"}); !errors.Is(err, tt.want) {
				t.Errorf("Search() error = %v, want %v", err, tt.want)
			}
		})
	}
}

type failingSearcher struct{ err error }

func (f failingSearcher) Search(context.Context, *search.Request) (*search.Response, error) {
	return nil, f.err
}
