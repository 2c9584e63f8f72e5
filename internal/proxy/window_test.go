// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package proxy

import (
	"context"
	"net/url"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/tomtom215/dynarank/internal/models"
	"github.com/tomtom215/dynarank/internal/rerank"
	"github.com/tomtom215/dynarank/internal/search"
)

func identityPlan(window int) *rerank.Plan {
	cfg := &models.RerankConfig{ScriptID: "identity", ReorderSize: window}
	return rerank.NewPlan(cfg, "identity", rerank.ProgramFunc(func(_ context.Context, hits []rerank.Hit) (rerank.Outcome, error) {
		return rerank.Reordered(hits), nil
	}))
}

func TestSingleTarget(t *testing.T) {
	tests := []struct {
		target string
		want   string
		ok     bool
	}{
		{"products", "products", true},
		{" products ", "products", true},
		{"", "", false},
		{"_all", "", false},
		{"a,b", "", false},
		{"logs-*", "", false},
	}
	for _, tt := range tests {
		got, ok := SingleTarget(tt.target)
		if got != tt.want || ok != tt.ok {
			t.Errorf("SingleTarget(%q) = %q, %v, want %q, %v", tt.target, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRewrite(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		body      string
		window    int
		wantOK    bool
		wantFrom  int
		wantSize  int
		wantBody  int64 // outgoing size in body
		wantQuery string
	}{
		{name: "defaults", body: `{}`, window: 100, wantOK: true, wantFrom: 0, wantSize: 10, wantBody: 100},
		{name: "empty body", body: ``, window: 100, wantOK: true, wantFrom: 0, wantSize: 10, wantBody: 100},
		{name: "page inside window", body: `{"from":20,"size":10}`, window: 100, wantOK: true, wantFrom: 20, wantSize: 10, wantBody: 100},
		{name: "page crossing window", body: `{"from":95,"size":10}`, window: 100, wantOK: true, wantFrom: 95, wantSize: 10, wantBody: 105},
		{name: "large size", body: `{"size":500}`, window: 100, wantOK: true, wantFrom: 0, wantSize: 500, wantBody: 500},
		{name: "string numbers", body: `{"from":"5","size":"5"}`, window: 20, wantOK: true, wantFrom: 5, wantSize: 5, wantBody: 20},
		{
			name: "url params win", query: url.Values{"from": {"30"}, "size": {"20"}}, body: `{"from":0,"size":1}`,
			window: 100, wantOK: true, wantFrom: 30, wantSize: 20, wantBody: 100, wantQuery: "100",
		},
		{name: "from at window", body: `{"from":100}`, window: 100},
		{name: "negative from", body: `{"from":-1}`, window: 100},
		{name: "negative size", body: `{"size":-1}`, window: 100},
		{name: "fractional size", body: `{"size":1.5}`, window: 100},
		{name: "bad url size", query: url.Values{"size": {"ten"}}, body: `{}`, window: 100},
		{name: "scroll", query: url.Values{"scroll": {"1m"}}, body: `{}`, window: 100},
		{name: "unsupported search type", query: url.Values{"search_type": {"scan"}}, body: `{}`, window: 100},
		{name: "dfs search type", query: url.Values{"search_type": {"dfs_query_then_fetch"}}, body: `{}`, window: 100, wantOK: true, wantSize: 10, wantBody: 100},
		{name: "array body", body: `[]`, window: 100},
		{name: "invalid body", body: `{"from":`, window: 100},
		{name: "null size", body: `{"size":null}`, window: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &search.Request{Target: "products", Query: tt.query, Body: []byte(tt.body)}
			before := tt.body

			win, ok := Rewrite(req, identityPlan(tt.window))
			if ok != tt.wantOK {
				t.Fatalf("Rewrite() ok = %v, want %v", ok, tt.wantOK)
			}
			if string(req.Body) != before {
				t.Errorf("Rewrite() modified the caller's body: %s", req.Body)
			}
			if !ok {
				return
			}
			if win.From != tt.wantFrom || win.Size != tt.wantSize {
				t.Errorf("page = %d/%d, want %d/%d", win.From, win.Size, tt.wantFrom, tt.wantSize)
			}
			if win.ReorderSize != tt.window {
				t.Errorf("ReorderSize = %d, want %d", win.ReorderSize, tt.window)
			}
			if got := gjson.GetBytes(win.Request.Body, "from").Int(); got != 0 {
				t.Errorf("outgoing from = %d, want 0", got)
			}
			if got := gjson.GetBytes(win.Request.Body, "size").Int(); got != tt.wantBody {
				t.Errorf("outgoing size = %d, want %d", got, tt.wantBody)
			}
			if tt.wantQuery != "" {
				if got := win.Request.Query.Get("size"); got != tt.wantQuery {
					t.Errorf("outgoing url size = %q, want %q", got, tt.wantQuery)
				}
				if got := win.Request.Query.Get("from"); got != "0" {
					t.Errorf("outgoing url from = %q, want 0", got)
				}
				if tt.query.Get("size") == tt.wantQuery {
					t.Errorf("Rewrite() modified the caller's query")
				}
			}
		})
	}
}

func TestRewrite_PreservesBody(t *testing.T) {
	body := `{"query":{"match":{"title":"red shoes"}},"aggs":{"brands":{"terms":{"field":"brand"}}},"size":5}`
	win, ok := Rewrite(&search.Request{Target: "p", Body: []byte(body)}, identityPlan(50))
	if !ok {
		t.Fatal("Rewrite() declined")
	}
	for _, path := range []string{"query", "aggs"} {
		if got, want := gjson.GetBytes(win.Request.Body, path).Raw, gjson.Get(body, path).Raw; got != want {
			t.Errorf("%s = %s, want %s", path, got, want)
		}
	}
}

func TestRewrite_NoPlan(t *testing.T) {
	if _, ok := Rewrite(&search.Request{Target: "p"}, nil); ok {
		t.Error("Rewrite(nil plan) ok = true, want false")
	}
}
