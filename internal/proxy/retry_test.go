// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package proxy

import (
	"net/url"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/tomtom215/dynarank/internal/rerank"
	"github.com/tomtom215/dynarank/internal/search"
)

func wrapRewrite() rerank.Outcome {
	return rerank.RetryRequested(func(q []byte) ([]byte, error) {
		if q == nil {
			q = []byte(`{"match_all":{}}`)
		}
		return []byte(`{"function_score":{"query":` + string(q) + `}}`), nil
	})
}

func TestRetryRequest(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		body      string
		wantQuery string
		wantURL   url.Values
	}{
		{
			name:      "body query",
			body:      `{"query":{"term":{"brand":"acme"}},"size":5}`,
			wantQuery: `{"function_score":{"query":{"term":{"brand":"acme"}}}}`,
		},
		{
			name:      "absent query",
			body:      `{"size":5}`,
			wantQuery: `{"function_score":{"query":{"match_all":{}}}}`,
		},
		{
			name:      "uri search moves q into the body",
			query:     url.Values{"q": {"brand:acme"}, "size": {"5"}},
			wantQuery: `{"function_score":{"query":{"query_string":{"query":"brand:acme"}}}}`,
			wantURL:   url.Values{"size": {"5"}},
		},
		{
			name: "uri search options",
			query: url.Values{
				"q": {"acme"}, "df": {"brand"}, "default_operator": {"AND"}, "lenient": {"true"},
			},
			body:      `{"query":{"term":{"ignored":true}}}`,
			wantQuery: `{"function_score":{"query":{"query_string":{"query":"acme","default_field":"brand","default_operator":"AND","lenient":true}}}}`,
			wantURL:   url.Values{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := &search.Request{Target: "products", Query: tt.query, Body: []byte(tt.body)}
			req, err := retryRequest(orig, wrapRewrite())
			if err != nil {
				t.Fatalf("retryRequest() error = %v", err)
			}
			if got := gjson.GetBytes(req.Body, "query").Raw; got != tt.wantQuery {
				t.Errorf("query = %s, want %s", got, tt.wantQuery)
			}
			if tt.wantURL != nil && req.Query.Encode() != tt.wantURL.Encode() {
				t.Errorf("url query = %q, want %q", req.Query.Encode(), tt.wantURL.Encode())
			}
			if tt.query.Has("q") && !orig.Query.Has("q") {
				t.Errorf("original request was modified")
			}
		})
	}
}
