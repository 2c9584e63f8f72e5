// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package proxy

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tomtom215/dynarank/internal/rerank"
	"github.com/tomtom215/dynarank/internal/search"
)

// retryRequest builds the resubmission of orig: the caller's own paging,
// with the query clause replaced by the outcome's rewrite.
func retryRequest(orig *search.Request, out rerank.Outcome) (*search.Request, error) {
	body := bytes.TrimSpace(orig.Body)
	if len(body) == 0 {
		body = emptyObject
	}

	req := orig.Clone()

	// A URI search query overrides the body query upstream, so it is moved
	// into the body before the rewrite wraps it.
	query, err := uriQuery(req)
	if err != nil {
		return nil, err
	}
	if query == nil {
		if q := gjson.GetBytes(body, "query"); q.Exists() {
			query = []byte(q.Raw)
		}
	}
	rewritten, err := out.Rewrite(query)
	if err != nil {
		return nil, fmt.Errorf("rewrite query for retry: %w", err)
	}

	patched, err := sjson.SetRawBytes(append([]byte(nil), body...), "query", rewritten)
	if err != nil {
		return nil, fmt.Errorf("set retry query: %w", err)
	}

	req.Body = patched
	return req, nil
}

// uriQueryParams maps URI search parameters to query_string options.
var uriQueryParams = []struct {
	param, option string
	boolean       bool
}{
	{"df", "default_field", false},
	{"analyzer", "analyzer", false},
	{"default_operator", "default_operator", false},
	{"analyze_wildcard", "analyze_wildcard", true},
	{"lenient", "lenient", true},
}

// uriQuery turns the q parameter of req and its companions into a
// query_string clause and removes them from the URL. It returns nil when
// req has no q parameter.
func uriQuery(req *search.Request) ([]byte, error) {
	if !req.Query.Has("q") {
		return nil, nil
	}
	clause, err := sjson.SetBytes([]byte(`{"query_string":{}}`), "query_string.query", req.Query.Get("q"))
	if err != nil {
		return nil, fmt.Errorf("build query_string from q: %w", err)
	}
	req.Query.Del("q")

	for _, p := range uriQueryParams {
		if !req.Query.Has(p.param) {
			continue
		}
		raw := req.Query.Get(p.param)
		req.Query.Del(p.param)

		var value any = raw
		if p.boolean {
			if b, perr := strconv.ParseBool(raw); perr == nil {
				value = b
			}
		}
		if clause, err = sjson.SetBytes(clause, "query_string."+p.option, value); err != nil {
			return nil, fmt.Errorf("build query_string option %s: %w", p.option, err)
		}
	}
	return clause, nil
}
