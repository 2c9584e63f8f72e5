// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package proxy

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tomtom215/dynarank/internal/rerank"
	"github.com/tomtom215/dynarank/internal/search"
)

// Page defaults applied by the search cluster when a request omits them.
const (
	defaultFrom = 0
	defaultSize = 10
)

var emptyObject = []byte("{}")

// Window is a search request widened to a plan's reorder window.
type Window struct {
	// From and Size are the page the caller asked for.
	From int
	Size int
	// ReorderSize is the plan's window.
	ReorderSize int
	// Request is the widened request to send upstream.
	Request *search.Request
}

// SingleTarget returns the target as a single cache key. Lists, wildcards
// and cluster wide searches do not qualify.
func SingleTarget(target string) (string, bool) {
	t := strings.TrimSpace(target)
	if t == "" || t == "_all" || strings.ContainsAny(t, ",*") {
		return "", false
	}
	return t, true
}

// Rewrite widens req to plan's window. It reports false when the request
// must be forwarded unchanged. req is not modified.
func Rewrite(req *search.Request, plan *rerank.Plan) (*Window, bool) {
	if plan == nil || !plan.Config.HasScript() {
		return nil, false
	}
	if !supportedSearchType(req.Query.Get("search_type")) || req.Query.Has("scroll") {
		return nil, false
	}

	body := bytes.TrimSpace(req.Body)
	if len(body) == 0 {
		body = emptyObject
	}
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, false
	}

	from, fromInURL, ok := pageParam(req, doc, "from", defaultFrom)
	if !ok {
		return nil, false
	}
	size, sizeInURL, ok := pageParam(req, doc, "size", defaultSize)
	if !ok {
		return nil, false
	}

	window := plan.ReorderSize()
	if from >= window {
		return nil, false
	}
	// A page that overflows int cannot be widened.
	if size > math.MaxInt-from {
		return nil, false
	}
	expanded := max(window, from+size)

	out := req.Clone()
	patched, err := sjson.SetBytes(append([]byte(nil), body...), "from", 0)
	if err != nil {
		return nil, false
	}
	if patched, err = sjson.SetBytes(patched, "size", expanded); err != nil {
		return nil, false
	}
	out.Body = patched

	if fromInURL {
		out.Query.Set("from", "0")
	}
	if sizeInURL {
		out.Query.Set("size", strconv.Itoa(expanded))
	}

	return &Window{From: from, Size: size, ReorderSize: window, Request: out}, true
}

func supportedSearchType(st string) bool {
	switch st {
	case "", "query_then_fetch", "dfs_query_then_fetch":
		return true
	default:
		return false
	}
}

// pageParam reads an integer paging parameter, URL query first, then the
// body. Negative or malformed values report !ok.
func pageParam(req *search.Request, doc gjson.Result, name string, def int) (value int, inURL, ok bool) {
	if req.Query.Has(name) {
		n, err := strconv.Atoi(req.Query.Get(name))
		if err != nil || n < 0 {
			return 0, true, false
		}
		return n, true, true
	}

	r := doc.Get(name)
	switch r.Type {
	case gjson.Null:
		if !r.Exists() {
			return def, false, true
		}
		return 0, false, false
	case gjson.Number:
		f := r.Float()
		if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
			return 0, false, false
		}
		return int(f), false, true
	case gjson.String:
		n, err := strconv.Atoi(r.String())
		if err != nil || n < 0 {
			return 0, false, false
		}
		return n, false, true
	default:
		return 0, false, false
	}
}
