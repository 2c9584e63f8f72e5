// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package proxy implements the search pipeline that sits between a caller and
the search cluster.

For a search against a single target with a rerank plan the pipeline:

 1. widens the requested page to the plan's reorder window (from=0,
    size=max(window, from+size)),
 2. sends the widened request upstream,
 3. reorders the first window of hits with the plan's program,
 4. cuts the caller's original page back out of the reordered hits and
    splices it into the response, leaving every other member untouched.

When a program asks for a resubmission the caller's original request is sent
again with its query rewritten and reranking disabled for that call, and the
second response is returned unchanged.

Requests that do not qualify (multi-target, scroll, unsupported search_type,
explicit opt-out, no plan) are forwarded as they are.

Usage Example:

	p := proxy.NewPipeline(configCache, breakerClient, proxy.Options{
	    DisableHeader:      "X-Dynarank-Rerank",
	    MinTotalHitsHeader: "X-Dynarank-Min-Total-Hits",
	})
	resp, err := p.Search(ctx, &search.Request{Target: "products", Body: body})
*/
package proxy
