// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package rerank defines the reordering contract shared by the search proxy and
the reorder engines.

A search response's hits are wrapped as [Hit] values that keep the exact
bytes received from the upstream cluster. Engines never decode or rewrite a
hit; they only return a permutation of the hits they were given.

# Engines and plans

An [Engine] compiles a [models.RerankConfig] into a [Program] once, when the
config enters the cache. The resulting [Plan] is immutable and safe for
concurrent use by many requests:

	registry := rerank.NewRegistry(bucket.NewEngine(strategies), sorting.NewEngine())
	plan, err := registry.Compile(cfg)
	outcome, err := plan.Reorder(ctx, hits)
	if outcome.Retry() {
	    query, err = outcome.Rewrite(query)
	}

Engines are looked up by the config's lang first and by its script id second,
so both {"lang": "dynarank_diversity_sort"} and {"lang": "native",
"script": "dynarank_diversity_sort"} select the diversity engine.

# Outcomes

[Program.Reorder] returns an [Outcome], which either carries the reordered
hits or asks the caller to resubmit the original query through the
outcome's rewrite function. There is no error path for "diversity too low".
*/
package rerank
