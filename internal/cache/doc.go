// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package cache memoizes compiled rerank plans per search target.

A search target (an index or alias name) resolves to at most one rerank
config. Resolving means a round trip to the config source and compiling the
config into a program, so the result is kept in a ConfigCache:

	plans := cache.NewConfigCache(resolver, registry, cfg.Rerank.CacheExpire)
	plan, err := plans.Get(ctx, "products")

# Entries

  - a plan: the key reranks
  - nil plan, nil error: the key has no rerank script; cached so the source
    is not asked again on every search
  - nil plan, ErrInvalidConfig: the config was found but does not compile;
    cached until the config changes

Resolver errors are not cached. The search goes through without reranking
and the next search asks again.

Concurrent misses on one key share a single resolution through singleflight.

# Freshness

Reap re-resolves every cached key and is driven by the config-reaper service.
Cleanup drops entries idle for longer than the configured expiry. Invalidate
and Clear are called by the admin API, by peer invalidation events and by
the settings file watcher. An Invalidate or Clear during a fill wins: a fill
that started before it does not store its result.

# Metrics

Hits, misses, evictions and size are exported with cache_type="rerank_config".
GetStats returns the same counters for the admin API.
*/
package cache
