// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package metrics defines the Prometheus collectors exported on /metrics.

All collectors are registered on the default registry through promauto at
package init. Components record through the typed helpers where one exists
(RecordRerank, RecordReap, RecordUpstream) and touch the collectors directly
otherwise.

Metric families:

  - dynarank_rerank_*: search requests seen by the reranking pipeline, by
    outcome and engine, plus window expansions and shuffle retries
  - dynarank_diversity_buckets: bucket counts produced by the bucket engine
  - cache_*: config cache hits, misses, size and evictions by cache_type
  - dynarank_reaper_*: background refresh cycles
  - dynarank_upstream_*: calls to the search cluster
  - circuit_breaker_*: state of the upstream circuit breaker
  - api_*: admin API and proxy HTTP traffic
  - dynarank_events_*: cache invalidation broadcasts

Example PromQL:

	# share of searches that were actually reordered
	sum(rate(dynarank_rerank_requests_total{outcome="reordered"}[5m]))
	  / sum(rate(dynarank_rerank_requests_total[5m]))

	# config cache hit rate
	rate(cache_hits_total{cache_type="rerank_config"}[5m])
	  / (rate(cache_hits_total[5m]) + rate(cache_misses_total[5m]))
*/
package metrics
