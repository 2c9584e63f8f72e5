// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package search is the HTTP client for the Elasticsearch compatible cluster
the proxy fronts.

Client issues _search, _settings, _mapping and root info calls. It retries
429 and 503 responses with exponential backoff, honouring Retry-After, and
can be throttled client side with a token bucket (golang.org/x/time/rate).

BreakerClient wraps a Client with a sony/gobreaker circuit breaker. Upstream
5xx responses count as failures but are still returned to the caller so the
proxy can pass them through unchanged.

Response bodies are returned fully buffered; the reranking pipeline needs
the whole hits array before it can reorder anything.
*/
package search
