// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package api provides the HTTP layer of Dynarank.

Three kinds of traffic share one chi router:

  - Search calls (/_search and /{target}/_search) run through the rerank
    pipeline of package proxy.
  - The admin API under /api/v1 inspects and manages rerank configs.
  - Every other path is forwarded to the search cluster unchanged.

Admin API Endpoints:

	GET    /api/v1/health                  liveness
	GET    /api/v1/health/ready            upstream ping through the breaker
	POST   /api/v1/auth/login              username and password for a token
	GET    /api/v1/rerank/cache            cache statistics and keys
	DELETE /api/v1/rerank/cache            clear the cache (broadcast)
	DELETE /api/v1/rerank/cache/{key}      drop one key (broadcast)
	GET    /api/v1/rerank/engines          reorder engine names
	POST   /api/v1/rerank/preview          reorder posted hits
	GET    /api/v1/rerank/configs          stored configs
	GET    /api/v1/rerank/configs/{key}    one stored config
	PUT    /api/v1/rerank/configs/{key}    validate, compile and store
	DELETE /api/v1/rerank/configs/{key}    remove a stored config
	GET    /api/v1/rerank/aliases          stored aliases
	PUT    /api/v1/rerank/aliases/{alias}  store an alias
	DELETE /api/v1/rerank/aliases/{alias}  remove an alias

The /rerank routes require a bearer token (package auth) and a role that
the Casbin policy allows (package authz). The config and alias routes
answer 409 unless rerank.source is "store".

Response Format:

Admin responses use one envelope:

	{
	  "success": true,
	  "data": {...},
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 1}
	}

Errors set success to false and carry error.code, error.message and
optional error.details. Search failures instead use the cluster's own error
shape, {"error": {"type": ..., "reason": ...}, "status": ...}, so search
clients need no special handling.

Prometheus metrics are served on /metrics and the OpenAPI document on
/swagger/.
*/
package api
