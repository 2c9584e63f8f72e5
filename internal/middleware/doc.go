// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package middleware provides the HTTP middleware shared by the proxy and the
admin API.

  - RequestID: accepts or generates X-Request-ID and puts it into the
    logging context so every log line of a search carries it
  - PrometheusMetrics: records api_requests_total and
    api_request_duration_seconds, labelled by chi route pattern so that index
    names in the URL do not create new series
  - StripHeaders: removes proxy control headers before a request is
    forwarded upstream

All middleware has the func(http.Handler) http.Handler shape expected by chi.
*/
package middleware
