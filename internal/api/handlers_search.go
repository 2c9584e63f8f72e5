// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/proxy"
	"github.com/tomtom215/dynarank/internal/rerank"
	"github.com/tomtom215/dynarank/internal/search"
)

// maxSearchBody bounds a search request body.
const maxSearchBody = 32 << 20

// responseHopHeaders are not copied from the upstream response.
var responseHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Transfer-Encoding",
	"Content-Length",
	"Content-Encoding",
}

// Search runs a search through the rerank pipeline. The target path
// parameter is empty for /_search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSearchBody))
	if err != nil {
		writeSearchError(w, r, http.StatusRequestEntityTooLarge, "request_body_exception", "failed to read request body")
		return
	}

	ctx := logging.ContextWithTarget(r.Context(), target)
	resp, err := h.pipeline.Search(ctx, &search.Request{
		Method: r.Method,
		Target: target,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	if err != nil {
		status, kind := searchErrorStatus(err)
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Str("target", target).Int("status", status).Msg("Search failed")
		writeSearchError(w, r, status, kind, err.Error())
		return
	}

	header := w.Header()
	for k, v := range resp.Header {
		header[k] = append([]string(nil), v...)
	}
	for _, name := range responseHopHeaders {
		header.Del(name)
	}
	header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// searchErrorStatus maps pipeline errors to a status and an error type in
// the upstream's own error format.
func searchErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, rerank.ErrInvalidConfig):
		return http.StatusInternalServerError, "rerank_config_exception"
	case errors.Is(err, proxy.ErrParseResponse):
		return http.StatusBadGateway, "rerank_response_exception"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable, "upstream_unavailable_exception"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream_timeout_exception"
	case errors.Is(err, context.Canceled):
		return 499, "request_cancelled_exception"
	default:
		return http.StatusBadGateway, "upstream_exception"
	}
}

// writeSearchError writes {"error":{"type":..,"reason":..},"status":..} so
// search clients can parse proxy failures like cluster failures.
func writeSearchError(w http.ResponseWriter, r *http.Request, status int, kind, reason string) {
	body := map[string]any{
		"error": map[string]any{
			"type":       kind,
			"reason":     reason,
			"request_id": logging.RequestIDFromContext(r.Context()),
		},
		"status": status,
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
