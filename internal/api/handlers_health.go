// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/dynarank/internal/models"
)

const readyTimeout = 3 * time.Second

// Health handles liveness checks
//
// @Summary Liveness check
// @Description Reports that the proxy is running. It does not contact the search cluster.
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse{data=models.HealthStatus}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
	}
	if h.cfg != nil {
		status.RerankSource = h.cfg.Rerank.Source
		status.EventsEnabled = h.cfg.Events.Enabled
	}
	if h.cache != nil {
		status.CachedConfigs = h.cache.Len()
	}
	WriteSuccess(w, r, status)
}

// HealthReady handles readiness checks
//
// @Summary Readiness check
// @Description Pings the search cluster through the circuit breaker. Returns 503 when it cannot be reached.
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse{data=models.ReadyStatus}
// @Failure 503 {object} APIResponse{data=models.ReadyStatus}
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := models.ReadyStatus{BreakerState: h.upstream.State()}
	info, err := h.upstream.Ping(ctx)
	if err != nil {
		status.Error = err.Error()
		rw := NewResponseWriter(w, r)
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: status, Error: &APIError{
			Code:    ErrCodeServiceUnavailable,
			Message: "Search cluster not reachable",
		}, Meta: rw.meta()})
		return
	}

	status.Ready = true
	status.ClusterName = info.ClusterName
	status.Version = info.Version
	WriteSuccess(w, r, status)
}
