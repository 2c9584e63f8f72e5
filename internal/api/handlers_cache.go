// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/models"
)

// CacheStats handles cache inspection
//
// @Summary Rerank config cache statistics
// @Tags Cache
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=models.CacheStatsResponse}
// @Router /rerank/cache [get]
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.GetStats()
	keys := h.cache.Keys()
	sort.Strings(keys)

	WriteSuccess(w, r, models.CacheStatsResponse{
		Keys:         keys,
		Size:         len(keys),
		Hits:         stats.Hits,
		Misses:       stats.Misses,
		Fills:        stats.Fills,
		LookupErrors: stats.LookupErrors,
		Evictions:    stats.Evictions,
		HitRate:      h.cache.HitRate(),
		LastReap:     stats.LastReap,
		LastCleanup:  stats.LastCleanup,
	})
}

// CacheClear handles dropping every cached config
//
// @Summary Clear the rerank config cache
// @Description Drops every cached config on this replica and tells the other replicas to do the same.
// @Tags Cache
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=models.CacheInvalidateResponse}
// @Router /rerank/cache [delete]
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	removed := h.cache.Clear()
	h.broadcast(r.Context(), "")
	logging.Ctx(r.Context()).Info().Int("removed", removed).Msg("Rerank config cache cleared")
	WriteSuccess(w, r, models.CacheInvalidateResponse{Removed: removed})
}

// CacheInvalidate handles dropping one cached config
//
// @Summary Invalidate one cached config
// @Tags Cache
// @Produce json
// @Security BearerAuth
// @Param key path string true "Search target"
// @Success 200 {object} APIResponse{data=models.CacheInvalidateResponse}
// @Router /rerank/cache/{key} [delete]
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	removed := 0
	if h.cache.Invalidate(key) {
		removed = 1
	}
	h.broadcast(r.Context(), key)
	WriteSuccess(w, r, models.CacheInvalidateResponse{Removed: removed})
}

// Engines handles listing reorder engines
//
// @Summary List reorder engines
// @Description Names accepted in the lang field of a rerank config.
// @Tags Cache
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=models.EnginesResponse}
// @Router /rerank/engines [get]
func (h *Handler) Engines(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, models.EnginesResponse{Engines: h.compiler.Names()})
}

// broadcast publishes an invalidation of key, or of everything when key is
// empty. Failures are logged: the reaper converges the peers eventually.
func (h *Handler) broadcast(ctx context.Context, key string) {
	if h.events == nil {
		return
	}
	var err error
	if key == "" {
		err = h.events.PublishClear(ctx)
	} else {
		err = h.events.PublishInvalidation(ctx, key)
	}
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Failed to broadcast cache invalidation")
	}
}
