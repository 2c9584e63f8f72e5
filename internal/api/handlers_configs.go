// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/dynarank/internal/auth"
	"github.com/tomtom215/dynarank/internal/config"
	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/models"
	"github.com/tomtom215/dynarank/internal/store"
	"github.com/tomtom215/dynarank/internal/validation"
)

// requireStore writes a 409 when configs are not managed through the store.
func (h *Handler) requireStore(w http.ResponseWriter, r *http.Request) bool {
	if h.store != nil {
		return true
	}
	source := ""
	if h.cfg != nil {
		source = h.cfg.Rerank.Source
	}
	NewResponseWriter(w, r).Conflict("Rerank configs are read from the " + source +
		" source; set rerank.source to " + config.SourceStore + " to manage them here")
	return false
}

func (h *Handler) defaultReorderSize() int {
	if h.cfg == nil {
		return models.DefaultReorderSize
	}
	return h.cfg.Rerank.DefaultReorderSize
}

// ListConfigs handles listing stored configs
//
// @Summary List stored rerank configs
// @Tags Configs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=[]models.RerankConfig}
// @Failure 409 {object} APIResponse
// @Router /rerank/configs [get]
func (h *Handler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, r) {
		return
	}
	configs, err := h.store.ListConfigs(r.Context())
	if err != nil {
		NewResponseWriter(w, r).StoreError(err)
		return
	}
	if configs == nil {
		configs = []*models.RerankConfig{}
	}
	WriteSuccess(w, r, configs)
}

// GetConfig handles reading one stored config
//
// @Summary Get a stored rerank config
// @Tags Configs
// @Produce json
// @Security BearerAuth
// @Param key path string true "Index name"
// @Success 200 {object} APIResponse{data=models.RerankConfig}
// @Failure 404 {object} APIResponse
// @Router /rerank/configs/{key} [get]
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, r) {
		return
	}
	key := chi.URLParam(r, "key")
	cfg, err := h.store.GetConfig(r.Context(), key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		NewResponseWriter(w, r).NotFound("No rerank config for " + key)
	case err != nil:
		NewResponseWriter(w, r).StoreError(err)
	default:
		WriteSuccess(w, r, cfg)
	}
}

// PutConfig handles storing a config
//
// @Summary Create or replace a rerank config
// @Description The config is validated and compiled before it is stored. The cached plan of the index is dropped on every replica.
// @Tags Configs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Index name"
// @Param config body models.RerankConfigRequest true "Config"
// @Success 200 {object} APIResponse{data=models.RerankConfig}
// @Failure 400 {object} APIResponse
// @Router /rerank/configs/{key} [put]
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, r) {
		return
	}
	rw := NewResponseWriter(w, r)
	key := chi.URLParam(r, "key")
	if !validation.IsValidIndexName(key) {
		rw.BadRequest("Invalid index name: " + key)
		return
	}

	cfg, ok := h.decodeConfig(w, r, key)
	if !ok {
		return
	}

	if err := h.store.PutConfig(r.Context(), cfg); err != nil {
		rw.StoreError(err)
		return
	}
	h.cache.Invalidate(key)
	h.broadcast(r.Context(), key)
	logChange(r, "stored", key)
	rw.Success(cfg)
}

// decodeConfig reads, validates and compiles a RerankConfigRequest.
func (h *Handler) decodeConfig(w http.ResponseWriter, r *http.Request, key string) (*models.RerankConfig, bool) {
	var req models.RerankConfigRequest
	if !decodeBody(w, r, &req) {
		return nil, false
	}
	req.ApplyDefaults(h.defaultReorderSize())
	if !validBody(w, r, &req) {
		return nil, false
	}

	rw := NewResponseWriter(w, r)
	cfg, err := req.ToConfig(key)
	if err != nil {
		rw.InvalidConfig(err)
		return nil, false
	}
	if _, err := h.compiler.Compile(cfg); err != nil {
		rw.InvalidConfig(err)
		return nil, false
	}
	return cfg, true
}

// DeleteConfig handles removing a stored config
//
// @Summary Delete a stored rerank config
// @Tags Configs
// @Security BearerAuth
// @Param key path string true "Index name"
// @Success 204
// @Router /rerank/configs/{key} [delete]
func (h *Handler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, r) {
		return
	}
	key := chi.URLParam(r, "key")
	err := h.store.DeleteConfig(r.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		NewResponseWriter(w, r).NotFound("Nothing stored for " + key)
		return
	}
	if err != nil {
		NewResponseWriter(w, r).StoreError(err)
		return
	}
	h.cache.Invalidate(key)
	h.broadcast(r.Context(), key)
	logChange(r, "deleted", key)
	NewResponseWriter(w, r).NoContent()
}

// ListAliases handles listing stored aliases
//
// @Summary List stored aliases
// @Tags Configs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=map[string][]string}
// @Router /rerank/aliases [get]
func (h *Handler) ListAliases(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, r) {
		return
	}
	aliases, err := h.store.ListAliases(r.Context())
	if err != nil {
		NewResponseWriter(w, r).StoreError(err)
		return
	}
	if aliases == nil {
		aliases = map[string][]string{}
	}
	WriteSuccess(w, r, aliases)
}

// PutAlias handles storing an alias
//
// @Summary Create or replace an alias
// @Description Search calls on the alias use the config of its lowest named index that has one.
// @Tags Configs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param alias path string true "Alias name"
// @Param alias body models.AliasRequest true "Indices"
// @Success 200 {object} APIResponse{data=models.AliasRequest}
// @Router /rerank/aliases/{alias} [put]
func (h *Handler) PutAlias(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, r) {
		return
	}
	rw := NewResponseWriter(w, r)
	alias := chi.URLParam(r, "alias")
	if !validation.IsValidIndexName(alias) {
		rw.BadRequest("Invalid alias name: " + alias)
		return
	}

	var req models.AliasRequest
	if !decodeBody(w, r, &req) || !validBody(w, r, &req) {
		return
	}
	if err := h.store.PutAlias(r.Context(), alias, req.Indices); err != nil {
		rw.StoreError(err)
		return
	}
	h.cache.Invalidate(alias)
	h.broadcast(r.Context(), alias)
	logChange(r, "alias stored", alias)
	rw.Success(req)
}

// DeleteAlias handles removing a stored alias
//
// @Summary Delete an alias
// @Tags Configs
// @Security BearerAuth
// @Param alias path string true "Alias name"
// @Success 204
// @Router /rerank/aliases/{alias} [delete]
func (h *Handler) DeleteAlias(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w, r) {
		return
	}
	alias := chi.URLParam(r, "alias")
	err := h.store.DeleteAlias(r.Context(), alias)
	if errors.Is(err, store.ErrNotFound) {
		NewResponseWriter(w, r).NotFound("Nothing stored for " + alias)
		return
	}
	if err != nil {
		NewResponseWriter(w, r).StoreError(err)
		return
	}
	h.cache.Invalidate(alias)
	h.broadcast(r.Context(), alias)
	logChange(r, "alias deleted", alias)
	NewResponseWriter(w, r).NoContent()
}

func logChange(r *http.Request, action, key string) {
	event := logging.Ctx(r.Context()).Info().Str("key", key)
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		event = event.Str("user", claims.Username)
	}
	event.Msg("Rerank config " + action)
}
