// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dynarank/internal/models"
	"github.com/tomtom215/dynarank/internal/proxy"
	"github.com/tomtom215/dynarank/internal/rerank"
)

// previewKey names plans compiled from an inline preview config.
const previewKey = "_preview"

// Preview handles reorder previews
//
// @Summary Preview a reorder
// @Description Reorders posted hits with the plan of an index, or with an inline config, as the search pipeline would for from=0 and size=len(hits). The search cluster is not contacted.
// @Tags Configs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param preview body models.PreviewRequest true "Plan and hits"
// @Success 200 {object} APIResponse{data=models.PreviewResponse}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /rerank/preview [post]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.PreviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Config != nil {
		req.Config.ApplyDefaults(h.defaultReorderSize())
	}
	if !validBody(w, r, &req) {
		return
	}
	if req.Key == "" && req.Config == nil {
		rw.BadRequest("either key or config is required")
		return
	}

	plan, ok := h.previewPlan(w, r, &req)
	if !ok {
		return
	}

	hits, err := rerank.ParseHits(req.Hits)
	if err != nil {
		rw.BadRequest("hits must be an array of search hits")
		return
	}

	out, err := proxy.Splice(r.Context(), plan, hits, 0, len(hits))
	if err != nil {
		rw.InvalidConfig(err)
		return
	}

	resp := models.PreviewResponse{}
	if out.Retry() {
		query, err := out.Rewrite(req.Query)
		if err != nil {
			rw.InvalidConfig(err)
			return
		}
		resp.RetryRequested = true
		resp.RewrittenQuery = json.RawMessage(query)
	} else {
		resp.Reordered = true
		resp.Hits = json.RawMessage(rerank.MarshalHits(out.Hits()))
		resp.IDs = rerank.IDs(out.Hits())
	}
	rw.Success(resp)
}

func (h *Handler) previewPlan(w http.ResponseWriter, r *http.Request, req *models.PreviewRequest) (*rerank.Plan, bool) {
	rw := NewResponseWriter(w, r)

	if req.Config != nil {
		cfg, err := req.Config.ToConfig(previewKey)
		if err != nil {
			rw.InvalidConfig(err)
			return nil, false
		}
		plan, err := h.compiler.Compile(cfg)
		if err != nil {
			rw.InvalidConfig(err)
			return nil, false
		}
		if plan == nil {
			rw.BadRequest("config declares no script")
			return nil, false
		}
		return plan, true
	}

	plan, err := h.cache.Get(r.Context(), req.Key)
	if errors.Is(err, rerank.ErrInvalidConfig) {
		rw.InvalidConfig(err)
		return nil, false
	}
	if err != nil {
		rw.InternalError(err.Error())
		return nil, false
	}
	if plan == nil {
		rw.NotFound("No rerank config for " + req.Key)
		return nil, false
	}
	return plan, true
}
