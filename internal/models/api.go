// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Roles understood by the admin API. They match authz/policy.csv.
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// IsValidRole reports whether role is one of the admin API roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleViewer, RoleOperator, RoleAdmin:
		return true
	}
	return false
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse carries a signed admin API token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// CacheStatsResponse describes the rerank config cache.
type CacheStatsResponse struct {
	Keys         []string  `json:"keys"`
	Size         int       `json:"size"`
	Hits         int64     `json:"hits"`
	Misses       int64     `json:"misses"`
	Fills        int64     `json:"fills"`
	LookupErrors int64     `json:"lookup_errors"`
	Evictions    int64     `json:"evictions"`
	HitRate      float64   `json:"hit_rate"`
	LastReap     time.Time `json:"last_reap"`
	LastCleanup  time.Time `json:"last_cleanup"`
}

// PreviewRequest asks the admin API to reorder a list of hits without
// touching the search cluster. The plan is either the cached plan of Key or
// compiled from Config.
type PreviewRequest struct {
	Key    string               `json:"key,omitempty" validate:"omitempty,indexname"`
	Config *RerankConfigRequest `json:"config,omitempty"`
	Query  json.RawMessage      `json:"query,omitempty"`
	Hits   json.RawMessage      `json:"hits" validate:"required"`
}

// PreviewResponse is the reordered list, or the retry the engine asked for.
type PreviewResponse struct {
	Reordered      bool            `json:"reordered"`
	RetryRequested bool            `json:"retry_requested"`
	Hits           json.RawMessage `json:"hits,omitempty"`
	RewrittenQuery json.RawMessage `json:"rewritten_query,omitempty"`
	IDs            []string        `json:"ids,omitempty"`
}

// CacheInvalidateResponse reports how many cached configs were dropped.
type CacheInvalidateResponse struct {
	Removed int `json:"removed"`
}

// HealthStatus is the liveness report of GET /api/v1/health.
type HealthStatus struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	RerankSource  string  `json:"rerank_source"`
	EventsEnabled bool    `json:"events_enabled"`
	CachedConfigs int     `json:"cached_configs"`
	Uptime        float64 `json:"uptime_seconds"`
}

// ReadyStatus is the readiness report of GET /api/v1/health/ready.
type ReadyStatus struct {
	Ready        bool   `json:"ready"`
	BreakerState string `json:"breaker_state"`
	ClusterName  string `json:"cluster_name,omitempty"`
	Version      string `json:"upstream_version,omitempty"`
	Error        string `json:"error,omitempty"`
}

// EnginesResponse lists the reorder engines a config can name in lang.
type EnginesResponse struct {
	Engines []string `json:"engines"`
}
