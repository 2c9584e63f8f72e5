// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dynarank/internal/auth"
	"github.com/tomtom215/dynarank/internal/cache"
	"github.com/tomtom215/dynarank/internal/config"
	"github.com/tomtom215/dynarank/internal/models"
	"github.com/tomtom215/dynarank/internal/rerank"
	"github.com/tomtom215/dynarank/internal/search"
	"github.com/tomtom215/dynarank/internal/validation"
)

// maxAdminBody bounds admin API request bodies.
const maxAdminBody = 4 << 20

// PlanCache is the admin view of the rerank config cache.
// *cache.ConfigCache implements it.
type PlanCache interface {
	Get(ctx context.Context, key string) (*rerank.Plan, error)
	Invalidate(key string) bool
	Clear() int
	Keys() []string
	Len() int
	GetStats() cache.Stats
	HitRate() float64
}

// Compiler turns a config into a plan. *rerank.Registry implements it.
type Compiler interface {
	Compile(cfg *models.RerankConfig) (*rerank.Plan, error)
	Names() []string
}

// ConfigStore persists configs and aliases. *store.ConfigStore implements it.
type ConfigStore interface {
	PutConfig(ctx context.Context, cfg *models.RerankConfig) error
	GetConfig(ctx context.Context, index string) (*models.RerankConfig, error)
	DeleteConfig(ctx context.Context, index string) error
	ListConfigs(ctx context.Context) ([]*models.RerankConfig, error)
	PutAlias(ctx context.Context, alias string, indices []string) error
	DeleteAlias(ctx context.Context, alias string) error
	ListAliases(ctx context.Context) (map[string][]string, error)
}

// Broadcaster tells other replicas to drop cached configs. *events.Bus implements it.
type Broadcaster interface {
	PublishInvalidation(ctx context.Context, key string) error
	PublishClear(ctx context.Context) error
}

// Upstream is the health view of the search cluster. *search.BreakerClient implements it.
type Upstream interface {
	Ping(ctx context.Context) (*search.ClusterInfo, error)
	State() string
}

// SearchPipeline runs a search through the rerank window. *proxy.Pipeline implements it.
type SearchPipeline interface {
	Search(ctx context.Context, req *search.Request) (*search.Response, error)
}

// Dependencies are the collaborators of the admin API and search handlers.
// Store and Events may be nil.
type Dependencies struct {
	Config   *config.Config
	Cache    PlanCache
	Compiler Compiler
	Store    ConfigStore
	Events   Broadcaster
	Upstream Upstream
	Pipeline SearchPipeline
	Users    *auth.UserStore
	JWT      *auth.JWTManager
	Lockout  *auth.Lockout
	Version  string
}

// Handler serves the admin API and the search endpoints.
type Handler struct {
	cfg       *config.Config
	cache     PlanCache
	compiler  Compiler
	store     ConfigStore
	events    Broadcaster
	upstream  Upstream
	pipeline  SearchPipeline
	users     *auth.UserStore
	jwt       *auth.JWTManager
	lockout   *auth.Lockout
	version   string
	startTime time.Time
}

// NewHandler creates a handler.
func NewHandler(deps Dependencies) *Handler {
	lockout := deps.Lockout
	if lockout == nil {
		lockout = auth.NewLockout(auth.DefaultLockoutConfig())
	}
	return &Handler{
		cfg:       deps.Config,
		cache:     deps.Cache,
		compiler:  deps.Compiler,
		store:     deps.Store,
		events:    deps.Events,
		upstream:  deps.Upstream,
		pipeline:  deps.Pipeline,
		users:     deps.Users,
		jwt:       deps.JWT,
		lockout:   lockout,
		version:   deps.Version,
		startTime: time.Now(),
	}
}

// decodeBody reads a JSON body into v. It writes the error response and
// returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	rw := NewResponseWriter(w, r)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAdminBody))
	if err != nil {
		rw.BadRequest("Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		rw.BadRequest("Invalid JSON body: " + err.Error())
		return false
	}
	return true
}

// validBody validates v and writes a VALIDATION_ERROR response when it fails.
func validBody(w http.ResponseWriter, r *http.Request, v any) bool {
	rw := NewResponseWriter(w, r)
	if verr := validation.ValidateStruct(v); verr != nil {
		rw.ValidationError(verr)
		return false
	}
	return true
}
