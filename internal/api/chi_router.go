// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/dynarank/internal/auth"
	"github.com/tomtom215/dynarank/internal/authz"
	"github.com/tomtom215/dynarank/internal/middleware"
)

const apiPrefix = "/api/v1"

// Router wires the admin API, the search endpoints and the passthrough.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	authn         *auth.Middleware
	authz         *authz.Middleware
	passthrough   http.Handler
}

// NewRouter creates a router. passthrough receives every request that is
// neither a search nor an admin API call.
func NewRouter(handler *Handler, chiMW *ChiMiddleware, authn *auth.Middleware, authzMW *authz.Middleware, passthrough http.Handler) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: chiMW,
		authn:         authn,
		authz:         authzMW,
		passthrough:   passthrough,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Search endpoints go through the rerank pipeline.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Get("/_search", router.handler.Search)
		r.Post("/_search", router.handler.Search)
		r.Get("/{target}/_search", router.handler.Search)
		r.Post("/{target}/_search", router.handler.Search)
	})

	r.Route(apiPrefix, func(r chi.Router) {
		r.Use(router.chiMiddleware.CORS())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", router.handler.Health)
		r.Get("/health/ready", router.handler.HealthReady)

		r.With(router.chiMiddleware.RateLimitLogin()).Post("/auth/login", router.handler.Login)

		r.Route("/rerank", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit("rerank"))
			r.Use(router.authn.Authenticate)
			r.Use(router.authz.Authorize)

			r.Get("/cache", router.handler.CacheStats)
			r.Delete("/cache", router.handler.CacheClear)
			r.Delete("/cache/{key}", router.handler.CacheInvalidate)

			r.Get("/engines", router.handler.Engines)
			r.Post("/preview", router.handler.Preview)

			r.Get("/configs", router.handler.ListConfigs)
			r.Get("/configs/{key}", router.handler.GetConfig)
			r.Put("/configs/{key}", router.handler.PutConfig)
			r.Delete("/configs/{key}", router.handler.DeleteConfig)

			r.Get("/aliases", router.handler.ListAliases)
			r.Put("/aliases/{alias}", router.handler.PutAlias)
			r.Delete("/aliases/{alias}", router.handler.DeleteAlias)
		})
	})

	// Everything else belongs to the search cluster.
	r.NotFound(router.fallback(http.StatusNotFound))
	r.MethodNotAllowed(router.fallback(http.StatusMethodNotAllowed))

	return r
}

// fallback answers unknown admin API paths itself and forwards the rest.
func (router *Router) fallback(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == apiPrefix || strings.HasPrefix(r.URL.Path, apiPrefix+"/") {
			code := ErrCodeNotFound
			if status == http.StatusMethodNotAllowed {
				code = "METHOD_NOT_ALLOWED"
			}
			WriteError(w, r, status, code, http.StatusText(status))
			return
		}
		router.passthrough.ServeHTTP(w, r)
	}
}
