// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package authz

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dynarank/internal/auth"
	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/metrics"
)

// Middleware authorizes requests already authenticated by auth.Middleware.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware creates the authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Authorize checks the caller's role against the request path and method.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		if claims == nil {
			writeForbidden(w, r, "Forbidden: no authentication context")
			return
		}

		object := r.URL.Path
		action := methodToAction(r.Method)
		allowed, err := m.enforcer.Enforce(claims.Role, object, action)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Str("object", object).Msg("Authorization check failed")
			writeForbidden(w, r, "Forbidden: authorization check failed")
			return
		}
		if !allowed {
			metrics.AuthzDenied.WithLabelValues(claims.Role, action).Inc()
			logging.LogSecurityEvent(r.Context(), &logging.SecurityEvent{
				Event:     "access_denied",
				Username:  claims.Username,
				Role:      claims.Role,
				IPAddress: r.RemoteAddr,
				Resource:  r.Method + " " + object,
			})
			writeForbidden(w, r, "Forbidden: insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// methodToAction converts HTTP method to authorization action.
func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read"
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return "write"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

func writeForbidden(w http.ResponseWriter, r *http.Request, message string) {
	body := map[string]any{
		"success": false,
		"error": map[string]any{
			"code":       "FORBIDDEN",
			"message":    message,
			"request_id": logging.RequestIDFromContext(r.Context()),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(body)
}
