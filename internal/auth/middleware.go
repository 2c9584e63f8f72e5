// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dynarank/internal/config"
	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/models"
)

type contextKey string

// ClaimsContextKey is the context key for JWT claims
const ClaimsContextKey contextKey = "claims"

// AnonymousUser is the username of requests in auth mode none.
const AnonymousUser = "anonymous"

var (
	errMissingToken  = errors.New("missing token")
	errInvalidHeader = errors.New("invalid authorization header")
)

// ContextWithClaims returns ctx carrying claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// ClaimsFromContext returns the claims set by Authenticate, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsContextKey).(*Claims)
	return claims
}

// Middleware authenticates admin API requests.
type Middleware struct {
	jwtManager *JWTManager
	authMode   string
}

// NewMiddleware creates the authentication middleware. jwtManager may be
// nil in auth mode none.
func NewMiddleware(jwtManager *JWTManager, authMode string) *Middleware {
	return &Middleware{jwtManager: jwtManager, authMode: authMode}
}

// Authenticate is middleware that enforces authentication
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == config.AuthModeNone {
			claims := &Claims{Username: AnonymousUser, Role: models.RoleAdmin}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
			return
		}

		token, err := extractBearerToken(r)
		if err != nil {
			writeUnauthorized(w, r, "Unauthorized: "+err.Error())
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			logging.LogSecurityEvent(r.Context(), &logging.SecurityEvent{
				Event:     "token_rejected",
				IPAddress: r.RemoteAddr,
				Resource:  r.URL.Path,
				Error:     err.Error(),
			})
			writeUnauthorized(w, r, "Unauthorized: invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errInvalidHeader
	}
	return parts[1], nil
}

// writeUnauthorized writes the API error envelope. The api package owns the
// envelope but imports this package, so the shape is repeated here.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	body := map[string]any{
		"success": false,
		"error": map[string]any{
			"code":       "UNAUTHORIZED",
			"message":    message,
			"request_id": logging.RequestIDFromContext(r.Context()),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="dynarank"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(body)
}
