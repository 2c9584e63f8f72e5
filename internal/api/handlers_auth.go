// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package api

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/metrics"
	"github.com/tomtom215/dynarank/internal/models"
)

// Login handles admin API login
//
// @Summary Log in to the admin API
// @Description Checks username and password against the configured accounts and returns a bearer token. Repeated failures lock the account and the client address.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Credentials"
// @Success 200 {object} APIResponse{data=models.LoginResponse}
// @Failure 400 {object} APIResponse
// @Failure 401 {object} APIResponse
// @Failure 429 {object} APIResponse
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.jwt == nil || h.users == nil {
		rw.Error(http.StatusNotFound, ErrCodeNotFound, "Authentication is disabled")
		return
	}

	var req models.LoginRequest
	if !decodeBody(w, r, &req) || !validBody(w, r, &req) {
		return
	}

	ip := clientIP(r)
	event := &logging.SecurityEvent{
		Event:     "login",
		Username:  req.Username,
		IPAddress: ip,
		Resource:  r.URL.Path,
	}

	if locked, left := h.lockout.Locked(req.Username, ip); locked {
		metrics.LoginAttempts.WithLabelValues("locked").Inc()
		event.Error = "locked out"
		logging.LogSecurityEvent(r.Context(), event)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(left.Seconds()))))
		rw.TooManyRequests(fmt.Sprintf("Too many failed attempts, retry in %s", left.Round(time.Second)))
		return
	}

	role, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		if h.lockout.Fail(req.Username, ip) {
			event.Event = "account_locked"
		}
		event.Error = err.Error()
		logging.LogSecurityEvent(r.Context(), event)
		rw.Unauthorized("Invalid username or password")
		return
	}
	h.lockout.Succeed(req.Username, ip)

	token, expires, err := h.jwt.GenerateToken(req.Username, role)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to sign token")
		rw.InternalError("Failed to create token")
		return
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	event.Role = role
	event.Success = true
	logging.LogSecurityEvent(r.Context(), event)

	rw.Success(models.LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		Username:  req.Username,
		Role:      role,
	})
}

// clientIP returns the request address without its port. chi's RealIP has
// already replaced RemoteAddr when the proxy sits behind another one.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
