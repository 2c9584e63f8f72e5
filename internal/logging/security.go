// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package logging

import (
	"context"
	"strings"
	"unicode"
)

// SecurityEvent is an admin API authentication or authorization outcome.
type SecurityEvent struct {
	// Event names what happened, e.g. "login", "token_rejected", "forbidden".
	Event string

	// Username is the account the request claimed, sanitized before logging.
	Username string

	// Role is the authenticated role, empty before authentication.
	Role string

	// IPAddress is the client address as resolved by the RealIP middleware.
	IPAddress string

	// Resource is the request path checked by authorization.
	Resource string

	// Success selects the log level: info on success, warn otherwise.
	Success bool

	// Error is a short reason for a failure (optional).
	Error string
}

const maxLoggedValue = 64

// LogSecurityEvent writes ev at info level, or warn when it failed.
func LogSecurityEvent(ctx context.Context, ev *SecurityEvent) {
	l := Ctx(ctx)
	e := l.Info()
	if !ev.Success {
		e = l.Warn()
	}
	e = e.Str("component", "auth").Str("event", ev.Event).Bool("success", ev.Success)

	if ev.Username != "" {
		e = e.Str("username", SanitizeValue(ev.Username))
	}
	if ev.Role != "" {
		e = e.Str("role", ev.Role)
	}
	if ev.IPAddress != "" {
		e = e.Str("ip", ev.IPAddress)
	}
	if ev.Resource != "" {
		e = e.Str("resource", SanitizeValue(ev.Resource))
	}
	if ev.Error != "" {
		e = e.Str("reason", SanitizeValue(ev.Error))
	}
	e.Msg("security event")
}

// SanitizeValue drops control characters and truncates long values so that
// client supplied strings cannot forge log lines.
func SanitizeValue(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if r := []rune(s); len(r) > maxLoggedValue {
		return string(r[:maxLoggedValue]) + "..."
	}
	return s
}
