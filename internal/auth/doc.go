// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package auth authenticates admin API callers.

Accounts are local: the configured admin plus any extra users, each with a
role (admin, operator or viewer). Passwords are bcrypt hashed when the
process starts and never kept in clear. A successful login returns an
HS256 signed JWT carrying the username and role; every protected request
presents it as a Bearer token.

Repeated failed logins lock the account (and the client address) for a
growing period.

With auth_mode "none" every request is treated as the admin user. It is
meant for local development only.

Usage:

	users, _ := auth.NewUserStore(cfg.Security, bcrypt.DefaultCost)
	jwtManager, _ := auth.NewJWTManager(cfg.Security)
	mw := auth.NewMiddleware(jwtManager, cfg.Security.AuthMode)
	r.With(mw.Authenticate).Get("/api/v1/rerank/cache", handler)
*/
package auth
