// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

// Package logging provides the process-wide zerolog logger.
//
// The global logger is configured once from config.LoggingConfig via Init and
// is safe for concurrent use. Request scoped logging goes through Ctx, which
// attaches the request ID and the search target carried by the context:
//
//	ctx = logging.ContextWithTarget(ctx, "products")
//	logging.Ctx(ctx).Debug().Int("reorder_size", n).Msg("reranking window")
//
// Libraries that expect a *slog.Logger (suture, watermill) get one backed by
// the same zerolog output from NewSlogLogger.
//
// Admin API authentication outcomes are written through LogSecurityEvent,
// which strips control characters from user supplied values.
package logging
