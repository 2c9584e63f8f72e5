// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package proxy

import "context"

type contextKey int

const rerankDisabledKey contextKey = iota

// WithRerankDisabled marks ctx so that searches made with it are forwarded
// without reranking. The retry of a reshuffled query carries this marker.
func WithRerankDisabled(ctx context.Context) context.Context {
	return context.WithValue(ctx, rerankDisabledKey, true)
}

// RerankDisabled reports whether ctx carries the marker.
func RerankDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(rerankDisabledKey).(bool)
	return v
}
