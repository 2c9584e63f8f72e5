// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package proxy

import (
	"context"

	"github.com/tomtom215/dynarank/internal/rerank"
)

// Splice reorders the window of a widened response and cuts the caller's
// page out of it.
//
// When the response holds no more hits than the window, all of them are
// reordered and [from, from+size) is returned. Otherwise only the first
// window is reordered; the result is the reordered window from `from` on,
// followed by the remaining hits in upstream order. Retry outcomes are
// returned as they are.
func Splice(ctx context.Context, plan *rerank.Plan, hits []rerank.Hit, from, size int) (rerank.Outcome, error) {
	window := plan.ReorderSize()

	if len(hits) <= window {
		out, err := plan.Reorder(ctx, hits)
		if err != nil || out.Retry() {
			return out, err
		}
		return rerank.Reordered(Page(out.Hits(), from, size)), nil
	}

	out, err := plan.Reorder(ctx, hits[:window])
	if err != nil || out.Retry() {
		return out, err
	}
	head := out.Hits()
	if from > len(head) {
		from = len(head)
	}
	page := make([]rerank.Hit, 0, len(head)-from+len(hits)-window)
	page = append(page, head[from:]...)
	page = append(page, hits[window:]...)
	return rerank.Reordered(page), nil
}

// Page returns hits[from:from+size] clamped to the slice.
func Page(hits []rerank.Hit, from, size int) []rerank.Hit {
	if from >= len(hits) {
		return []rerank.Hit{}
	}
	end := len(hits)
	if size < end-from {
		end = from + size
	}
	return hits[from:end]
}
