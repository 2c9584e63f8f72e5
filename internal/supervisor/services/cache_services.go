// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package services

import (
	"context"
	"time"

	"github.com/tomtom215/dynarank/internal/cache"
	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/metrics"
)

// Reaper re-resolves cached configs. *cache.ConfigCache implements it.
type Reaper interface {
	Reap(ctx context.Context) cache.ReapResult
}

// Cleaner sweeps expired cache entries. *cache.ConfigCache implements it.
type Cleaner interface {
	Cleanup() int
}

// NewReaperService refreshes every cached config each interval so that
// changed index settings reach the cache without a restart.
func NewReaperService(r Reaper, interval time.Duration) *TickerService {
	return NewTickerService("config-reaper", interval, func(ctx context.Context) {
		start := time.Now()
		res := r.Reap(ctx)
		elapsed := time.Since(start)
		metrics.RecordReap(res.Refreshed, res.Evicted, res.Failed, elapsed)

		ev := logging.Ctx(ctx).Debug()
		if res.Failed > 0 {
			ev = logging.Ctx(ctx).Warn()
		}
		ev.Int("refreshed", res.Refreshed).
			Int("evicted", res.Evicted).
			Int("failed", res.Failed).
			Dur("duration", elapsed).
			Msg("reaper cycle finished")
	})
}

// NewCleanerService removes entries idle for longer than the cache expiry.
func NewCleanerService(c Cleaner, interval time.Duration) *TickerService {
	return NewTickerService("cache-cleaner", interval, func(ctx context.Context) {
		if n := c.Cleanup(); n > 0 {
			logging.Ctx(ctx).Debug().Int("removed", n).Msg("expired configs removed")
		}
	})
}
