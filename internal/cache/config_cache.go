// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/metrics"
	"github.com/tomtom215/dynarank/internal/models"
	"github.com/tomtom215/dynarank/internal/rerank"
)

// CacheTypeRerankConfig is the cache_type label of the config cache metrics.
const CacheTypeRerankConfig = "rerank_config"

// Compiler turns a resolved config into an executable plan.
// *rerank.Registry implements it.
type Compiler interface {
	Compile(cfg *models.RerankConfig) (*rerank.Plan, error)
}

// entry is one cached resolution. A nil plan with a nil err records that the
// key does not rerank.
type entry struct {
	plan       *rerank.Plan
	err        error
	lastAccess atomic.Int64
}

// Stats tracks config cache activity.
type Stats struct {
	mu           sync.RWMutex
	Hits         int64     `json:"hits"`
	Misses       int64     `json:"misses"`
	Fills        int64     `json:"fills"`
	LookupErrors int64     `json:"lookup_errors"`
	Evictions    int64     `json:"evictions"`
	TotalKeys    int64     `json:"total_keys"`
	LastReap     time.Time `json:"last_reap"`
	LastCleanup  time.Time `json:"last_cleanup"`
}

// ReapResult summarises one reaper cycle.
type ReapResult struct {
	Refreshed int `json:"refreshed"`
	Evicted   int `json:"evicted"`
	Failed    int `json:"failed"`
}

// ConfigCache memoizes rerank plans per search target.
//
// Lookups take a read lock only. A miss resolves the target through the
// Resolver and compiles it; concurrent misses for the same key share a single
// resolution. Entries expire a fixed time after their last access when an
// expiry is configured, and never otherwise.
//
// Resolver failures are logged and answered with "no plan" without caching,
// so the next request tries again. Compile failures are cached like any other
// result and returned to every caller until the reaper or an invalidation
// replaces them.
//
// Example:
//
//	c := cache.NewConfigCache(resolver, registry, 0)
//	plan, err := c.Get(ctx, "products")
//	if err != nil {
//	    // invalid config: fail the request
//	}
//	if plan == nil {
//	    // pass through
//	}
type ConfigCache struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	resolver rerank.Resolver
	compiler Compiler
	expire   time.Duration
	group    singleflight.Group

	// epoch changes on every invalidation so that fills started before it
	// do not store their now stale result.
	epoch atomic.Uint64

	now   func() time.Time
	stats Stats
}

// NewConfigCache creates a cache. An expire of zero or less disables expiry.
func NewConfigCache(resolver rerank.Resolver, compiler Compiler, expire time.Duration) *ConfigCache {
	if expire < 0 {
		expire = 0
	}
	return &ConfigCache{
		entries:  make(map[string]*entry),
		resolver: resolver,
		compiler: compiler,
		expire:   expire,
		now:      time.Now,
	}
}

// Get returns the plan for key, resolving it on a miss.
//
// A nil plan with a nil error means the key does not rerank. A non-nil error
// wraps rerank.ErrInvalidConfig, or is the caller's context error when ctx is
// done before a shared resolution finishes.
func (c *ConfigCache) Get(ctx context.Context, key string) (*rerank.Plan, error) {
	if e, ok := c.lookup(key); ok {
		c.recordHit()
		return e.plan, e.err
	}
	c.recordMiss()

	// The resolution outlives a cancelled caller so that joined callers
	// are not failed by someone else's cancellation.
	fillCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fill(fillCtx, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		plan, _ := res.Val.(*rerank.Plan)
		return plan, nil
	}
}

// lookup returns a live entry and refreshes its access time.
func (c *ConfigCache) lookup(key string) (*entry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := c.now()
	if c.expired(e, now) {
		c.mu.Lock()
		cur, ok := c.entries[key]
		removed := ok && cur == e
		if removed {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		if removed {
			c.recordEvictions(1)
		}
		return nil, false
	}
	if c.expire > 0 {
		e.lastAccess.Store(now.UnixNano())
	}
	return e, true
}

func (c *ConfigCache) expired(e *entry, now time.Time) bool {
	if c.expire <= 0 {
		return false
	}
	return now.Sub(time.Unix(0, e.lastAccess.Load())) > c.expire
}

func (c *ConfigCache) fill(ctx context.Context, key string) (*rerank.Plan, error) {
	epoch := c.epoch.Load()

	cfg, err := c.resolver.Resolve(ctx, key)
	if errors.Is(err, rerank.ErrInvalidConfig) {
		logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("rerank config is invalid")
		c.store(key, nil, err, epoch)
		return nil, err
	}
	if err != nil {
		c.recordLookupError()
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("rerank config lookup failed, serving without reranking")
		return nil, nil
	}

	plan, err := c.compiler.Compile(cfg)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("rerank config is invalid")
	}

	c.store(key, plan, err, epoch)
	return plan, err
}

func (c *ConfigCache) store(key string, plan *rerank.Plan, err error, epoch uint64) {
	e := &entry{plan: plan, err: err}
	e.lastAccess.Store(c.now().UnixNano())

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch.Load() != epoch {
		return
	}
	c.entries[key] = e

	c.stats.mu.Lock()
	c.stats.Fills++
	c.updateSizeLocked()
	c.stats.mu.Unlock()
}

// Reap re-resolves every cached key. Keys that disappeared or no longer declare a
// script are evicted; the rest are replaced with freshly compiled plans.
// A failing lookup keeps the old entry and is counted in the result, unless
// the resolver reported the config itself as invalid: that error replaces the
// entry like a compile error does.
func (c *ConfigCache) Reap(ctx context.Context) ReapResult {
	var res ReapResult
	logger := logging.Ctx(ctx)

	for _, key := range c.Keys() {
		if ctx.Err() != nil {
			break
		}
		epoch := c.epoch.Load()

		cfg, err := c.resolver.Resolve(ctx, key)
		if errors.Is(err, rerank.ErrInvalidConfig) {
			logger.Error().Err(err).Str("key", key).Msg("refreshed rerank config is invalid")
			c.replace(key, nil, err, epoch)
			res.Refreshed++
			continue
		}
		if err != nil {
			res.Failed++
			c.recordLookupError()
			logger.Warn().Err(err).Str("key", key).Msg("failed to refresh rerank config")
			continue
		}
		if !cfg.HasScript() {
			c.evict(key)
			res.Evicted++
			continue
		}

		plan, cerr := c.compiler.Compile(cfg)
		if cerr != nil {
			logger.Error().Err(cerr).Str("key", key).Msg("refreshed rerank config is invalid")
		}
		c.replace(key, plan, cerr, epoch)
		res.Refreshed++
	}

	c.stats.mu.Lock()
	c.stats.LastReap = c.now()
	c.stats.mu.Unlock()
	return res
}

// replace swaps the plan of an existing key, keeping its access time.
func (c *ConfigCache) replace(key string, plan *rerank.Plan, err error, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.entries[key]
	if !ok || c.epoch.Load() != epoch {
		return
	}
	e := &entry{plan: plan, err: err}
	e.lastAccess.Store(old.lastAccess.Load())
	c.entries[key] = e
}

func (c *ConfigCache) evict(key string) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	if ok {
		c.recordEvictions(1)
	}
}

// Cleanup removes expired entries and returns how many were removed.
func (c *ConfigCache) Cleanup() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for key, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	c.recordEvictions(removed)
	c.stats.mu.Lock()
	c.stats.LastCleanup = now
	c.stats.mu.Unlock()
	return removed
}

// Invalidate drops a single key. It reports whether the key was cached.
func (c *ConfigCache) Invalidate(key string) bool {
	c.mu.Lock()
	c.epoch.Add(1)
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	c.group.Forget(key)

	if ok {
		c.recordEvictions(1)
	}
	return ok
}

// Clear drops every entry and returns how many were removed.
func (c *ConfigCache) Clear() int {
	c.mu.Lock()
	c.epoch.Add(1)
	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	c.recordEvictions(n)
	return n
}

// Keys returns the cached keys in sorted order.
func (c *ConfigCache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of cached keys.
func (c *ConfigCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the cache statistics.
func (c *ConfigCache) GetStats() Stats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return Stats{
		Hits:         c.stats.Hits,
		Misses:       c.stats.Misses,
		Fills:        c.stats.Fills,
		LookupErrors: c.stats.LookupErrors,
		Evictions:    c.stats.Evictions,
		TotalKeys:    c.stats.TotalKeys,
		LastReap:     c.stats.LastReap,
		LastCleanup:  c.stats.LastCleanup,
	}
}

// HitRate returns the hit rate as a percentage.
func (c *ConfigCache) HitRate() float64 {
	s := c.GetStats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// updateSizeLocked must be called with c.mu and c.stats.mu held.
func (c *ConfigCache) updateSizeLocked() {
	c.stats.TotalKeys = int64(len(c.entries))
	metrics.CacheSize.WithLabelValues(CacheTypeRerankConfig).Set(float64(len(c.entries)))
}

func (c *ConfigCache) recordHit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	metrics.CacheHits.WithLabelValues(CacheTypeRerankConfig).Inc()
}

func (c *ConfigCache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
	metrics.CacheMisses.WithLabelValues(CacheTypeRerankConfig).Inc()
}

func (c *ConfigCache) recordLookupError() {
	c.stats.mu.Lock()
	c.stats.LookupErrors++
	c.stats.mu.Unlock()
}

func (c *ConfigCache) recordEvictions(n int) {
	if n == 0 {
		return
	}
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	c.stats.mu.Lock()
	c.stats.Evictions += int64(n)
	c.stats.TotalKeys = int64(size)
	c.stats.mu.Unlock()
	metrics.CacheEvictions.WithLabelValues(CacheTypeRerankConfig).Add(float64(n))
	metrics.CacheSize.WithLabelValues(CacheTypeRerankConfig).Set(float64(size))
}
