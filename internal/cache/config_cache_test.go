// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/dynarank/internal/models"
	"github.com/tomtom215/dynarank/internal/rerank"
)

type identityEngine struct{}

func (identityEngine) Name() string { return "identity" }

func (identityEngine) Compile(cfg *models.RerankConfig) (rerank.Program, error) {
	if _, bad := cfg.Param("invalid"); bad {
		return nil, errors.New("invalid params")
	}
	return rerank.ProgramFunc(func(_ context.Context, hits []rerank.Hit) (rerank.Outcome, error) {
		return rerank.Reordered(hits), nil
	}), nil
}

// mockResolver serves configs from a map and counts calls.
type mockResolver struct {
	mu      sync.Mutex
	configs map[string]*models.RerankConfig
	errs    map[string]error
	calls   map[string]int
	gate    chan struct{}
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		configs: make(map[string]*models.RerankConfig),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (m *mockResolver) Resolve(_ context.Context, key string) (*models.RerankConfig, error) {
	m.mu.Lock()
	m.calls[key]++
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[key]; err != nil {
		return nil, err
	}
	return m.configs[key], nil
}

func (m *mockResolver) set(key string, cfg *models.RerankConfig) {
	m.mu.Lock()
	m.configs[key] = cfg
	m.mu.Unlock()
}

func (m *mockResolver) fail(key string, err error) {
	m.mu.Lock()
	m.errs[key] = err
	m.mu.Unlock()
}

func (m *mockResolver) callCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key]
}

func script(size int) *models.RerankConfig {
	return &models.RerankConfig{ScriptID: "identity", ReorderSize: size}
}

func newTestCache(r rerank.Resolver, expire time.Duration) *ConfigCache {
	return NewConfigCache(r, rerank.NewRegistry(identityEngine{}), expire)
}

func TestConfigCache_GetCachesResult(t *testing.T) {
	r := newMockResolver()
	r.set("docs", script(100))
	c := newTestCache(r, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		plan, err := c.Get(ctx, "docs")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if plan == nil || plan.ReorderSize() != 100 {
			t.Fatalf("Get() plan = %+v", plan)
		}
	}
	if got := r.callCount("docs"); got != 1 {
		t.Errorf("resolver calls = %d, want 1", got)
	}

	stats := c.GetStats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.TotalKeys != 1 {
		t.Errorf("stats = %+v", &stats)
	}
}

func TestConfigCache_NegativeResultCached(t *testing.T) {
	r := newMockResolver()
	c := newTestCache(r, 0)

	for i := 0; i < 2; i++ {
		plan, err := c.Get(context.Background(), "plain")
		if plan != nil || err != nil {
			t.Fatalf("Get(plain) = %v, %v; want nil, nil", plan, err)
		}
	}
	if got := r.callCount("plain"); got != 1 {
		t.Errorf("resolver calls = %d, want 1", got)
	}
}

func TestConfigCache_LookupErrorNotCached(t *testing.T) {
	r := newMockResolver()
	r.fail("docs", errors.New("connection refused"))
	c := newTestCache(r, 0)

	plan, err := c.Get(context.Background(), "docs")
	if plan != nil || err != nil {
		t.Fatalf("Get() = %v, %v; want nil, nil", plan, err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}

	r.fail("docs", nil)
	r.set("docs", script(10))
	plan, err = c.Get(context.Background(), "docs")
	if err != nil || plan == nil {
		t.Fatalf("Get() after recovery = %v, %v", plan, err)
	}
	if got := c.GetStats().LookupErrors; got != 1 {
		t.Errorf("LookupErrors = %d, want 1", got)
	}
}

func TestConfigCache_InvalidConfigFails(t *testing.T) {
	r := newMockResolver()
	r.set("docs", &models.RerankConfig{ScriptID: "identity", Params: map[string]any{"invalid": true}})
	r.set("unknown", &models.RerankConfig{ScriptID: "painless"})
	c := newTestCache(r, 0)

	for _, key := range []string{"docs", "unknown"} {
		for i := 0; i < 2; i++ {
			_, err := c.Get(context.Background(), key)
			if !errors.Is(err, rerank.ErrInvalidConfig) {
				t.Errorf("Get(%s) error = %v, want ErrInvalidConfig", key, err)
			}
		}
		if got := r.callCount(key); got != 1 {
			t.Errorf("resolver calls for %s = %d, want 1", key, got)
		}
	}
}

func TestConfigCache_InvalidSettingsFromResolver(t *testing.T) {
	r := newMockResolver()
	r.fail("docs", fmt.Errorf("%w: unknown script type \"painless\"", rerank.ErrInvalidConfig))
	c := newTestCache(r, 0)

	for i := 0; i < 3; i++ {
		plan, err := c.Get(context.Background(), "docs")
		if plan != nil {
			t.Errorf("Get() plan = %+v, want nil", plan)
		}
		if !errors.Is(err, rerank.ErrInvalidConfig) {
			t.Errorf("Get() error = %v, want ErrInvalidConfig", err)
		}
	}
	if got := r.callCount("docs"); got != 1 {
		t.Errorf("resolver calls = %d, want 1", got)
	}
	if got := c.GetStats().LookupErrors; got != 0 {
		t.Errorf("LookupErrors = %d, want 0", got)
	}
}

func TestConfigCache_ReapInvalidSettings(t *testing.T) {
	r := newMockResolver()
	r.set("docs", script(10))
	c := newTestCache(r, 0)
	ctx := context.Background()

	if _, err := c.Get(ctx, "docs"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	r.fail("docs", fmt.Errorf("%w: reorder_size is not an integer", rerank.ErrInvalidConfig))
	res := c.Reap(ctx)
	if res.Refreshed != 1 || res.Failed != 0 {
		t.Errorf("Reap() = %+v, want refreshed 1, failed 0", res)
	}

	_, err := c.Get(ctx, "docs")
	if !errors.Is(err, rerank.ErrInvalidConfig) {
		t.Errorf("Get() after reap error = %v, want ErrInvalidConfig", err)
	}
}

func TestConfigCache_SingleFlight(t *testing.T) {
	r := newMockResolver()
	r.set("docs", script(100))
	r.gate = make(chan struct{})
	c := newTestCache(r, 0)

	const callers = 20
	var wg sync.WaitGroup
	var got atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if plan, err := c.Get(context.Background(), "docs"); err == nil && plan != nil {
				got.Add(1)
			}
		}()
	}

	// Wait until the first resolution is in flight, then release it.
	deadline := time.Now().Add(2 * time.Second)
	for r.callCount("docs") == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(r.gate)
	wg.Wait()

	if n := r.callCount("docs"); n != 1 {
		t.Errorf("resolver calls = %d, want 1", n)
	}
	if got.Load() != callers {
		t.Errorf("successful callers = %d, want %d", got.Load(), callers)
	}
}

func TestConfigCache_CancelledCallerDoesNotBlock(t *testing.T) {
	r := newMockResolver()
	r.set("docs", script(100))
	r.gate = make(chan struct{})
	c := newTestCache(r, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Get(ctx, "docs"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get(cancelled) error = %v, want context.Canceled", err)
	}
	close(r.gate)
}

func TestConfigCache_Expiry(t *testing.T) {
	r := newMockResolver()
	r.set("docs", script(100))
	c := newTestCache(r, time.Minute)

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := c.Get(ctx, "docs"); err != nil {
		t.Fatal(err)
	}

	// Accessed within the window: stays and the access time moves forward.
	now = now.Add(50 * time.Second)
	_, _ = c.Get(ctx, "docs")
	now = now.Add(50 * time.Second)
	_, _ = c.Get(ctx, "docs")
	if got := r.callCount("docs"); got != 1 {
		t.Fatalf("resolver calls = %d, want 1", got)
	}

	now = now.Add(2 * time.Minute)
	if removed := c.Cleanup(); removed != 1 {
		t.Errorf("Cleanup() = %d, want 1", removed)
	}
	_, _ = c.Get(ctx, "docs")
	if got := r.callCount("docs"); got != 2 {
		t.Errorf("resolver calls after expiry = %d, want 2", got)
	}
}

func TestConfigCache_NeverExpires(t *testing.T) {
	r := newMockResolver()
	r.set("docs", script(100))
	c := newTestCache(r, 0)

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	_, _ = c.Get(context.Background(), "docs")

	now = now.Add(365 * 24 * time.Hour)
	if removed := c.Cleanup(); removed != 0 {
		t.Errorf("Cleanup() = %d, want 0", removed)
	}
	_, _ = c.Get(context.Background(), "docs")
	if got := r.callCount("docs"); got != 1 {
		t.Errorf("resolver calls = %d, want 1", got)
	}
}

func TestConfigCache_Reap(t *testing.T) {
	r := newMockResolver()
	r.set("changed", script(10))
	r.set("removed", script(10))
	r.set("unscripted", script(10))
	r.set("broken", script(10))
	c := newTestCache(r, 0)
	ctx := context.Background()

	for _, k := range []string{"changed", "removed", "unscripted", "broken"} {
		if _, err := c.Get(ctx, k); err != nil {
			t.Fatalf("Get(%s) error = %v", k, err)
		}
	}

	r.set("changed", script(50))
	r.set("removed", nil)
	r.set("unscripted", &models.RerankConfig{Lang: "identity"})
	r.fail("broken", errors.New("timeout"))

	res := c.Reap(ctx)
	if res.Refreshed != 1 || res.Evicted != 2 || res.Failed != 1 {
		t.Errorf("Reap() = %+v, want refreshed 1, evicted 2, failed 1", res)
	}

	keys := c.Keys()
	if len(keys) != 2 || keys[0] != "broken" || keys[1] != "changed" {
		t.Errorf("Keys() = %v, want [broken changed]", keys)
	}

	plan, _ := c.Get(ctx, "changed")
	if plan.ReorderSize() != 50 {
		t.Errorf("refreshed ReorderSize = %d, want 50", plan.ReorderSize())
	}
	plan, _ = c.Get(ctx, "broken")
	if plan == nil || plan.ReorderSize() != 10 {
		t.Errorf("entry with failing lookup should be kept, got %+v", plan)
	}
	if c.GetStats().LastReap.IsZero() {
		t.Error("LastReap not recorded")
	}
}

func TestConfigCache_InvalidateAndClear(t *testing.T) {
	r := newMockResolver()
	r.set("a", script(10))
	r.set("b", script(10))
	c := newTestCache(r, 0)
	ctx := context.Background()
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "b")

	if !c.Invalidate("a") {
		t.Error("Invalidate(a) = false, want true")
	}
	if c.Invalidate("missing") {
		t.Error("Invalidate(missing) = true, want false")
	}
	if n := c.Clear(); n != 1 {
		t.Errorf("Clear() = %d, want 1", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	if got := c.GetStats().Evictions; got != 2 {
		t.Errorf("Evictions = %d, want 2", got)
	}
}

func TestConfigCache_InvalidateDuringFill(t *testing.T) {
	r := newMockResolver()
	r.set("docs", script(10))
	r.gate = make(chan struct{})
	c := newTestCache(r, 0)

	done := make(chan struct{})
	go func() {
		_, _ = c.Get(context.Background(), "docs")
		close(done)
	}()
	for r.callCount("docs") == 0 {
		time.Sleep(time.Millisecond)
	}
	c.Invalidate("docs")
	close(r.gate)
	<-done

	if c.Len() != 0 {
		t.Errorf("stale fill was stored: Len() = %d, want 0", c.Len())
	}
}

func TestConfigCache_HitRate(t *testing.T) {
	r := newMockResolver()
	c := newTestCache(r, 0)
	if c.HitRate() != 0 {
		t.Errorf("HitRate() = %v, want 0", c.HitRate())
	}
	_, _ = c.Get(context.Background(), "x")
	_, _ = c.Get(context.Background(), "x")
	if got := c.HitRate(); got != 50 {
		t.Errorf("HitRate() = %v, want 50", got)
	}
}
