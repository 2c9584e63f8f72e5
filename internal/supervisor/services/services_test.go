// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/dynarank/internal/cache"
)

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*TickerService)(nil)
	_ suture.Service = (*SettingsWatchService)(nil)
	_ suture.Service = (*RunnerService)(nil)
	_ suture.Service = (*LifecycleService)(nil)
)

// fakeHTTPServer blocks in ListenAndServe until Shutdown.
type fakeHTTPServer struct {
	listenErr   error
	shutdownErr error
	started     chan struct{}
	stop        chan struct{}
	shutdowns   atomic.Int32
	once        sync.Once
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{started: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	select {
	case f.started <- struct{}{}:
	default:
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.once.Do(func() { close(f.stop) })
	return f.shutdownErr
}

func TestHTTPServerService(t *testing.T) {
	t.Run("default shutdown timeout", func(t *testing.T) {
		for _, d := range []time.Duration{0, -time.Second} {
			svc := NewHTTPServerService(newFakeHTTPServer(), ":0", d)
			if svc.shutdownTimeout != 10*time.Second {
				t.Errorf("shutdownTimeout = %v, want 10s", svc.shutdownTimeout)
			}
		}
	})

	t.Run("graceful shutdown", func(t *testing.T) {
		srv := newFakeHTTPServer()
		svc := NewHTTPServerService(srv, ":0", time.Second)
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()
		<-srv.started
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
		if n := srv.shutdowns.Load(); n != 1 {
			t.Errorf("Shutdown calls = %d, want 1", n)
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		want := errors.New("bind: address already in use")
		srv := newFakeHTTPServer()
		srv.listenErr = want
		err := NewHTTPServerService(srv, ":0", time.Second).Serve(context.Background())
		if !errors.Is(err, want) {
			t.Errorf("Serve() = %v, want %v", err, want)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		want := errors.New("shutdown timeout")
		srv := newFakeHTTPServer()
		srv.shutdownErr = want
		svc := NewHTTPServerService(srv, ":0", time.Second)
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()
		<-srv.started
		cancel()

		if err := <-errCh; !errors.Is(err, want) {
			t.Errorf("Serve() = %v, want %v", err, want)
		}
	})
}

func TestTickerServiceRunsCycles(t *testing.T) {
	var cycles atomic.Int32
	svc := NewTickerService("test-ticker", 10*time.Millisecond, func(ctx context.Context) {
		cycles.Add(1)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
	}
	if n := cycles.Load(); n < 2 {
		t.Errorf("cycles = %d, want at least 2", n)
	}
}

func TestTickerServiceCycleIgnoresShutdown(t *testing.T) {
	entered := make(chan struct{})
	finished := make(chan error, 1)
	svc := NewTickerService("detached", 5*time.Millisecond, func(ctx context.Context) {
		select {
		case entered <- struct{}{}:
		default:
			return
		}
		time.Sleep(30 * time.Millisecond)
		finished <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	<-entered
	cancel()

	if err := <-finished; err != nil {
		t.Errorf("cycle ctx.Err() = %v, want nil", err)
	}
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}

func TestTickerServiceZeroIntervalIdles(t *testing.T) {
	called := false
	svc := NewTickerService("idle", 0, func(context.Context) { called = true })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)
	if called {
		t.Error("cycle ran with zero interval")
	}
	if svc.String() != "idle" {
		t.Errorf("String() = %q, want %q", svc.String(), "idle")
	}
}

type fakeReaper struct {
	calls atomic.Int32
	res   cache.ReapResult
}

func (f *fakeReaper) Reap(context.Context) cache.ReapResult {
	f.calls.Add(1)
	return f.res
}

type fakeCleaner struct{ calls atomic.Int32 }

func (f *fakeCleaner) Cleanup() int {
	f.calls.Add(1)
	return 1
}

func TestCacheServices(t *testing.T) {
	reaper := &fakeReaper{res: cache.ReapResult{Refreshed: 2, Failed: 1}}
	cleaner := &fakeCleaner{}

	sup := suture.New("test", suture.Spec{Timeout: time.Second})
	sup.Add(NewReaperService(reaper, 10*time.Millisecond))
	sup.Add(NewCleanerService(cleaner, 10*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	<-sup.ServeBackground(ctx)

	if reaper.calls.Load() == 0 {
		t.Error("reaper never ran")
	}
	if cleaner.calls.Load() == 0 {
		t.Error("cleaner never ran")
	}
}

type fakeWatcher struct {
	err     error
	changes int
}

func (f *fakeWatcher) Watch(ctx context.Context, onChange func()) error {
	for i := 0; i < f.changes; i++ {
		onChange()
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestSettingsWatchService(t *testing.T) {
	t.Run("forwards changes until shutdown", func(t *testing.T) {
		changed := 0
		svc := NewSettingsWatchService(&fakeWatcher{changes: 2}, func() { changed++ })

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
		}
		if changed != 2 {
			t.Errorf("changed = %d, want 2", changed)
		}
	})

	t.Run("watch error", func(t *testing.T) {
		want := errors.New("no such file")
		svc := NewSettingsWatchService(&fakeWatcher{err: want}, nil)
		if err := svc.Serve(context.Background()); !errors.Is(err, want) {
			t.Errorf("Serve() = %v, want %v", err, want)
		}
	})
}

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func TestRunnerService(t *testing.T) {
	boom := errors.New("subscription closed")
	tests := []struct {
		name    string
		run     runnerFunc
		cancel  bool
		wantErr error
		wantAny bool
	}{
		{"error surfaces", func(context.Context) error { return boom }, false, boom, false},
		{"nil return is a failure", func(context.Context) error { return nil }, false, nil, true},
		{"shutdown", func(ctx context.Context) error { <-ctx.Done(); return nil }, true, context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			if tt.cancel {
				cancel()
			}
			defer cancel()

			err := NewRunnerService("listener", tt.run).Serve(ctx)
			switch {
			case tt.wantAny:
				if err == nil {
					t.Error("Serve() = nil, want error")
				}
			case !errors.Is(err, tt.wantErr):
				t.Errorf("Serve() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

type fakeResource struct {
	running   atomic.Bool
	shutdowns atomic.Int32
}

func (f *fakeResource) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.running.Store(false)
	return nil
}

func (f *fakeResource) IsRunning() bool { return f.running.Load() }

func TestLifecycleService(t *testing.T) {
	t.Run("shuts resource down with the tree", func(t *testing.T) {
		res := &fakeResource{}
		res.running.Store(true)
		svc := NewLifecycleService("nats-server", res, time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
		}
		if n := res.shutdowns.Load(); n != 1 {
			t.Errorf("Shutdown calls = %d, want 1", n)
		}
	})

	t.Run("fails when resource stops", func(t *testing.T) {
		res := &fakeResource{}
		svc := NewLifecycleService("nats-server", res, time.Second)
		svc.checkInterval = 5 * time.Millisecond

		if err := svc.Serve(context.Background()); err == nil {
			t.Error("Serve() = nil, want error")
		}
	})
}
