// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package services

import (
	"context"
	"fmt"
	"time"
)

// Watcher follows a settings source until ctx ends. *settings.FileResolver
// implements it.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// SettingsWatchService reloads the settings file on change and runs onChange
// after every successful reload. The caller typically clears the config cache.
type SettingsWatchService struct {
	watcher  Watcher
	onChange func()
}

// NewSettingsWatchService wraps w.
func NewSettingsWatchService(w Watcher, onChange func()) *SettingsWatchService {
	return &SettingsWatchService{watcher: w, onChange: onChange}
}

// Serve implements suture.Service.
func (s *SettingsWatchService) Serve(ctx context.Context) error {
	err := s.watcher.Watch(ctx, s.onChange)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *SettingsWatchService) String() string {
	return "settings-watcher"
}

// Runner is anything with a blocking Run loop, such as *events.Listener.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerService supervises a Runner. A Run that returns while ctx is still
// live is an error so suture restarts it.
type RunnerService struct {
	name   string
	runner Runner
}

// NewRunnerService wraps r under the given service name.
func NewRunnerService(name string, r Runner) *RunnerService {
	return &RunnerService{name: name, runner: r}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		return fmt.Errorf("%s stopped unexpectedly", s.name)
	}
	return err
}

func (s *RunnerService) String() string {
	return s.name
}

// Shutdowner is a resource started outside the tree that must be stopped
// when the tree stops, like *events.EmbeddedServer.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// LifecycleService ties a running resource to the tree. It fails when the
// resource stops on its own and shuts it down when ctx ends.
type LifecycleService struct {
	name            string
	resource        Shutdowner
	checkInterval   time.Duration
	shutdownTimeout time.Duration
}

// NewLifecycleService wraps resource.
func NewLifecycleService(name string, resource Shutdowner, shutdownTimeout time.Duration) *LifecycleService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &LifecycleService{
		name:            name,
		resource:        resource,
		checkInterval:   5 * time.Second,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service.
func (s *LifecycleService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.resource.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("%s shutdown failed: %w", s.name, err)
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.resource.IsRunning() {
				return fmt.Errorf("%s is no longer running", s.name)
			}
		}
	}
}

func (s *LifecycleService) String() string {
	return s.name
}
