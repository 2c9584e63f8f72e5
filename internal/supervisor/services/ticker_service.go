// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/dynarank/internal/logging"
)

// defaultCycleTimeout bounds one cycle when the service has none configured.
const defaultCycleTimeout = 5 * time.Minute

// TickerService runs a cycle function every interval.
//
// Each cycle gets a context detached from the supervisor's, so a shutdown
// request never interrupts a cycle halfway. Shutdown is observed between
// ticks. The ticker keeps running whatever the cycle does.
type TickerService struct {
	name         string
	interval     time.Duration
	cycleTimeout time.Duration
	cycle        func(ctx context.Context)
}

// NewTickerService creates a ticker service. With a non-positive interval the
// service idles until shutdown.
func NewTickerService(name string, interval time.Duration, cycle func(ctx context.Context)) *TickerService {
	return &TickerService{
		name:         name,
		interval:     interval,
		cycleTimeout: defaultCycleTimeout,
		cycle:        cycle,
	}
}

// WithCycleTimeout overrides the per-cycle deadline.
func (s *TickerService) WithCycleTimeout(d time.Duration) *TickerService {
	if d > 0 {
		s.cycleTimeout = d
	}
	return s
}

// Serve implements suture.Service.
func (s *TickerService) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	logger := logging.WithComponent(s.name)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Debug().Dur("interval", s.interval).Msg("ticker started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx, logger)
		}
	}
}

func (s *TickerService) runCycle(parent context.Context, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.cycleTimeout)
	defer cancel()
	ctx = logging.ContextWithLogger(ctx, logger)
	s.cycle(ctx)
}

// String implements fmt.Stringer.
func (s *TickerService) String() string {
	return s.name
}
