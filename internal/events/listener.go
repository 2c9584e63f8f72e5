// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/metrics"
)

// Invalidator drops cached configs. *cache.ConfigCache implements it.
type Invalidator interface {
	Invalidate(key string) bool
	Clear() int
}

// Listener applies invalidations published by other replicas.
type Listener struct {
	bus    *Bus
	target Invalidator
}

// NewListener creates a listener applying messages from bus to target.
func NewListener(bus *Bus, target Invalidator) *Listener {
	return &Listener{bus: bus, target: target}
}

// Run processes messages until ctx is done or the subscription ends.
func (l *Listener) Run(ctx context.Context) error {
	messages, err := l.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", l.bus.Topic(), err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return ctx.Err()
			}
			l.handle(ctx, msg)
			msg.Ack()
		}
	}
}

// handle applies one message. Malformed messages are acked and dropped;
// redelivery would not make them readable.
func (l *Listener) handle(ctx context.Context, msg *message.Message) {
	logger := logging.Ctx(ctx)

	inv, err := decodeInvalidation(msg.Payload)
	if err != nil {
		metrics.EventsReceived.WithLabelValues("rejected").Inc()
		logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed invalidation")
		return
	}
	if inv.Origin == l.bus.NodeID() {
		metrics.EventsReceived.WithLabelValues("ignored").Inc()
		return
	}

	if inv.All {
		n := l.target.Clear()
		metrics.EventsReceived.WithLabelValues("clear").Inc()
		logger.Info().Str("origin", inv.Origin).Int("removed", n).Msg("config cache cleared by peer")
		return
	}
	removed := l.target.Invalidate(inv.Key)
	metrics.EventsReceived.WithLabelValues("invalidate").Inc()
	logger.Debug().Str("origin", inv.Origin).Str("key", inv.Key).Bool("removed", removed).Msg("config invalidated by peer")
}
