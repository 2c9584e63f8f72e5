// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package events broadcasts config cache invalidations between proxy replicas.

An admin change on one replica publishes an Invalidation over core NATS
(no JetStream: a missed message only means waiting for the next reaper
cycle). Every replica, including the sender, subscribes without a queue
group; the sender recognises its own messages by origin and skips them.

	bus, _ := events.NewBus(cfg.Events, nil)
	_ = bus.PublishInvalidation(ctx, "products")

	listener := events.NewListener(bus, configCache)
	go listener.Run(ctx)

For single host deployments and tests, EmbeddedServer runs an in-process
NATS server.
*/
package events
