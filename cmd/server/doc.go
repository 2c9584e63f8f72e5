// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package main is the entry point for the Dynarank server.

Dynarank is a reverse proxy in front of an Elasticsearch compatible cluster.
Searches against an index that declares a rerank script are widened to the
index's reorder window, reordered for diversity and sliced back to the page
the caller asked for. Every other request is forwarded untouched.

# Application Architecture

	RootSupervisor ("dynarank")
	├── ConfigSupervisor ("config-layer")
	│   ├── config-reaper, cache-cleaner
	│   ├── settings-watcher        (RERANK_SOURCE=file)
	│   ├── invalidation-listener   (NATS_ENABLED=true)
	│   ├── nats-server             (NATS_EMBEDDED=true)
	│   └── lockout-cleanup, uptime
	└── APISupervisor ("api-layer")
	    └── http-server

Startup order:

 1. Configuration: koanf v2 (defaults, config file, environment)
 2. Logging: zerolog with JSON or console output
 3. Upstream client: rate limited HTTP client behind a gobreaker circuit breaker
 4. Rerank engines: bucket diversity engine and field sort engine
 5. Config source: index settings, settings file or badger store
 6. Config cache with reaper and cleaner services
 7. Invalidation events over NATS (optional)
 8. Admin API: JWT authentication and casbin authorization
 9. HTTP server: chi router with search, admin and passthrough routes

# Configuration

Highest priority wins:
  - Environment variables (UPSTREAM_URL, RERANK_SOURCE, AUTH_MODE, ...)
  - Config file (CONFIG_PATH, then ./config.yaml, /etc/dynarank/config.yaml)
  - Built-in defaults

With AUTH_MODE=jwt (default) the admin API needs:
  - JWT_SECRET: 32+ character secret for token signing
  - ADMIN_USERNAME, ADMIN_PASSWORD or security.users in the config file

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
in-flight requests for SHUTDOWN_TIMEOUT, a reaper cycle in progress runs to
completion, then the config store and event bus are closed.

# Example Usage

	export UPSTREAM_URL=http://localhost:9200
	export AUTH_MODE=none
	./dynarank

	curl -s 'localhost:9280/products/_search?size=10' -d '{"query":{"match":{"title":"shoes"}}}'

Store source with two replicas sharing invalidations:

	export RERANK_SOURCE=store
	export RERANK_STORE_PATH=/data/dynarank
	export NATS_ENABLED=true
	export NATS_URL=nats://nats:4222
	export JWT_SECRET=$(openssl rand -base64 32)
	export ADMIN_PASSWORD=secure-password
	./dynarank

# Port 9280

The default port sits next to Elasticsearch's 9200 so that clients only
change the port to go through the proxy.
*/
package main
