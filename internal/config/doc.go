// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package config provides layered configuration for the Dynarank proxy.

# Configuration Sources

Configuration is loaded with Koanf v2 in three layers, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file: CONFIG_PATH, or the first of DefaultConfigPaths that exists
 3. Environment variables, mapped explicitly through envTransformFunc

# Sections

  - server: listen address and HTTP timeouts
  - upstream: the Elasticsearch-compatible cluster behind the proxy
  - rerank: config source, cache expiry, reaper interval and request signal headers
  - events: NATS cache invalidation broadcast between replicas
  - security: admin API authentication, CORS and rate limiting
  - logging: zerolog level and format

# Environment Variables

Upstream:
  - UPSTREAM_URL: cluster base URL (default: http://localhost:9200)
  - UPSTREAM_USERNAME / UPSTREAM_PASSWORD: basic auth credentials
  - UPSTREAM_API_KEY: sent as "Authorization: ApiKey <key>"
  - UPSTREAM_TIMEOUT, UPSTREAM_MAX_RETRIES, UPSTREAM_RATE_LIMIT

Rerank:
  - RERANK_SOURCE: upstream, file or store (default: upstream)
  - RERANK_SETTINGS_FILE: YAML settings for the file source
  - RERANK_STORE_PATH: badger directory for the store source
  - RERANK_CACHE_EXPIRE: access based expiry, 0 disables (default: 0)
  - RERANK_REAPER_INTERVAL: refresh interval of cached configs (default: 60s)
  - RERANK_DEFAULT_REORDER_SIZE: window size when an index sets none (default: 100)
  - RERANK_BUCKET_STRATEGIES: comma separated enabled bucket strategies

Security:
  - AUTH_MODE: jwt or none (default: jwt)
  - JWT_SECRET: HS256 signing secret, at least 32 characters
  - ADMIN_USERNAME / ADMIN_PASSWORD: bootstrap admin account
  - CORS_ORIGINS, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
*/
package config
