// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package services provides suture.Service wrappers for Dynarank components.

Each wrapper turns a component lifecycle (ListenAndServe, Watch, Run,
Shutdown) into suture's context-aware Serve:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - runs the proxy listener, drains connections on shutdown

Config reaper (NewReaperService):
  - ticks at rerank.reaper_interval and re-resolves every cached config
  - records dynarank_reaper_* metrics

Cache cleaner (NewCleanerService):
  - ticks at rerank.cache_clean_interval and removes expired entries

Settings watcher (SettingsWatchService):
  - reloads the settings file source and clears the cache on change

Invalidation listener (RunnerService):
  - runs events.Listener, restarted by suture when the subscription drops

Embedded NATS (LifecycleService):
  - stops the in-process broker with the tree

Ticker cycles run on a context detached from shutdown, so a cycle in
progress always completes. Shutdown is seen at the next tick.
*/
package services
