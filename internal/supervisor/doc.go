// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package supervisor runs Dynarank's long-lived services under suture v4.

	RootSupervisor ("dynarank")
	├── ConfigSupervisor ("config-layer")
	│   ├── config-reaper
	│   ├── cache-cleaner              (rerank.cache_expire > 0)
	│   ├── settings-watcher           (rerank.source = file)
	│   ├── invalidation-listener      (events.enabled)
	│   └── nats-server                (events.embedded_server)
	└── APISupervisor ("api-layer")
	    └── http-server

Services in the config layer keep the rerank config cache fresh. They can
crash and restart with backoff while the api layer goes on serving searches
from whatever is cached.

Supervisor events (service start, failure, backoff) are logged through
sutureslog onto an slog.Logger. Pass logging.NewComponentSlogLogger so they
end up in the zerolog stream with everything else.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewComponentSlogLogger("supervisor"), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddConfigService(services.NewReaperService(configCache, cfg.Rerank.ReaperInterval))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

See the services subpackage for the wrappers.
*/
package supervisor
