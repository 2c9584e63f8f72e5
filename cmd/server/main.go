// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/tomtom215/dynarank/docs" // Import generated swagger docs
	"github.com/tomtom215/dynarank/internal/api"
	"github.com/tomtom215/dynarank/internal/auth"
	"github.com/tomtom215/dynarank/internal/authz"
	"github.com/tomtom215/dynarank/internal/cache"
	"github.com/tomtom215/dynarank/internal/config"
	"github.com/tomtom215/dynarank/internal/events"
	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/metrics"
	"github.com/tomtom215/dynarank/internal/proxy"
	"github.com/tomtom215/dynarank/internal/rerank"
	"github.com/tomtom215/dynarank/internal/rerank/bucket"
	"github.com/tomtom215/dynarank/internal/rerank/sorting"
	"github.com/tomtom215/dynarank/internal/search"
	"github.com/tomtom215/dynarank/internal/settings"
	"github.com/tomtom215/dynarank/internal/store"
	"github.com/tomtom215/dynarank/internal/supervisor"
	"github.com/tomtom215/dynarank/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	uptimeInterval  = 15 * time.Second
	lockoutInterval = 5 * time.Minute
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("upstream", cfg.Upstream.URL).
		Str("rerank_source", cfg.Rerank.Source).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("events", cfg.Events.Enabled).
		Msg("Starting Dynarank")

	started := time.Now()
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewComponentSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	client, err := search.NewClient(cfg.Upstream)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create upstream client")
	}
	upstream := search.NewBreakerClient(client, search.DefaultBreakerSettings())

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if info, err := upstream.Ping(pingCtx); err != nil {
		logging.Warn().Err(err).Msg("Upstream cluster not reachable yet, searches will fail until it is")
	} else {
		logging.Info().
			Str("cluster", info.ClusterName).
			Str("node", info.Name).
			Str("es_version", info.Version).
			Msg("Connected to upstream cluster")
	}
	pingCancel()

	strategies, err := bucket.NewStrategies(cfg.Rerank.BucketStrategies...)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid bucket strategies")
	}
	registry := rerank.NewRegistry(bucket.NewEngine(strategies), sorting.NewEngine())
	logging.Info().Strs("engines", registry.Names()).Msg("Rerank engines registered")

	src, err := openSource(cfg, upstream)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open rerank config source")
	}
	defer src.Close()

	configCache := cache.NewConfigCache(src.resolver, registry, cfg.Rerank.CacheExpire)

	tree.AddConfigService(services.NewReaperService(configCache, cfg.Rerank.ReaperInterval))
	if cfg.Rerank.CacheExpire > 0 {
		tree.AddConfigService(services.NewCleanerService(configCache, cfg.Rerank.CacheCleanInterval))
	}
	if src.file != nil {
		tree.AddConfigService(services.NewSettingsWatchService(src.file, func() {
			n := configCache.Clear()
			logging.Info().Int("removed", n).Msg("Config cache cleared after settings reload")
		}))
	}

	bus, err := startEvents(cfg.Events, tree, configCache)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to start invalidation events")
	}
	if bus != nil {
		defer func() {
			if err := bus.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event bus")
			}
		}()
	}

	pipeline := proxy.NewPipeline(configCache, upstream, proxy.Options{
		DisableHeader:      cfg.Rerank.DisableHeader,
		MinTotalHitsHeader: cfg.Rerank.MinTotalHitsHeader,
	})

	var jwtManager *auth.JWTManager
	switch cfg.Security.AuthMode {
	case config.AuthModeJWT:
		jwtManager, err = auth.NewJWTManager(cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		logging.Info().Msg("JWT authentication enabled")
	case config.AuthModeNone:
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Admin API authentication is DISABLED")
		logging.Warn().Msg("  Anyone reaching the admin API can change rerank configs.")
		logging.Warn().Msg("  Only use AUTH_MODE=none on isolated networks.")
		logging.Warn().Msg("============================================================")
	}

	users, err := auth.NewUserStore(cfg.Security, bcrypt.DefaultCost)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize admin accounts")
	}
	lockout := auth.NewLockout(auth.DefaultLockoutConfig())
	tree.AddConfigService(services.NewTickerService("lockout-cleanup", lockoutInterval, func(context.Context) {
		lockout.Cleanup()
	}))

	enforcer, err := authz.NewEnforcer(cfg.Security.PolicyFile)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Admin API rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	deps := api.Dependencies{
		Config:   cfg,
		Cache:    configCache,
		Compiler: registry,
		Upstream: upstream,
		Pipeline: pipeline,
		Users:    users,
		JWT:      jwtManager,
		Lockout:  lockout,
		Version:  version,
	}
	if src.store != nil {
		deps.Store = src.store
	}
	if bus != nil {
		deps.Events = bus
	}
	handler := api.NewHandler(deps)

	passthrough, err := api.NewPassthrough(cfg.Upstream, cfg.Rerank.DisableHeader, cfg.Rerank.MinTotalHitsHeader)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create passthrough proxy")
	}

	router := api.NewRouter(
		handler,
		api.NewChiMiddleware(api.NewChiMiddlewareConfig(cfg.Security)),
		auth.NewMiddleware(jwtManager, cfg.Security.AuthMode),
		authz.NewMiddleware(enforcer),
		passthrough,
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))

	tree.AddConfigService(services.NewTickerService("uptime", uptimeInterval, func(context.Context) {
		metrics.AppUptime.Set(time.Since(started).Seconds())
	}))

	if path := config.ConfigFile(); path != "" {
		stop, err := config.WatchConfigFile(path, func() {
			logging.Warn().Str("path", path).Msg("Configuration file changed, restart to apply")
		})
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Cannot watch configuration file")
		} else {
			defer func() { _ = stop() }()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// configSource is the resolver behind the config cache plus the concrete
// source when it needs extra wiring.
type configSource struct {
	resolver rerank.Resolver
	file     *settings.FileResolver
	store    *store.ConfigStore
}

func (s *configSource) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing config store")
	}
}

func openSource(cfg *config.Config, upstream settings.MetadataClient) (*configSource, error) {
	switch cfg.Rerank.Source {
	case config.SourceUpstream:
		logging.Info().Bool("detect_minhash", cfg.Rerank.DetectMinhashFields).Msg("Reading rerank configs from index settings")
		return &configSource{
			resolver: settings.NewUpstreamResolver(upstream, cfg.Rerank.DefaultReorderSize, cfg.Rerank.DetectMinhashFields),
		}, nil

	case config.SourceFile:
		fr, err := settings.NewFileResolver(cfg.Rerank.SettingsFile, cfg.Rerank.DefaultReorderSize)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("path", cfg.Rerank.SettingsFile).Int("keys", len(fr.Keys())).Msg("Reading rerank configs from settings file")
		return &configSource{resolver: fr, file: fr}, nil

	case config.SourceStore:
		db, err := store.Open(cfg.Rerank.StorePath)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("path", cfg.Rerank.StorePath).Msg("Reading rerank configs from badger store")
		return &configSource{resolver: db, store: db}, nil
	}
	return nil, fmt.Errorf("unknown rerank source %q", cfg.Rerank.Source)
}

// startEvents connects the invalidation bus and registers its services.
// It returns nil when events are disabled.
func startEvents(cfg config.EventsConfig, tree *supervisor.SupervisorTree, target events.Invalidator) (*events.Bus, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if cfg.EmbeddedServer {
		ns, err := events.NewEmbeddedServer(cfg.EmbeddedHost, cfg.EmbeddedPort)
		if err != nil {
			return nil, err
		}
		cfg.URL = ns.ClientURL()
		tree.AddConfigService(services.NewLifecycleService("nats-server", ns, cfg.CloseTimeout))
		logging.Info().Str("url", cfg.URL).Msg("Embedded NATS server started")
	}

	bus, err := events.NewBus(cfg, watermill.NewSlogLogger(logging.NewComponentSlogLogger("events")))
	if err != nil {
		return nil, err
	}
	tree.AddConfigService(services.NewRunnerService("invalidation-listener", events.NewListener(bus, target)))
	logging.Info().
		Str("url", cfg.URL).
		Str("topic", bus.Topic()).
		Str("node_id", bus.NodeID()).
		Msg("Cache invalidation events enabled")
	return bus, nil
}
