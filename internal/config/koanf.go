// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is not set.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/dynarank/config.yaml",
	"/etc/dynarank/config.yml",
}

// ConfigPathEnvVar names the environment variable holding an explicit config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            9280,
			Host:            "0.0.0.0",
			Timeout:         60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Upstream: UpstreamConfig{
			URL:            "http://localhost:9200",
			Timeout:        30 * time.Second,
			MaxRetries:     3,
			RetryBaseDelay: 500 * time.Millisecond,
			RateLimit:      0,
			RateBurst:      100,
		},
		Rerank: RerankConfig{
			Source:              SourceUpstream,
			CacheExpire:         0,
			CacheCleanInterval:  60 * time.Second,
			ReaperInterval:      60 * time.Second,
			DefaultReorderSize:  100,
			DisableHeader:       "X-Dynarank-Rerank",
			MinTotalHitsHeader:  "X-Dynarank-Min-Total-Hits",
			BucketStrategies:    []string{"standard", "minhash"},
			DetectMinhashFields: true,
		},
		Events: EventsConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			Topic:          "dynarank.cache.invalidate",
			EmbeddedServer: false,
			EmbeddedHost:   "127.0.0.1",
			EmbeddedPort:   4222,
			ReconnectWait:  2 * time.Second,
			MaxReconnects:  -1,
			CloseTimeout:   10 * time.Second,
		},
		Security: SecurityConfig{
			AuthMode:        AuthModeJWT,
			SessionTimeout:  24 * time.Hour,
			AdminUsername:   "admin",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration in three layers: defaults, config file, environment.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ConfigFile returns the config file Load reads, or "" when none exists.
func ConfigFile() string {
	return findConfigFile()
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are the keys that accept comma separated environment values.
var sliceConfigPaths = []string{
	"rerank.bucket_strategies",
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"server_timeout":   "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Upstream
	"upstream_url":              "upstream.url",
	"upstream_username":         "upstream.username",
	"upstream_password":         "upstream.password",
	"upstream_api_key":          "upstream.api_key",
	"upstream_timeout":          "upstream.timeout",
	"upstream_max_retries":      "upstream.max_retries",
	"upstream_retry_base_delay": "upstream.retry_base_delay",
	"upstream_rate_limit":       "upstream.rate_limit",
	"upstream_rate_burst":       "upstream.rate_burst",

	// Rerank
	"rerank_source":                "rerank.source",
	"rerank_settings_file":         "rerank.settings_file",
	"rerank_store_path":            "rerank.store_path",
	"rerank_cache_expire":          "rerank.cache_expire",
	"rerank_cache_clean_interval":  "rerank.cache_clean_interval",
	"rerank_reaper_interval":       "rerank.reaper_interval",
	"rerank_default_reorder_size":  "rerank.default_reorder_size",
	"rerank_disable_header":        "rerank.disable_header",
	"rerank_min_total_hits_header": "rerank.min_total_hits_header",
	"rerank_bucket_strategies":     "rerank.bucket_strategies",
	"rerank_detect_minhash_fields": "rerank.detect_minhash_fields",

	// Events
	"nats_enabled":        "events.enabled",
	"nats_url":            "events.url",
	"nats_topic":          "events.topic",
	"nats_embedded":       "events.embedded_server",
	"nats_embedded_host":  "events.embedded_host",
	"nats_embedded_port":  "events.embedded_port",
	"nats_node_id":        "events.node_id",
	"nats_reconnect_wait": "events.reconnect_wait",
	"nats_max_reconnects": "events.max_reconnects",
	"nats_close_timeout":  "events.close_timeout",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"admin_username":      "security.admin_username",
	"admin_password":      "security.admin_password",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"authz_policy_file":   "security.policy_file",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are ignored.
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}

// WatchConfigFile calls callback whenever the file at path changes.
// The returned function stops the watch.
func WatchConfigFile(path string, callback func()) (func() error, error) {
	provider := file.Provider(path)
	err := provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
	if err != nil {
		return nil, err
	}
	return provider.Unwatch, nil
}
