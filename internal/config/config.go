// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// It is immutable after Load() and safe for concurrent reads.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Rerank   RerankConfig   `koanf:"rerank"`
	Events   EventsConfig   `koanf:"events"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UpstreamConfig describes the search cluster the proxy fronts.
type UpstreamConfig struct {
	URL      string `koanf:"url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	APIKey   string `koanf:"api_key"`

	// Timeout bounds one upstream HTTP exchange.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries is the number of retries on 429 and 503 responses.
	MaxRetries     int           `koanf:"max_retries"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// RateLimit is the client side request rate in requests per second. 0 disables it.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// Rerank config sources.
const (
	SourceUpstream = "upstream"
	SourceFile     = "file"
	SourceStore    = "store"
)

// RerankConfig controls config resolution, caching and request signals.
type RerankConfig struct {
	// Source selects where index rerank settings are read from.
	Source string `koanf:"source"`

	// SettingsFile is the YAML file of the file source. It is watched for changes.
	SettingsFile string `koanf:"settings_file"`

	// StorePath is the badger directory of the store source. Empty means in-memory.
	StorePath string `koanf:"store_path"`

	// CacheExpire evicts entries this long after their last access. 0 means never.
	CacheExpire time.Duration `koanf:"cache_expire"`

	// CacheCleanInterval is how often expired entries are swept.
	CacheCleanInterval time.Duration `koanf:"cache_clean_interval"`

	// ReaperInterval is how often every cached config is re-resolved.
	ReaperInterval time.Duration `koanf:"reaper_interval"`

	// DefaultReorderSize applies to indices that do not set reorder_size.
	DefaultReorderSize int `koanf:"default_reorder_size"`

	// DisableHeader turns reranking off for a call when set to "false".
	DisableHeader string `koanf:"disable_header"`

	// MinTotalHitsHeader carries the minimum total hit count worth reranking.
	MinTotalHitsHeader string `koanf:"min_total_hits_header"`

	// BucketStrategies enables diversity bucket strategies by name.
	BucketStrategies []string `koanf:"bucket_strategies"`

	// DetectMinhashFields reads index mappings to find minhash typed fields.
	DetectMinhashFields bool `koanf:"detect_minhash_fields"`
}

// EventsConfig configures the cache invalidation broadcast.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Topic   string `koanf:"topic"`

	// EmbeddedServer starts an in-process NATS server listening on EmbeddedPort.
	EmbeddedServer bool   `koanf:"embedded_server"`
	EmbeddedHost   string `koanf:"embedded_host"`
	EmbeddedPort   int    `koanf:"embedded_port"`

	// NodeID identifies this replica. Generated when empty.
	NodeID string `koanf:"node_id"`

	ReconnectWait time.Duration `koanf:"reconnect_wait"`
	MaxReconnects int           `koanf:"max_reconnects"`
	CloseTimeout  time.Duration `koanf:"close_timeout"`
}

// SecurityConfig holds admin API authentication and authorization settings
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // jwt or none
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	Users             []UserConfig  `koanf:"users"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	// PolicyFile replaces the embedded casbin policy when set.
	PolicyFile string `koanf:"policy_file"`
}

// UserConfig is an additional local admin API account.
type UserConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Role     string `koanf:"role"`
}

// Auth modes.
const (
	AuthModeJWT  = "jwt"
	AuthModeNone = "none"
)

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, an optional config file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
