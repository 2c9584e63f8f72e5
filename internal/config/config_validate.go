// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateUpstream(); err != nil {
		return err
	}
	if err := c.validateRerank(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateUpstream() error {
	if c.Upstream.URL == "" {
		return fmt.Errorf("UPSTREAM_URL is required")
	}
	if err := validateHTTPURL(c.Upstream.URL, "UPSTREAM_URL"); err != nil {
		return err
	}
	if c.Upstream.Username != "" && c.Upstream.APIKey != "" {
		return fmt.Errorf("UPSTREAM_USERNAME and UPSTREAM_API_KEY are mutually exclusive")
	}
	if c.Upstream.MaxRetries < 0 {
		return fmt.Errorf("UPSTREAM_MAX_RETRIES must not be negative")
	}
	if c.Upstream.RateLimit < 0 {
		return fmt.Errorf("UPSTREAM_RATE_LIMIT must not be negative")
	}
	if c.Upstream.RateLimit > 0 && c.Upstream.RateBurst < 1 {
		return fmt.Errorf("UPSTREAM_RATE_BURST must be at least 1 when a rate limit is set")
	}
	return nil
}

// knownBucketStrategies mirrors the strategies compiled into the bucket engine.
var knownBucketStrategies = map[string]bool{
	"standard": true,
	"minhash":  true,
}

func (c *Config) validateRerank() error {
	r := c.Rerank
	switch r.Source {
	case SourceUpstream, SourceStore:
	case SourceFile:
		if r.SettingsFile == "" {
			return fmt.Errorf("RERANK_SETTINGS_FILE is required when RERANK_SOURCE=file")
		}
	default:
		return fmt.Errorf("RERANK_SOURCE must be one of: upstream, file, store (got %q)", r.Source)
	}
	if r.CacheExpire < 0 {
		return fmt.Errorf("RERANK_CACHE_EXPIRE must not be negative")
	}
	if r.ReaperInterval <= 0 {
		return fmt.Errorf("RERANK_REAPER_INTERVAL must be positive")
	}
	if r.CacheExpire > 0 && r.CacheCleanInterval <= 0 {
		return fmt.Errorf("RERANK_CACHE_CLEAN_INTERVAL must be positive when RERANK_CACHE_EXPIRE is set")
	}
	if r.DefaultReorderSize < 1 {
		return fmt.Errorf("RERANK_DEFAULT_REORDER_SIZE must be at least 1")
	}
	if strings.TrimSpace(r.DisableHeader) == "" || strings.TrimSpace(r.MinTotalHitsHeader) == "" {
		return fmt.Errorf("rerank signal header names must not be empty")
	}
	if len(r.BucketStrategies) == 0 {
		return fmt.Errorf("RERANK_BUCKET_STRATEGIES must enable at least one strategy")
	}
	for _, s := range r.BucketStrategies {
		if !knownBucketStrategies[s] {
			return fmt.Errorf("unknown bucket strategy %q in RERANK_BUCKET_STRATEGIES", s)
		}
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("NATS_TOPIC is required when events are enabled")
	}
	if c.Events.EmbeddedServer {
		if c.Events.EmbeddedPort < 0 || c.Events.EmbeddedPort > 65535 {
			return fmt.Errorf("NATS_EMBEDDED_PORT must be between 0 and 65535")
		}
		return nil
	}
	if err := validateNATSURL(c.Events.URL); err != nil {
		return fmt.Errorf("NATS_URL invalid: %w", err)
	}
	return nil
}

var validRoles = map[string]bool{
	"admin":    true,
	"operator": true,
	"viewer":   true,
}

func (c *Config) validateSecurity() error {
	s := c.Security
	switch s.AuthMode {
	case AuthModeNone:
		return c.validateRateLimit()
	case AuthModeJWT:
	default:
		return fmt.Errorf("AUTH_MODE must be one of: jwt, none (got %q)", s.AuthMode)
	}

	if len(s.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if s.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if s.AdminPassword == "" && len(s.Users) == 0 {
		return fmt.Errorf("ADMIN_PASSWORD or security.users is required when AUTH_MODE=jwt")
	}
	if s.AdminPassword != "" && s.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required when ADMIN_PASSWORD is set")
	}
	seen := map[string]bool{s.AdminUsername: s.AdminPassword != ""}
	for i, u := range s.Users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("security.users[%d] needs username and password", i)
		}
		if !validRoles[u.Role] {
			return fmt.Errorf("security.users[%d] role must be one of: admin, operator, viewer", i)
		}
		if seen[u.Username] {
			return fmt.Errorf("security.users[%d]: duplicate username %q", i, u.Username)
		}
		seen[u.Username] = true
	}
	return c.validateRateLimit()
}

func (c *Config) validateRateLimit() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateHTTPURL validates that a URL is a base HTTP/HTTPS URL without query parameters.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}
	return nil
}

// validateNATSURL accepts nats://, tls://, ws:// and wss:// URLs with a host.
func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222)")
	}
	return nil
}
