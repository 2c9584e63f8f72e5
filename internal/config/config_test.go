// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package config

import (
	"testing"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.AuthMode = AuthModeNone
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with auth none", func(*Config) {}, false},
		{"store source needs no path", func(c *Config) { c.Rerank.Source = SourceStore }, false},
		{"zero reaper interval", func(c *Config) { c.Rerank.ReaperInterval = 0 }, true},
		{"expire without clean interval", func(c *Config) {
			c.Rerank.CacheExpire = 1
			c.Rerank.CacheCleanInterval = 0
		}, true},
		{"zero reorder size", func(c *Config) { c.Rerank.DefaultReorderSize = 0 }, true},
		{"empty disable header", func(c *Config) { c.Rerank.DisableHeader = " " }, true},
		{"no strategies", func(c *Config) { c.Rerank.BucketStrategies = nil }, true},
		{"username and api key", func(c *Config) {
			c.Upstream.Username = "elastic"
			c.Upstream.APIKey = "abc"
		}, true},
		{"negative retries", func(c *Config) { c.Upstream.MaxRetries = -1 }, true},
		{"rate limit without burst", func(c *Config) {
			c.Upstream.RateLimit = 10
			c.Upstream.RateBurst = 0
		}, true},
		{"embedded events skip url", func(c *Config) {
			c.Events.Enabled = true
			c.Events.EmbeddedServer = true
			c.Events.URL = ""
		}, false},
		{"events without topic", func(c *Config) {
			c.Events.Enabled = true
			c.Events.Topic = ""
		}, true},
		{"jwt with bad user role", func(c *Config) {
			c.Security.AuthMode = AuthModeJWT
			c.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
			c.Security.Users = []UserConfig{{Username: "u", Password: "p", Role: "root"}}
		}, true},
		{"jwt with duplicate user", func(c *Config) {
			c.Security.AuthMode = AuthModeJWT
			c.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
			c.Security.AdminPassword = "pw"
			c.Security.Users = []UserConfig{{Username: "admin", Password: "p", Role: "viewer"}}
		}, true},
		{"jwt with users only", func(c *Config) {
			c.Security.AuthMode = AuthModeJWT
			c.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
			c.Security.Users = []UserConfig{{Username: "u", Password: "p", Role: "viewer"}}
		}, false},
		{"rate limit disabled skips checks", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, false},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logging.Level = level
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() with level %q error = %v", level, err)
			}
		})
	}
}

func TestValidateHTTPURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"http://localhost:9200", false},
		{"https://es.example.com", false},
		{"https://es.example.com/prefix", false},
		{"ftp://es.example.com", true},
		{"http://", true},
		{"http://es:9200?pretty=true", true},
		{"://bad", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := validateHTTPURL(tt.url, "UPSTREAM_URL")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateHTTPURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNATSURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"nats://localhost:4222", false},
		{"tls://nats.example.com:4222", false},
		{"ws://localhost:8080", false},
		{"wss://nats.example.com", false},
		{"http://localhost:4222", true},
		{"nats://", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := validateNATSURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateNATSURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
