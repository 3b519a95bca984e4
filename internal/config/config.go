// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

// Package config loads and validates the Locus runtime configuration.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, an optional YAML config file,
// built-in defaults.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Resolver ResolverConfig `koanf:"resolver"`
	Cache    CacheConfig    `koanf:"cache"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// ResolverConfig holds settings for the external geolocation resolver.
type ResolverConfig struct {
	// URL is the resolver endpoint. Required unless TestMode is set.
	URL string `koanf:"url"`

	// Timeout bounds a single resolver call. The original service had no
	// timeout at all; this is a deliberate hardening, not contract.
	Timeout time.Duration `koanf:"timeout"`

	// TestMode substitutes the canned resolver for the real one. It must
	// only ever be set by a test harness; it also gates the per-request TTL
	// override and the cached annotation on responses.
	TestMode bool `koanf:"test_mode"`

	// RateLimit caps outbound resolver calls per second so the upstream
	// quota is never reached.
	RateLimit float64 `koanf:"rate_limit"`
}

// CacheConfig holds the two-tier cache settings.
type CacheConfig struct {
	// LongCapacity bounds the long-lived tier's entry count. The oldest
	// inserted entry is evicted once the bound is exceeded.
	LongCapacity int `koanf:"long_capacity"`

	// LongTTL is the long-lived tier's per-entry retention.
	LongTTL time.Duration `koanf:"long_ttl"`

	// ShortTTL is the short-lived tier's default per-entry retention.
	ShortTTL time.Duration `koanf:"short_ttl"`

	// PacingDelay is imposed on every request before the cache check.
	PacingDelay time.Duration `koanf:"pacing_delay"`

	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// SecurityConfig holds authentication and admission-control settings.
type SecurityConfig struct {
	// AuthMode selects authentication for the resolve route: "jwt" or "none".
	AuthMode string `koanf:"auth_mode"`

	// JWTSecret signs access tokens. Minimum 32 characters in jwt mode.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTimeout is the access-token lifetime.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`

	// AdminPasswordHash, when set, takes precedence over AdminPassword and
	// is verified with bcrypt.
	AdminPasswordHash string `koanf:"admin_password_hash"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins    []string `koanf:"cors_origins"`
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for consistency before the service
// starts. It fails fast on anything that would only surface as a confusing
// runtime error later.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}

	if !c.Resolver.TestMode {
		if c.Resolver.URL == "" {
			return fmt.Errorf("resolver.url is required (set RESOLVER_URL)")
		}
		u, err := url.Parse(c.Resolver.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("resolver.url is not a valid absolute URL: %q", c.Resolver.URL)
		}
	}
	if c.Resolver.Timeout <= 0 {
		return fmt.Errorf("resolver.timeout must be positive, got %s", c.Resolver.Timeout)
	}
	if c.Resolver.RateLimit <= 0 {
		return fmt.Errorf("resolver.rate_limit must be positive, got %v", c.Resolver.RateLimit)
	}

	if c.Cache.LongCapacity <= 0 {
		return fmt.Errorf("cache.long_capacity must be positive, got %d", c.Cache.LongCapacity)
	}
	if c.Cache.LongTTL <= 0 || c.Cache.ShortTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Cache.PacingDelay < 0 {
		return fmt.Errorf("cache.pacing_delay must not be negative, got %s", c.Cache.PacingDelay)
	}

	switch c.Security.AuthMode {
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters in jwt mode")
		}
		if c.Security.AdminUsername == "" {
			return fmt.Errorf("security.admin_username is required in jwt mode")
		}
		if c.Security.AdminPassword == "" && c.Security.AdminPasswordHash == "" {
			return fmt.Errorf("security.admin_password or admin_password_hash is required in jwt mode")
		}
	case "none":
		// Explicitly allowed for development and test harnesses.
	default:
		return fmt.Errorf("security.auth_mode must be \"jwt\" or \"none\", got %q", c.Security.AuthMode)
	}

	return nil
}

// Load loads the configuration. Alias for LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
