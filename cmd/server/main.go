// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

// Package main is the entry point for the Locus server.
//
// Locus resolves WiFi access-point scans to geographic positions through an
// external geolocation service, fronted by a two-tier in-memory cache so
// repeated scans of the same environment never re-hit the upstream quota.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: settings from environment variables and config files (Koanf v2)
//  2. Cache: the two-tier store (bounded long tier, staging short tier)
//  3. Resolver: the external geolocation client with circuit breaker and
//     outbound rate budget, or the canned resolver in test mode
//  4. Authentication: JWT or no-auth mode
//  5. HTTP Server: chi router behind the supervisor tree
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config.yaml, built-in defaults.
//
// Minimal production setup:
//
//	export RESOLVER_URL=https://geolocation.example.com/v1/resolve
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export ADMIN_USERNAME=admin
//	export ADMIN_PASSWORD=secure-password
//	./locus
//
// Test harness mode (canned resolver, no network, no auth):
//
//	export RESOLVER_TEST_MODE=true
//	export AUTH_MODE=none
//	./locus
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits for in-flight requests (10s timeout),
// then stops the cache janitor.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/locus/internal/api"
	"github.com/tomtom215/locus/internal/auth"
	"github.com/tomtom215/locus/internal/cache"
	"github.com/tomtom215/locus/internal/config"
	"github.com/tomtom215/locus/internal/geolocate"
	"github.com/tomtom215/locus/internal/logging"
	"github.com/tomtom215/locus/internal/supervisor"
	"github.com/tomtom215/locus/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Locus with supervisor tree")
	logging.Info().
		Str("resolver_url", cfg.Resolver.URL).
		Bool("test_mode", cfg.Resolver.TestMode).
		Str("auth_mode", cfg.Security.AuthMode).
		Int("cache_long_capacity", cfg.Cache.LongCapacity).
		Msg("Configuration loaded")

	if cfg.Resolver.TestMode {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  TEST MODE: resolver calls are answered with a canned fixture")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  Responses carry the cached flag and honor per-request TTLs.")
		logging.Warn().Msg("  NEVER run RESOLVER_TEST_MODE=true in production!")
		logging.Warn().Msg("============================================================")
	}

	if cfg.Security.AuthMode == "none" {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  All endpoints are publicly accessible without authentication!")
		logging.Warn().Msg("  This mode should ONLY be used for:")
		logging.Warn().Msg("    - Local development")
		logging.Warn().Msg("    - Completely isolated private networks")
		logging.Warn().Msg("    - CI/CD testing environments")
		logging.Warn().Msg("============================================================")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	// Cache store
	store := cache.NewTieredStore(cache.StoreConfig{
		LongCapacity: cfg.Cache.LongCapacity,
		LongTTL:      cfg.Cache.LongTTL,
		ShortTTL:     cfg.Cache.ShortTTL,
	})

	// Resolver selection
	var resolver geolocate.Resolver
	if cfg.Resolver.TestMode {
		resolver = geolocate.NewStaticResolver()
		logging.Info().Msg("Canned resolver active")
	} else {
		resolver = geolocate.NewHTTPResolver(geolocate.HTTPResolverConfig{
			URL:       cfg.Resolver.URL,
			Timeout:   cfg.Resolver.Timeout,
			RateLimit: cfg.Resolver.RateLimit,
		})
		logging.Info().
			Str("url", cfg.Resolver.URL).
			Float64("rate_limit", cfg.Resolver.RateLimit).
			Msg("External resolver client initialized")
	}

	orchestrator := geolocate.NewOrchestrator(store, resolver, geolocate.OrchestratorConfig{
		PacingDelay: cfg.Cache.PacingDelay,
		TestMode:    cfg.Resolver.TestMode,
	})

	// Authentication
	var jwtManager *auth.JWTManager
	if cfg.Security.AuthMode == "jwt" {
		jwtManager = auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
		logging.Info().Msg("JWT authentication enabled")
	}
	authMw := auth.NewMiddleware(jwtManager, cfg.Security.AuthMode)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	handler := api.NewHandler(cfg, orchestrator, jwtManager)
	router := api.NewRouter(cfg, handler, authMw)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree.AddCacheService(services.NewJanitorService(store, cfg.Cache.CleanupInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel until the supervisor finishes
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
