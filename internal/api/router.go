// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/locus/internal/auth"
	"github.com/tomtom215/locus/internal/config"
)

// Router assembles the chi router for the service.
type Router struct {
	cfg     *config.Config
	handler *Handler
	authMw  *auth.Middleware
	mw      *ChiMiddleware
}

// NewRouter creates the router assembler.
func NewRouter(cfg *config.Config, handler *Handler, authMw *auth.Middleware) *Router {
	return &Router{
		cfg:     cfg,
		handler: handler,
		authMw:  authMw,
		mw:      NewChiMiddleware(cfg),
	}
}

// Setup builds the routing tree.
//
//	GET|POST /                   echo
//	POST     /api/v1             resolve (authenticated, rate limited)
//	POST     /api/v1/auth/token  token exchange
//	GET      /metrics            Prometheus metrics
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(rt.mw.RequestIDWithLogging)
	r.Use(rt.mw.SecurityHeaders)
	r.Use(rt.mw.CORS())

	r.Get("/", rt.handler.Root)
	r.Post("/", rt.handler.Root)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(rt.mw.RateLimitAuth())
			r.Use(rt.mw.PrometheusMetrics("auth_token"))
			r.Post("/token", rt.handler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.mw.RateLimitResolve())
			r.Use(rt.mw.PrometheusMetrics("resolve"))
			r.Use(rt.authMw.Authenticate)
			r.Post("/", rt.handler.Resolve)
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
