// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package auth

import (
	"context"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/locus/internal/logging"
	"github.com/tomtom215/locus/internal/metrics"
)

// contextKey is a private type for context values set by this package.
type contextKey string

const claimsContextKey contextKey = "auth_claims"

// Middleware enforces authentication on protected routes.
type Middleware struct {
	jwtManager *JWTManager

	// authMode is "jwt" or "none". In "none" mode every request passes
	// through unauthenticated.
	authMode string
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(jwtManager *JWTManager, authMode string) *Middleware {
	return &Middleware{
		jwtManager: jwtManager,
		authMode:   authMode,
	}
}

// Authenticate wraps a handler with token verification. Verified claims are
// placed in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == "none" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := extractToken(r)
		if tokenString == "" {
			m.unauthorized(w, "missing authentication token")
			return
		}

		claims, err := m.jwtManager.ValidateToken(tokenString)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("token").Inc()
			logging.Debug().
				Err(err).
				Str("remote_addr", r.RemoteAddr).
				Msg("Token validation failed")
			m.unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// unauthorized writes a 401 JSON error response.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "FAILURE",
		"error":  message,
	})
}

// ClaimsFromContext returns the verified claims placed by Authenticate,
// or nil if the request was not authenticated.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey).(*Claims)
	return claims
}

// extractToken pulls the token from the Authorization header or, failing
// that, the token cookie.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimPrefix(header, "Bearer ")
		}
	}

	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}
