// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package api

import (
	"crypto/subtle"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/locus/internal/auth"
	"github.com/tomtom215/locus/internal/config"
	"github.com/tomtom215/locus/internal/geolocate"
	"github.com/tomtom215/locus/internal/logging"
	"github.com/tomtom215/locus/internal/metrics"
	"github.com/tomtom215/locus/internal/models"
	"github.com/tomtom215/locus/internal/validation"
)

// maxRequestBodyBytes bounds how much of a request body is read.
const maxRequestBodyBytes = 1 << 20 // 1 MiB

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	cfg          *config.Config
	orchestrator *geolocate.Orchestrator
	jwtManager   *auth.JWTManager
}

// NewHandler creates the API handler.
func NewHandler(cfg *config.Config, orchestrator *geolocate.Orchestrator, jwtManager *auth.JWTManager) *Handler {
	return &Handler{
		cfg:          cfg,
		orchestrator: orchestrator,
		jwtManager:   jwtManager,
	}
}

// Root echoes the request body back. Any JSON body is wrapped in a SUCCESS
// envelope; a body that does not decode is answered with the decode error.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		respondFailure(w, http.StatusOK, err.Error())
		return
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		respondFailure(w, http.StatusOK, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, models.EchoResponse{
		Status:   "SUCCESS",
		Response: decoded,
	})
}

// Login exchanges admin credentials for an access token. The request is an
// OAuth2 password-grant form.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondFailure(w, http.StatusBadRequest, "invalid form data")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	if !h.checkCredentials(username, password) {
		metrics.AuthFailures.WithLabelValues("credentials").Inc()
		logging.Warn().
			Str("username", sanitizeLogValue(username)).
			Str("remote_addr", r.RemoteAddr).
			Msg("Login failed")
		respondFailure(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}

	token, err := h.jwtManager.GenerateToken(username)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to generate token")
		respondFailure(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// checkCredentials verifies the admin credentials. A configured bcrypt hash
// takes precedence over the plaintext password.
func (h *Handler) checkCredentials(username, password string) bool {
	sec := h.cfg.Security

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(sec.AdminUsername)) == 1

	if sec.AdminPasswordHash != "" {
		passOK := bcrypt.CompareHashAndPassword([]byte(sec.AdminPasswordHash), []byte(password)) == nil
		return userOK && passOK
	}

	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(sec.AdminPassword)) == 1
	return userOK && passOK
}

// Resolve handles a scan submission. Every failure, whatever its cause,
// answers with the single uniform failure envelope so callers cannot
// distinguish an upstream outage from a definitive no-position answer.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		respondFailure(w, http.StatusOK, "Only JSON Objects valid")
		return
	}

	var scan models.ScanRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes)).Decode(&scan); err != nil {
		respondFailure(w, http.StatusOK, err.Error())
		return
	}

	if err := validation.ValidateStruct(&scan); err != nil {
		logging.Debug().
			Str("error", err.Error()).
			Msg("Scan validation failed")
		respondJSON(w, http.StatusOK, models.NewGeolocationFailure())
		return
	}

	result, err := h.orchestrator.Resolve(r.Context(), &scan)
	if err != nil {
		respondJSON(w, http.StatusOK, models.NewGeolocationFailure())
		return
	}

	respondJSON(w, http.StatusOK, result)
}
