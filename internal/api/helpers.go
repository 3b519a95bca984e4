// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

// Package api implements the HTTP surface: the resolution endpoint, the
// auth token endpoint, the echo endpoint, and the middleware stack.
package api

import (
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/locus/internal/logging"
	"github.com/tomtom215/locus/internal/models"
)

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// respondFailure writes the uniform failure envelope. Resolution failures
// deliberately ship with HTTP 200; clients distinguish outcomes by the
// status field in the body, not the status line.
func respondFailure(w http.ResponseWriter, httpStatus int, message string) {
	respondJSON(w, httpStatus, models.FailureResponse{
		Status: "FAILURE",
		Error:  message,
	})
}

// isJSONContentType reports whether the request declares a JSON body.
// Parameters like charset are tolerated.
func isJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mediaType := strings.TrimSpace(strings.Split(ct, ";")[0])
	return strings.EqualFold(mediaType, "application/json")
}

// sanitizeLogValue strips control characters from user-supplied values
// before they reach the log stream.
func sanitizeLogValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
