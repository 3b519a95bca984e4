// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

// Package models defines the wire types shared by the API layer, the
// resolution pipeline, and the external resolver client.
package models

// AccessPoint is a single observed wireless transmitter in a scan.
// Only BSSID is semantically used by the resolution pipeline; the signal
// metadata is accepted for client convenience and never forwarded upstream.
type AccessPoint struct {
	BSSID     string `json:"bssid" validate:"required"`
	SSID      string `json:"ssid,omitempty"`
	Channel   int    `json:"channel,omitempty"`
	Frequency int    `json:"frequency,omitempty"`
	RSSI      int    `json:"rssi,omitempty"`
	Security  string `json:"security,omitempty"`
}

// ScanRequest is the inbound payload of the resolve route.
//
// TTL is a short-lived-tier retention override in seconds. It is honored
// only when the service runs in test mode; production requests carrying it
// are resolved as if it were absent.
type ScanRequest struct {
	APScanData []AccessPoint `json:"apscan_data" validate:"required,min=1,dive"`
	TTL        *float64      `json:"ttl,omitempty"`
}

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeoResult is the resolved position returned to clients and held in both
// cache tiers. Cached is set only on test-mode responses: true on a cache
// hit, false on a fresh resolution. It is never stored and never present in
// production responses.
type GeoResult struct {
	Location Location `json:"location"`
	Accuracy float64  `json:"accuracy"`
	Cached   *bool    `json:"cached,omitempty"`
}

// ResolverAccessPoint is the reshaped per-AP object the external resolver
// expects: the identifier alone, under the resolver's field name.
type ResolverAccessPoint struct {
	MACAddress string `json:"macAddress"`
}

// ResolverRequest is the outbound payload sent to the external resolver.
type ResolverRequest struct {
	APScanData []ResolverAccessPoint `json:"apscan_data"`
}

// ResolverResponse is the external resolver's reply. A nil Location means
// the resolver had no usable answer, regardless of transport status.
type ResolverResponse struct {
	Location *Location `json:"location"`
	Accuracy float64   `json:"accuracy"`
}

// FailureResponse is the uniform failure payload of the resolve route.
// All failure causes collapse to the same literal; callers cannot
// distinguish malformed input from an unreachable or empty-handed resolver.
type FailureResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// GeolocationFailureError is the literal error string of the uniform
// failure payload.
const GeolocationFailureError = "No geolocation Data from google"

// NewGeolocationFailure returns the uniform failure payload.
func NewGeolocationFailure() FailureResponse {
	return FailureResponse{
		Status: "FAILURE",
		Error:  GeolocationFailureError,
	}
}

// TokenResponse is the success payload of the login route.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// EchoResponse is the payload of the health/echo root route.
type EchoResponse struct {
	Status   string      `json:"status"`
	Response interface{} `json:"response"`
}
