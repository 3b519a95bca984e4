// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/locus/internal/auth"
	"github.com/tomtom215/locus/internal/cache"
	"github.com/tomtom215/locus/internal/config"
	"github.com/tomtom215/locus/internal/geolocate"
	"github.com/tomtom215/locus/internal/models"
)

const testJWTSecret = "handler-test-secret-of-sufficient-length"

// failingResolver always reports a definitive no-position answer.
type failingResolver struct{}

func (r *failingResolver) Resolve(_ context.Context, _ models.ResolverRequest) (models.GeoResult, error) {
	return models.GeoResult{}, geolocate.ErrNoLocation
}

// testServer bundles a router with its orchestrator for assertions.
type testServer struct {
	handler http.Handler
	cfg     *config.Config
}

func newTestServer(t *testing.T, authMode string, testMode bool, resolver geolocate.Resolver) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8000, Timeout: 30 * time.Second},
		Resolver: config.ResolverConfig{
			URL:       "http://resolver.invalid",
			Timeout:   5 * time.Second,
			TestMode:  testMode,
			RateLimit: 1000,
		},
		Cache: config.CacheConfig{
			LongCapacity:    10,
			LongTTL:         time.Hour,
			ShortTTL:        time.Hour,
			PacingDelay:     0,
			CleanupInterval: time.Minute,
		},
		Security: config.SecurityConfig{
			AuthMode:          authMode,
			JWTSecret:         testJWTSecret,
			SessionTimeout:    time.Hour,
			AdminUsername:     "admin",
			AdminPassword:     "swordfish",
			RateLimitReqs:     1000,
			RateLimitWindow:   time.Second,
			RateLimitDisabled: true,
			CORSOrigins:       []string{"*"},
		},
		Logging: config.LoggingConfig{Level: "error", Format: "json"},
	}

	store := cache.NewTieredStore(cache.StoreConfig{
		LongCapacity: cfg.Cache.LongCapacity,
		LongTTL:      cfg.Cache.LongTTL,
		ShortTTL:     cfg.Cache.ShortTTL,
	})
	if resolver == nil {
		resolver = geolocate.NewStaticResolver()
	}
	orchestrator := geolocate.NewOrchestrator(store, resolver, geolocate.OrchestratorConfig{
		PacingDelay: 0,
		TestMode:    testMode,
	})

	jwtManager := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
	authMw := auth.NewMiddleware(jwtManager, cfg.Security.AuthMode)
	handler := NewHandler(cfg, orchestrator, jwtManager)

	return &testServer{
		handler: NewRouter(cfg, handler, authMw).Setup(),
		cfg:     cfg,
	}
}

func (ts *testServer) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}

	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) resolve(body string) *httptest.ResponseRecorder {
	return ts.do(http.MethodPost, "/api/v1/", "application/json", body)
}

const validScan = `{"apscan_data":[{"bssid":"aa:bb:cc:dd:ee:01"},{"bssid":"aa:bb:cc:dd:ee:02"}]}`

func TestResolveSuccess(t *testing.T) {
	ts := newTestServer(t, "none", false, nil)

	rec := ts.resolve(validScan)
	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d, want 200", rec.Code)
	}

	var result models.GeoResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.Location.Lat != -26.2707593 || result.Location.Lng != 28.1122679 {
		t.Errorf("Got wrong location: %+v", result.Location)
	}
	if result.Accuracy != 1 {
		t.Errorf("Got accuracy %v, want 1", result.Accuracy)
	}
	if strings.Contains(rec.Body.String(), "cached") {
		t.Error("Production responses must not expose the cached field")
	}
}

func TestResolveRejectsNonJSONContentType(t *testing.T) {
	ts := newTestServer(t, "none", false, nil)

	for _, ct := range []string{"", "text/plain", "application/x-www-form-urlencoded"} {
		rec := ts.do(http.MethodPost, "/api/v1/", ct, validScan)
		if rec.Code != http.StatusOK {
			t.Errorf("Content type %q: got status %d, want 200", ct, rec.Code)
		}

		var failure models.FailureResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if failure.Status != "FAILURE" || failure.Error != "Only JSON Objects valid" {
			t.Errorf("Content type %q: got %+v", ct, failure)
		}
	}
}

func TestResolveAcceptsJSONWithCharset(t *testing.T) {
	ts := newTestServer(t, "none", false, nil)

	rec := ts.do(http.MethodPost, "/api/v1/", "application/json; charset=utf-8", validScan)
	if strings.Contains(rec.Body.String(), "Only JSON Objects valid") {
		t.Error("JSON content type with charset parameter should be accepted")
	}
}

func TestResolveDecodeErrorEchoed(t *testing.T) {
	ts := newTestServer(t, "none", false, nil)

	rec := ts.resolve(`{"apscan_data": not valid json`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d, want 200", rec.Code)
	}

	var failure models.FailureResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if failure.Status != "FAILURE" || failure.Error == "" {
		t.Errorf("Expected decode error in failure envelope, got %+v", failure)
	}
}

func TestResolveFailurePayloadUniform(t *testing.T) {
	ts := newTestServer(t, "none", false, &failingResolver{})

	// Missing apscan_data, empty apscan_data, and a resolver failure must
	// all produce the identical envelope.
	bodies := []string{
		`{}`,
		`{"apscan_data":[]}`,
		validScan,
	}

	want := `{"status":"FAILURE","error":"No geolocation Data from google"}`
	for _, body := range bodies {
		rec := ts.resolve(body)
		if rec.Code != http.StatusOK {
			t.Errorf("Body %s: got status %d, want 200", body, rec.Code)
		}
		got := strings.TrimSpace(rec.Body.String())
		if got != want {
			t.Errorf("Body %s: got %s, want %s", body, got, want)
		}
	}
}

func TestResolveCachedFlagInTestMode(t *testing.T) {
	ts := newTestServer(t, "none", true, nil)

	first := ts.resolve(validScan)
	var miss models.GeoResult
	if err := json.Unmarshal(first.Body.Bytes(), &miss); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if miss.Cached == nil || *miss.Cached {
		t.Errorf("First request should report cached=false, got %v", miss.Cached)
	}

	second := ts.resolve(validScan)
	var hit models.GeoResult
	if err := json.Unmarshal(second.Body.Bytes(), &hit); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if hit.Cached == nil || !*hit.Cached {
		t.Errorf("Second request should report cached=true, got %v", hit.Cached)
	}
}

func TestResolveZeroTTLNeverCachedInTestMode(t *testing.T) {
	ts := newTestServer(t, "none", true, nil)

	body := `{"apscan_data":[{"bssid":"aa:bb:cc:dd:ee:01"}],"ttl":0}`

	for i := 0; i < 3; i++ {
		rec := ts.resolve(body)
		var result models.GeoResult
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if result.Cached == nil || *result.Cached {
			t.Errorf("Request %d with ttl=0 should report cached=false, got %v", i, result.Cached)
		}
	}
}

func TestResolveOrderIndependentCaching(t *testing.T) {
	ts := newTestServer(t, "none", true, nil)

	ts.resolve(`{"apscan_data":[{"bssid":"aa:01"},{"bssid":"aa:02"}]}`)
	rec := ts.resolve(`{"apscan_data":[{"bssid":"aa:02"},{"bssid":"aa:01"}]}`)

	var result models.GeoResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.Cached == nil || !*result.Cached {
		t.Error("Reordered scan of the same access points should hit the cache")
	}
}

func TestRootEcho(t *testing.T) {
	ts := newTestServer(t, "none", false, nil)

	rec := ts.do(http.MethodPost, "/", "application/json", `{"hello":"world"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d, want 200", rec.Code)
	}

	var echo models.EchoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &echo); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if echo.Status != "SUCCESS" {
		t.Errorf("Got status %q, want SUCCESS", echo.Status)
	}
	obj, ok := echo.Response.(map[string]interface{})
	if !ok || obj["hello"] != "world" {
		t.Errorf("Echoed body mismatch: %+v", echo.Response)
	}
}

func TestRootEchoDecodeFailure(t *testing.T) {
	ts := newTestServer(t, "none", false, nil)

	rec := ts.do(http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d, want 200", rec.Code)
	}

	var failure models.FailureResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if failure.Status != "FAILURE" || failure.Error == "" {
		t.Errorf("Expected decode failure envelope, got %+v", failure)
	}
}

func TestLoginSuccess(t *testing.T) {
	ts := newTestServer(t, "jwt", false, nil)

	form := url.Values{
		"grant_type": {"password"},
		"username":   {"admin"},
		"password":   {"swordfish"},
	}
	rec := ts.do(http.MethodPost, "/api/v1/auth/token", "application/x-www-form-urlencoded", form.Encode())
	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var token models.TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &token); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if token.AccessToken == "" {
		t.Error("Expected non-empty access token")
	}
	if token.TokenType != "bearer" {
		t.Errorf("Got token type %q, want bearer", token.TokenType)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	ts := newTestServer(t, "jwt", false, nil)

	form := url.Values{
		"username": {"admin"},
		"password": {"wrong"},
	}
	rec := ts.do(http.MethodPost, "/api/v1/auth/token", "application/x-www-form-urlencoded", form.Encode())
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Got status %d, want 401", rec.Code)
	}
}

func TestResolveRequiresAuthInJWTMode(t *testing.T) {
	ts := newTestServer(t, "jwt", false, nil)

	rec := ts.resolve(validScan)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Got status %d, want 401", rec.Code)
	}
}

func TestResolveWithBearerToken(t *testing.T) {
	ts := newTestServer(t, "jwt", false, nil)

	form := url.Values{
		"username": {"admin"},
		"password": {"swordfish"},
	}
	loginRec := ts.do(http.MethodPost, "/api/v1/auth/token", "application/x-www-form-urlencoded", form.Encode())
	var token models.TokenResponse
	if err := json.Unmarshal(loginRec.Body.Bytes(), &token); err != nil {
		t.Fatalf("Failed to decode token response: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/", strings.NewReader(validScan))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var result models.GeoResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.Location.Lat != -26.2707593 {
		t.Errorf("Got wrong location: %+v", result.Location)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, "none", false, nil)

	rec := ts.do(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("Expected Prometheus exposition output")
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t, "none", false, nil)

	rec := ts.do(http.MethodGet, "/metrics", "", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID response header")
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, "none", false, nil)

	rec := ts.do(http.MethodGet, "/metrics", "", "")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected X-Content-Type-Options: nosniff")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("Expected X-Frame-Options: DENY")
	}
}
