package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hospitall/hospitall/internal/platform/auth"
)

func TestRateLimit_RequestsWithinLimit(t *testing.T) {
	cfg := RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         5,
	}

	e := echo.New()
	handler := RateLimit(cfg)(okHandler)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("expected X-RateLimit-Limit 10, got %q", got)
		}
	}
}

func TestRateLimit_ExceedsLimit(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2}

	e := echo.New()
	handler := RateLimit(cfg)(okHandler)

	var lastErr error
	var lastRec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		lastRec = httptest.NewRecorder()
		lastErr = handler(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), lastRec))
	}

	httpErr, ok := lastErr.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", lastErr)
	}
	if httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", httpErr.Code)
	}
	if lastRec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if lastRec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("expected X-RateLimit-Remaining 0")
	}
}

func TestRateLimit_PerUserIsolation(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}
	e := echo.New()
	handler := RateLimit(cfg)(okHandler)

	as := func(uid string) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, uid))
		return handler(e.NewContext(req, httptest.NewRecorder()))
	}

	if err := as("user-a"); err != nil {
		t.Fatalf("user-a first request: %v", err)
	}
	if err := as("user-a"); err == nil {
		t.Fatal("expected user-a second request to be limited")
	}
	if err := as("user-b"); err != nil {
		t.Errorf("user-b should have its own bucket, got %v", err)
	}
}

func TestRateLimit_DefaultConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 || cfg.BurstSize != 200 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestRateLimiterStore_Sweep(t *testing.T) {
	store := newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute})
	now := time.Now()
	store.now = func() time.Time { return now }

	store.get("old")
	now = now.Add(2 * time.Minute)
	store.get("fresh")
	store.sweep()

	if store.size() != 1 {
		t.Errorf("expected 1 limiter after sweep, got %d", store.size())
	}
	if store.get("fresh") == nil {
		t.Error("expected fresh limiter to remain")
	}
}

func TestRateLimiterStore_SameKeySameLimiter(t *testing.T) {
	store := newRateLimiterStore(DefaultRateLimitConfig())
	if store.get("k") != store.get("k") {
		t.Error("expected the same limiter for the same key")
	}
}
