package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func serveWithHeaders(tls bool, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/medical-records", nil)
	rec := httptest.NewRecorder()
	err := SecurityHeaders(tls)(handler)(e.NewContext(req, rec))
	return rec, err
}

func TestSecurityHeaders_NoStore(t *testing.T) {
	rec, err := serveWithHeaders(false, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"diagnosis": "x"})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, kv := range apiHeaders {
		if got := rec.Header().Get(kv[0]); got != kv[1] {
			t.Errorf("%s: got %q, want %q", kv[0], got, kv[1])
		}
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("patient data must not be cacheable")
	}
}

func TestSecurityHeaders_HSTSOnlyWithTLS(t *testing.T) {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	rec, _ := serveWithHeaders(false, ok)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("plain HTTP must not announce HSTS, got %q", got)
	}
	rec, _ = serveWithHeaders(true, ok)
	if got := rec.Header().Get("Strict-Transport-Security"); got != hstsValue {
		t.Errorf("expected HSTS %q, got %q", hstsValue, got)
	}
}

func TestSecurityHeaders_SetOnHandlerError(t *testing.T) {
	rec, err := serveWithHeaders(true, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "appointment conflict")
	})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected the handler's 409 to propagate, got %v", err)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected headers on error responses")
	}
}
