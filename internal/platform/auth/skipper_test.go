package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func skipperContext(method, route string) echo.Context {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(method, route, nil), httptest.NewRecorder())
	c.SetPath(route)
	return c
}

func TestAuthSkipper(t *testing.T) {
	tests := []struct {
		method string
		route  string
		skip   bool
	}{
		{http.MethodGet, "/health", true},
		{http.MethodGet, "/health/db", true},
		{http.MethodGet, "/metrics", true},
		{http.MethodPost, "/api/v1/auth/login", true},
		{http.MethodPost, "/api/v1/auth/register", true},
		{http.MethodPost, "/api/v1/auth/refresh", true},
		{http.MethodPost, "/api/v1/auth/logout", false},
		{http.MethodGet, "/api/v1/auth/verify", false},
		{http.MethodPost, "/api/v1/auth/revoke", false},
		{http.MethodGet, "/api/v1/appointments/available-slots", false},
		{http.MethodGet, "/api/v1/users/profile", false},
		{http.MethodOptions, "/api/v1/appointments", true},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.route, func(t *testing.T) {
			if got := AuthSkipper(skipperContext(tt.method, tt.route)); got != tt.skip {
				t.Errorf("AuthSkipper = %v, want %v", got, tt.skip)
			}
		})
	}
}
