package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// publicRoutes are the registered route patterns reachable without a token.
var publicRoutes = map[string]bool{
	"/health":               true,
	"/health/db":            true,
	"/metrics":              true,
	"/api/v1/auth/login":    true,
	"/api/v1/auth/register": true,
	"/api/v1/auth/refresh":  true,
}

// AuthSkipper reports whether the matched route bypasses authentication.
// CORS preflights never carry credentials and are skipped too.
func AuthSkipper(c echo.Context) bool {
	if c.Request().Method == http.MethodOptions {
		return true
	}
	return publicRoutes[c.Path()]
}
