package middleware

import (
	"github.com/labstack/echo/v4"
)

// apiHeaders apply to every JSON response. None of them depend on the
// request, so they are set before the handler runs and survive errors.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Cache-Control", "no-store"},
	{"Pragma", "no-cache"},
}

const hstsValue = "max-age=31536000; includeSubDomains"

// SecurityHeaders sets hardening headers on every response. Responses
// carry patient data and must never be cached by intermediaries.
// Strict-Transport-Security is only announced when the server itself
// terminates TLS; a plain HTTP deployment behind a proxy leaves it to the
// proxy.
func SecurityHeaders(tls bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range apiHeaders {
				h.Set(kv[0], kv[1])
			}
			if tls {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			return next(c)
		}
	}
}
