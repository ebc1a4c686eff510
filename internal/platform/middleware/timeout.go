package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout puts a deadline on the request context. Handlers and the
// database calls beneath them observe the deadline; when it fires before
// the handler returns, the client receives 504.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				if err != nil && errors.Is(err, context.DeadlineExceeded) && !c.Response().Committed {
					return gatewayTimeout()
				}
				return err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					// Wait for the handler so it never writes to a recycled context.
					<-done
					if !c.Response().Committed {
						return gatewayTimeout()
					}
					return nil
				}
				return ctx.Err()
			}
		}
	}
}

func gatewayTimeout() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusGatewayTimeout, "request processing exceeded the allowed time limit")
}
