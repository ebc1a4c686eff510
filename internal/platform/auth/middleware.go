package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
	UserEmailKey contextKey = "user_email"
	ClaimsKey    contextKey = "claims"
)

// TokenExpiringHeader is set on responses whose access token expires
// within ExpiringThreshold so clients can refresh ahead of time.
const (
	TokenExpiringHeader = "X-Token-Expiring"
	ExpiringThreshold   = 60 * time.Minute
)

// DevUserID is the identity DevAuthMiddleware assigns to anonymous requests.
var DevUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// ActiveChecker reports whether a user exists and is active.
type ActiveChecker interface {
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

type JWTConfig struct {
	Tokens  *TokenIssuer
	Revoked RevocationStore
	Users   ActiveChecker
	Skipper func(c echo.Context) bool
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, err := BearerToken(c)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			claims, err := Authenticate(ctx, cfg, tokenStr, TokenTypeAccess)
			if err != nil {
				return err
			}

			if claims.ExpiresWithin(cfg.Tokens.now(), ExpiringThreshold) {
				c.Response().Header().Set(TokenExpiringHeader, "true")
			}

			c.SetRequest(c.Request().WithContext(WithClaims(ctx, claims)))
			return next(c)
		}
	}
}

// Authenticate verifies tokenStr and checks it against revocations and the
// owning user's status. Failures are returned as 401 HTTP errors.
func Authenticate(ctx context.Context, cfg JWTConfig, tokenStr, tokenType string) (*Claims, error) {
	claims, err := cfg.Tokens.Parse(tokenStr, tokenType)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "token expired")
		}
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	if cfg.Revoked != nil {
		var issuedAt time.Time
		if claims.IssuedAt != nil {
			issuedAt = claims.IssuedAt.Time
		}
		revoked, err := cfg.Revoked.IsRevoked(ctx, claims.ID, claims.Subject, issuedAt)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("revocation lookup failed")
			return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "authentication unavailable")
		}
		if revoked {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
		}
	}

	if cfg.Users != nil {
		active, err := cfg.Users.IsActive(ctx, claims.UserID())
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "user not found")
		}
		if !active {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "account is inactive")
		}
	}
	return claims, nil
}

// DevAuthMiddleware serves requests without an Authorization header as an
// administrator. Requests that do carry a token are validated as usual.
func DevAuthMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	strict := JWTMiddleware(cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		validated := strict(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "" {
				return validated(c)
			}
			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, DevUserID.String())
			ctx = context.WithValue(ctx, UserRolesKey, []string{RoleAdmin})
			ctx = context.WithValue(ctx, UserEmailKey, "dev@hospitall.local")
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
	ctx = context.WithValue(ctx, UserRolesKey, []string{claims.Role})
	ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return ctx
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

// UserUUIDFromContext returns the authenticated user id, or uuid.Nil and
// false when the request is anonymous.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}

// RoleFromContext returns the primary role of the caller.
func RoleFromContext(ctx context.Context) string {
	roles := RolesFromContext(ctx)
	if len(roles) == 0 {
		return ""
	}
	return roles[0]
}

func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

// ClaimsFromContext is nil for dev-mode anonymous requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}

func HasRole(ctx context.Context, role string) bool {
	for _, r := range RolesFromContext(ctx) {
		if r == role {
			return true
		}
	}
	return false
}
