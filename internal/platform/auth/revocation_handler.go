package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// revokeTokenRequest is the request body for POST /auth/revoke.
type revokeTokenRequest struct {
	JTI       string     `json:"jti"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// revokeUserRequest is the request body for POST /auth/revoke-user.
type revokeUserRequest struct {
	UserID string `json:"user_id"`
}

// RegisterRevocationRoutes registers the administrator's forced sign-out
// endpoints. Entries live as long as the longest token could.
func RegisterRevocationRoutes(g *echo.Group, store RevocationStore, tokens *TokenIssuer) {
	admin := g.Group("/auth", RequireRole(RoleAdmin))

	admin.POST("/revoke", handleRevokeToken(store, tokens.RefreshTTL()))
	admin.POST("/revoke-user", handleRevokeUser(store, tokens.RefreshTTL()))
}

// handleRevokeToken revokes a single token by jti.
func handleRevokeToken(store RevocationStore, maxTTL time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req revokeTokenRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if req.JTI == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "jti is required")
		}

		expiresAt := time.Now().Add(maxTTL)
		if req.ExpiresAt != nil && !req.ExpiresAt.IsZero() {
			expiresAt = *req.ExpiresAt
		}

		ctx := c.Request().Context()
		if err := store.Revoke(ctx, req.JTI, expiresAt); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("revoke token failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
		log.Ctx(ctx).Info().Str("jti", req.JTI).Str("by", UserIDFromContext(ctx)).Msg("token revoked")
		return c.NoContent(http.StatusNoContent)
	}
}

// handleRevokeUser invalidates every token issued to a user so far.
func handleRevokeUser(store RevocationStore, maxTTL time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req revokeUserRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "user_id must be a UUID")
		}

		ctx := c.Request().Context()
		if err := store.RevokeUser(ctx, id.String(), time.Now(), maxTTL); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("revoke user failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
		log.Ctx(ctx).Info().Str("user_id", id.String()).Str("by", UserIDFromContext(ctx)).Msg("user sessions revoked")
		return c.NoContent(http.StatusNoContent)
	}
}
