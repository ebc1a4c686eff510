package user

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/hospitall/hospitall/internal/platform/auth"
	"github.com/hospitall/hospitall/internal/platform/validate"
	"github.com/hospitall/hospitall/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Public; the auth middleware skips these paths.
	public := api.Group("/auth")
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)
	public.POST("/refresh", h.Refresh)

	session := api.Group("/auth", auth.RequireAuthenticated())
	session.POST("/logout", h.Logout)
	session.GET("/verify", h.Verify)
	session.PUT("/change-password", h.ChangePassword)

	self := api.Group("", auth.RequireAuthenticated())
	self.GET("/users/profile", h.Profile)
	self.PUT("/users/profile", h.UpdateProfile)
	self.GET("/users/:id", h.Get)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/users", h.List)
	admin.POST("/users", h.Create)
	admin.PUT("/users/:id", h.Update)
	admin.PATCH("/users/:id/activate", h.Activate)
	admin.PATCH("/users/:id/deactivate", h.Deactivate)
	admin.DELETE("/users/:id", h.Delete)
}

// -- /auth --

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.Register(c.Request().Context(), &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.Login(c.Request().Context(), &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Logout(c echo.Context) error {
	var req LogoutRequest
	if c.Request().ContentLength > 0 {
		if err := validate.Bind(c, &req); err != nil {
			return err
		}
	}
	if err := h.svc.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) Verify(c echo.Context) error {
	resp, err := h.svc.Verify(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	if resp.Expiring {
		c.Response().Header().Set(auth.TokenExpiringHeader, "true")
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.ChangePassword(c.Request().Context(), &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// -- /users --

func (h *Handler) List(c echo.Context) error {
	params := map[string]string{}
	if v := c.QueryParam("role"); v != "" {
		if !auth.ValidRole(v) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		params["role"] = v
	}
	if v := c.QueryParam("active"); v != "" {
		if v != "true" && v != "false" {
			return echo.NewHTTPError(http.StatusBadRequest, "active must be true or false")
		}
		params["active"] = v
	}
	if v := c.QueryParam("search"); v != "" {
		params["search"] = v
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	u, err := h.svc.CreateUser(c.Request().Context(), &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	u, err := h.svc.UpdateUser(c.Request().Context(), id, &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Activate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.Activate(c.Request().Context(), id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.Deactivate(c.Request().Context(), id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Profile(c echo.Context) error {
	u, err := h.svc.Profile(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var req ProfileRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateEmail), errors.Is(err, ErrDuplicateCPF), errors.Is(err, ErrInUse):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInactive), errors.Is(err, ErrInvalidRefreshToken):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAdminSignup), errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrWrongPassword), errors.Is(err, ErrSelfDeactivation), errors.Is(err, auth.ErrWeakPassword):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	log.Ctx(c.Request().Context()).Error().Err(err).Msg("user request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
