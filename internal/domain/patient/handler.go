package patient

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
	staff := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))
	staff.GET("/patients", h.List)

	readGroup := api.Group("", auth.RequireAuthenticated())
	readGroup.GET("/patients/:id", h.Get)

	ownerGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RolePatient))
	ownerGroup.PUT("/patients/:id", h.Update)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/patients", h.Create)
	admin.DELETE("/patients/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Create(c.Request().Context(), &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	params := map[string]string{}
	if v := c.QueryParam("active"); v != "" {
		if v != "true" && v != "false" {
			return echo.NewHTTPError(http.StatusBadRequest, "active must be true or false")
		}
		params["active"] = v
	}
	if v := c.QueryParam("blood_type"); v != "" {
		if !ValidBloodType(v) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid blood_type")
		}
		params["blood_type"] = v
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

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Update(c.Request().Context(), id, &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrUserAlreadyPatient), errors.Is(err, ErrInUse):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrUserNotPatient), errors.Is(err, ErrBirthDate):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	log.Ctx(c.Request().Context()).Error().Err(err).Msg("patient request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
