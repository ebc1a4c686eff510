package doctor

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
	readGroup := api.Group("", auth.RequireAuthenticated())
	readGroup.GET("/doctors", h.List)
	readGroup.GET("/doctors/:id", h.Get)
	readGroup.GET("/specialties/:id/doctors", h.ListBySpecialty)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	writeGroup.POST("/doctors", h.Create)
	writeGroup.PUT("/doctors/:id", h.Update)
	writeGroup.DELETE("/doctors/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	d, err := h.svc.Create(c.Request().Context(), &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) List(c echo.Context) error {
	params, err := listParams(c)
	if err != nil {
		return err
	}
	if v := c.QueryParam("specialty_id"); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid specialty_id")
		}
		params["specialty_id"] = v
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListBySpecialty(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	params, err := listParams(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBySpecialty(c.Request().Context(), id, params, pg.Limit, pg.Offset)
	if errors.Is(err, ErrSpecialtyNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
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
	d, err := h.svc.Update(c.Request().Context(), id, &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, d)
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

func listParams(c echo.Context) (map[string]string, error) {
	params := map[string]string{}
	if v := c.QueryParam("active"); v != "" {
		if v != "true" && v != "false" {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "active must be true or false")
		}
		params["active"] = v
	}
	if v := c.QueryParam("search"); v != "" {
		params["search"] = v
	}
	return params, nil
}

func httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateCRM), errors.Is(err, ErrUserAlreadyDoctor), errors.Is(err, ErrInUse):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrUserNotDoctor), errors.Is(err, ErrSpecialtyNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	log.Ctx(c.Request().Context()).Error().Err(err).Msg("doctor request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
