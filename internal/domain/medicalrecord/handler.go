package medicalrecord

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
	staff.GET("/medical-records", h.List)
	staff.POST("/medical-records", h.Create)
	staff.PUT("/medical-records/:id", h.Update)

	readGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RolePatient))
	readGroup.GET("/medical-records/:id", h.Get)
	readGroup.GET("/patients/:id/medical-records", h.ListByPatient)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/medical-records/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	m, err := h.svc.Create(c.Request().Context(), &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) List(c echo.Context) error {
	params := map[string]string{}
	for _, key := range []string{"patient_id", "doctor_id", "appointment_id"} {
		if v := c.QueryParam(key); v != "" {
			if _, err := uuid.Parse(v); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+key)
			}
			params[key] = v
		}
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if errors.Is(err, ErrPatientNotFound) {
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
	m, err := h.svc.Update(c.Request().Context(), id, &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, m)
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
	case errors.Is(err, ErrPatientNotFound),
		errors.Is(err, ErrDoctorNotFound),
		errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, ErrAppointmentMismatch),
		errors.Is(err, ErrFollowUpDate):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	log.Ctx(c.Request().Context()).Error().Err(err).Msg("medical record request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
