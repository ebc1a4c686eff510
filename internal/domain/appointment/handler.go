package appointment

import (
	"errors"
	"net/http"
	"time"

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
	// Every role may book; ownership is enforced by the service.
	all := api.Group("", auth.RequireAuthenticated())
	all.GET("/appointments", h.List)
	all.GET("/appointments/available-slots", h.AvailableSlots)
	all.POST("/appointments/validate", h.Validate)
	all.GET("/appointments/:id", h.Get)
	all.POST("/appointments", h.Create)
	all.PUT("/appointments/:id", h.Update)
	all.PATCH("/appointments/:id/cancel", h.Cancel)
	all.GET("/doctors/:id/appointments", h.ListByDoctor)
	all.GET("/patients/:id/appointments", h.ListByPatient)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/appointments/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	a, err := h.svc.Create(c.Request().Context(), &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
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
	a, err := h.svc.Update(c.Request().Context(), id, &req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
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

// Validate runs the conflict detector without writing anything.
func (h *Handler) Validate(c echo.Context) error {
	var req ValidateRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = DefaultDurationMinutes
	}
	excluding := uuid.Nil
	if req.ExcludingID != nil {
		excluding = *req.ExcludingID
	}
	err := h.svc.ValidateProposedAppointment(c.Request().Context(), req.DoctorID, req.AppointmentDate, req.DurationMinutes, excluding)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	doctorParam, date := c.QueryParam("doctor_id"), c.QueryParam("date")
	if doctorParam == "" || date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id and date are required")
	}
	doctorID, err := uuid.Parse(doctorParam)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	slots, err := h.svc.ListAvailableSlots(c.Request().Context(), doctorID, date)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *Handler) List(c echo.Context) error {
	params, err := searchParams(c, h.svc.Location())
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	params, err := searchParams(c, h.svc.Location())
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByDoctor(c.Request().Context(), id, params, pg.Limit, pg.Offset)
	if errors.Is(err, ErrDoctorNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
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
	params, err := searchParams(c, h.svc.Location())
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), id, params, pg.Limit, pg.Offset)
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

// searchParams validates the list filters. from and to accept RFC 3339
// instants or YYYY-MM-DD dates read in loc.
func searchParams(c echo.Context, loc *time.Location) (map[string]string, error) {
	params := map[string]string{}
	if v := c.QueryParam("status"); v != "" {
		if !ValidStatus(v) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		params["status"] = v
	}
	for _, key := range []string{"doctor_id", "patient_id"} {
		if v := c.QueryParam(key); v != "" {
			if _, err := uuid.Parse(v); err != nil {
				return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+key)
			}
			params[key] = v
		}
	}
	for _, key := range []string{"from", "to"} {
		if v := c.QueryParam(key); v != "" {
			t, err := parseInstant(v, loc)
			if err != nil {
				return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+key)
			}
			params[key] = t.Format(time.RFC3339)
		}
	}
	return params, nil
}

func parseInstant(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation(slotDateLayout, v, loc)
}

// httpError maps scheduling errors onto HTTP statuses.
func httpError(c echo.Context, err error) error {
	var conflict *ConflictError
	var policy *PolicyViolationError
	switch {
	case errors.As(err, &conflict):
		body := map[string]interface{}{"message": conflict.Error()}
		if conflict.ExistingID != uuid.Nil {
			body["existing_id"] = conflict.ExistingID
		}
		return echo.NewHTTPError(http.StatusConflict, body)
	case errors.As(err, &policy):
		return echo.NewHTTPError(http.StatusBadRequest, policy.Reason)
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrDoctorNotFound),
		errors.Is(err, ErrDoctorInactive),
		errors.Is(err, ErrPatientNotFound),
		errors.Is(err, ErrCannotCancel):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	log.Ctx(c.Request().Context()).Error().Err(err).Msg("appointment request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
