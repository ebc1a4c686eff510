package appointment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hospitall/hospitall/internal/platform/validate"
)

func newTestHandler() (*Handler, *echo.Echo, *fixture) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	e.Validator = validate.New()
	return h, e, f
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func expectHTTPStatus(t *testing.T, err error, code int) *echo.HTTPError {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError with %d, got %v", code, err)
	}
	if he.Code != code {
		t.Fatalf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
	return he
}

func createBody(f *fixture, start time.Time, minutes int) string {
	return `{"doctor_id":"` + f.doctorID.String() + `","patient_id":"` + f.patientID.String() +
		`","appointment_date":"` + start.Format(time.RFC3339) + `","duration_minutes":` + itoa(minutes) + `}`
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestHandler_Create(t *testing.T) {
	h, e, f := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, createBody(f, at(2024, 6, 10, 10, 0), 30)), rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got Appointment
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusScheduled {
		t.Errorf("expected scheduled, got %s", got.Status)
	}
}

func TestHandler_Create_Conflict(t *testing.T) {
	h, e, f := newTestHandler()
	existing := f.seed(at(2024, 6, 10, 10, 0), 30)
	c := e.NewContext(jsonRequest(http.MethodPost, createBody(f, at(2024, 6, 10, 10, 15), 15)), httptest.NewRecorder())

	he := expectHTTPStatus(t, h.Create(c), http.StatusConflict)
	body, ok := he.Message.(map[string]interface{})
	if !ok {
		t.Fatalf("expected structured body, got %T", he.Message)
	}
	if body["existing_id"] != existing.ID {
		t.Errorf("expected existing_id %s, got %v", existing.ID, body["existing_id"])
	}
}

func TestHandler_Create_PolicyViolation(t *testing.T) {
	h, e, f := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, createBody(f, at(2024, 6, 9, 10, 0), 30)), httptest.NewRecorder())
	expectHTTPStatus(t, h.Create(c), http.StatusBadRequest)
}

func TestHandler_Create_ValidationFailure(t *testing.T) {
	h, e, f := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, createBody(f, at(2024, 6, 10, 10, 0), 241)), httptest.NewRecorder())
	expectHTTPStatus(t, h.Create(c), http.StatusBadRequest)

	c = e.NewContext(jsonRequest(http.MethodPost, `{}`), httptest.NewRecorder())
	expectHTTPStatus(t, h.Create(c), http.StatusBadRequest)
}

func TestHandler_Validate(t *testing.T) {
	h, e, f := newTestHandler()
	f.seed(at(2024, 6, 10, 10, 0), 30)

	body := `{"doctor_id":"` + f.doctorID.String() + `","appointment_date":"` +
		at(2024, 6, 10, 10, 30).Format(time.RFC3339) + `","duration_minutes":30}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body), rec)
	if err := h.Validate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Errorf("expected ok body, got %d %s", rec.Code, rec.Body.String())
	}

	body = `{"doctor_id":"` + f.doctorID.String() + `","appointment_date":"` +
		at(2024, 6, 10, 9, 45).Format(time.RFC3339) + `"}`
	c = e.NewContext(jsonRequest(http.MethodPost, body), httptest.NewRecorder())
	expectHTTPStatus(t, h.Validate(c), http.StatusConflict)
	if len(f.repo.items) != 1 {
		t.Errorf("validate must not write, got %d rows", len(f.repo.items))
	}
}

func TestHandler_AvailableSlots(t *testing.T) {
	h, e, f := newTestHandler()
	f.seed(at(2024, 6, 10, 10, 0), 60)

	req := httptest.NewRequest(http.MethodGet, "/?doctor_id="+f.doctorID.String()+"&date=2024-06-10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.AvailableSlots(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var slots []Slot
	if err := json.Unmarshal(rec.Body.Bytes(), &slots); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(slots) != 18 {
		t.Errorf("expected 18 slots, got %d", len(slots))
	}
	if slots[0].Formatted != "08:00" {
		t.Errorf("expected first slot 08:00, got %s", slots[0].Formatted)
	}
}

func TestHandler_AvailableSlots_BadQuery(t *testing.T) {
	h, e, f := newTestHandler()
	for _, q := range []string{
		"",
		"?date=2024-06-10",
		"?doctor_id=" + f.doctorID.String(),
		"?doctor_id=not-a-uuid&date=2024-06-10",
		"?doctor_id=" + f.doctorID.String() + "&date=10-06-2024",
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/"+q, nil), httptest.NewRecorder())
		expectHTTPStatus(t, h.AvailableSlots(c), http.StatusBadRequest)
	}
}

func TestHandler_Get(t *testing.T) {
	h, e, f := newTestHandler()
	a := f.seed(at(2024, 6, 10, 10, 0), 30)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, e, _ := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	expectHTTPStatus(t, h.Get(c), http.StatusNotFound)
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h, e, _ := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	expectHTTPStatus(t, h.Get(c), http.StatusBadRequest)
}

func TestHandler_Update(t *testing.T) {
	h, e, f := newTestHandler()
	a := f.seed(at(2024, 6, 10, 10, 0), 30)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, `{"status":"completed","notes":"seen"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Appointment
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusCompleted || got.Notes == nil || *got.Notes != "seen" {
		t.Errorf("unexpected update result %+v", got)
	}
}

func TestHandler_Update_InvalidStatus(t *testing.T) {
	h, e, f := newTestHandler()
	a := f.seed(at(2024, 6, 10, 10, 0), 30)

	c := e.NewContext(jsonRequest(http.MethodPut, `{"status":"archived"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	expectHTTPStatus(t, h.Update(c), http.StatusBadRequest)
}

func TestHandler_Cancel(t *testing.T) {
	h, e, f := newTestHandler()
	a := f.seed(at(2024, 6, 10, 10, 0), 30)
	late := f.seed(testNow.Add(30*time.Minute), 30)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPatch, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.Cancel(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodPatch, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(late.ID.String())
	expectHTTPStatus(t, h.Cancel(c), http.StatusBadRequest)
}

func TestHandler_Delete(t *testing.T) {
	h, e, f := newTestHandler()
	a := f.seed(at(2024, 6, 10, 10, 0), 30)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_List(t *testing.T) {
	h, e, f := newTestHandler()
	f.seed(at(2024, 6, 10, 11, 0), 30)
	f.seed(at(2024, 6, 10, 10, 0), 30)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?status=scheduled&doctor_id="+f.doctorID.String(), nil), rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page struct {
		Data  []Appointment `json:"data"`
		Total int           `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 2 || len(page.Data) != 2 {
		t.Fatalf("expected 2 appointments, got %d", page.Total)
	}
	if !page.Data[0].AppointmentDate.Before(page.Data[1].AppointmentDate) {
		t.Error("expected ascending order by date")
	}
}

func TestHandler_List_BadFilters(t *testing.T) {
	h, e, _ := newTestHandler()
	for _, q := range []string{"?status=archived", "?doctor_id=x", "?from=yesterday"} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/"+q, nil), httptest.NewRecorder())
		expectHTTPStatus(t, h.List(c), http.StatusBadRequest)
	}
}

func TestHandler_ListByDoctor_NotFound(t *testing.T) {
	h, e, _ := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	expectHTTPStatus(t, h.ListByDoctor(c), http.StatusNotFound)
}

func TestHandler_ListByPatient(t *testing.T) {
	h, e, f := newTestHandler()
	f.seed(at(2024, 6, 10, 10, 0), 30)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(f.patientID.String())
	if err := h.ListByPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("expected one appointment, got %s", rec.Body.String())
	}
}
