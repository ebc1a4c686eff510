package specialty

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hospitall/hospitall/internal/platform/validate"
)

func newTestHandler() (*Handler, *echo.Echo, *mockRepo) {
	svc, repo := newTestService()
	e := echo.New()
	e.Validator = validate.New()
	return NewHandler(svc), e, repo
}

func expectCode(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d", code, he.Code)
	}
}

func TestHandler_Create(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Neurology"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_Create_Invalid(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"N"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	expectCode(t, h.Create(e.NewContext(req, httptest.NewRecorder())), http.StatusBadRequest)
}

func TestHandler_Create_Duplicate(t *testing.T) {
	h, e, _ := newTestHandler()
	h.svc.Create(context.Background(), &CreateRequest{Name: "Neurology"})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Neurology"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	expectCode(t, h.Create(e.NewContext(req, httptest.NewRecorder())), http.StatusConflict)
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, e, _ := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	expectCode(t, h.Get(c), http.StatusNotFound)
}

func TestHandler_Delete_InUse(t *testing.T) {
	h, e, repo := newTestHandler()
	sp, _ := h.svc.Create(context.Background(), &CreateRequest{Name: "Neurology"})
	repo.doctors[sp.ID] = 1

	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(sp.ID.String())
	expectCode(t, h.Delete(c), http.StatusBadRequest)
}

func TestHandler_List(t *testing.T) {
	h, e, _ := newTestHandler()
	h.svc.Create(context.Background(), &CreateRequest{Name: "Neurology"})
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?search=neuro", nil), rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("expected one result, got %s", rec.Body.String())
	}
}
