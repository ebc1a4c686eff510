package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithQuery(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(contextWithQuery(""))

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"limit=10&offset=30", 10, 30},
		{"limit=500", MaxLimit, 0},
		{"limit=-1", DefaultLimit, 0},
		{"offset=-5", DefaultLimit, 0},
		{"limit=10&page=3", 10, 20},
		{"limit=10&page=3&offset=99", 10, 20},
		{"page=0&offset=7", DefaultLimit, 7},
		{"limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := FromContext(contextWithQuery(tt.query))
			if p.Limit != tt.limit || p.Offset != tt.offset {
				t.Errorf("expected limit=%d offset=%d, got limit=%d offset=%d", tt.limit, tt.offset, p.Limit, p.Offset)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 45, Params{Limit: 20, Offset: 20})

	if resp.Page != 2 {
		t.Errorf("expected page 2, got %d", resp.Page)
	}
	if resp.Pages != 3 {
		t.Errorf("expected 3 pages, got %d", resp.Pages)
	}
	if !resp.HasMore {
		t.Error("expected has_more for page 2 of 3")
	}

	last := NewResponse(nil, 45, Params{Limit: 20, Offset: 40})
	if last.HasMore {
		t.Error("expected no more results on the last page")
	}
}

func TestNewResponse_Empty(t *testing.T) {
	resp := NewResponse([]string{}, 0, Params{Limit: 20})
	if resp.Pages != 0 || resp.HasMore || resp.Page != 1 {
		t.Errorf("unexpected empty response %+v", resp)
	}
}
