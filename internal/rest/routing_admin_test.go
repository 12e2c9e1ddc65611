//go:build !integration

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/choresh/PspRouter-sub000/domain"

	"github.com/labstack/echo/v4"
)

// LessonStore fake capturing calls
type fakeLessonStore struct {
	added     []domain.Lesson
	matches   []domain.LessonMatch
	count     int64
	lastQuery string
	lastK     int
	searchErr error
}

func (f *fakeLessonStore) Add(ctx context.Context, lesson domain.Lesson) error {
	f.added = append(f.added, lesson)
	return nil
}

func (f *fakeLessonStore) Search(ctx context.Context, query string, k int) ([]domain.LessonMatch, error) {
	f.lastQuery, f.lastK = query, k
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.matches, nil
}

func (f *fakeLessonStore) Count(ctx context.Context) (int64, error) {
	return f.count, nil
}

func adminRequest(t *testing.T, handler echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler(c); err != nil {
		t.Fatalf("Failed to handle request: %v", err)
	}
	return rec
}

func TestAddLesson_DefaultsKey(t *testing.T) {
	store := &fakeLessonStore{}
	handler := NewRoutingAdminHandler(nil, nil, nil, store, nil)

	rec := adminRequest(t, handler.AddLesson, http.MethodPost, "/api/v1/admin/routing/lessons",
		`{"text": "adyen declines spike for MX debit after 22:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(store.added) != 1 {
		t.Fatalf("expected one stored lesson, got %d", len(store.added))
	}
	if store.added[0].Key == "" {
		t.Fatal("expected a generated key")
	}
	if store.added[0].Text != "adyen declines spike for MX debit after 22:00" {
		t.Fatalf("unexpected lesson text: %q", store.added[0].Text)
	}
}

func TestAddLesson_KeepsProvidedKey(t *testing.T) {
	store := &fakeLessonStore{}
	handler := NewRoutingAdminHandler(nil, nil, nil, store, nil)

	rec := adminRequest(t, handler.AddLesson, http.MethodPost, "/api/v1/admin/routing/lessons",
		`{"key": "lesson:manual:1", "text": "prefer stripe for GB amex"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if store.added[0].Key != "lesson:manual:1" {
		t.Fatalf("expected the provided key to survive, got %q", store.added[0].Key)
	}
}

func TestAddLesson_RequiresText(t *testing.T) {
	store := &fakeLessonStore{}
	handler := NewRoutingAdminHandler(nil, nil, nil, store, nil)

	rec := adminRequest(t, handler.AddLesson, http.MethodPost, "/api/v1/admin/routing/lessons", `{"key": "k1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(store.added) != 0 {
		t.Fatal("expected nothing stored")
	}
}

func TestLessonEndpoints_StoreUnconfigured(t *testing.T) {
	handler := NewRoutingAdminHandler(nil, nil, nil, nil, nil)

	rec := adminRequest(t, handler.AddLesson, http.MethodPost, "/api/v1/admin/routing/lessons", `{"text": "x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for add, got %d", rec.Code)
	}

	rec = adminRequest(t, handler.SearchLessons, http.MethodGet, "/api/v1/admin/routing/lessons?query=x", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for search, got %d", rec.Code)
	}
}

func TestSearchLessons(t *testing.T) {
	store := &fakeLessonStore{
		matches: []domain.LessonMatch{
			{Lesson: domain.Lesson{Key: "l1", Text: "visa declines on adyen"}, Score: 0.91},
		},
		count: 7,
	}
	handler := NewRoutingAdminHandler(nil, nil, nil, store, nil)

	rec := adminRequest(t, handler.SearchLessons, http.MethodGet, "/api/v1/admin/routing/lessons?query=visa+declines&k=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.lastQuery != "visa declines" || store.lastK != 3 {
		t.Fatalf("expected the query and k to pass through, got %q k=%d", store.lastQuery, store.lastK)
	}

	var body struct {
		Query   string               `json:"query"`
		Matches []domain.LessonMatch `json:"matches"`
		Stored  int64                `json:"stored"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(body.Matches) != 1 || body.Matches[0].Lesson.Key != "l1" {
		t.Fatalf("unexpected matches: %+v", body.Matches)
	}
	if body.Stored != 7 {
		t.Fatalf("expected stored count 7, got %d", body.Stored)
	}
}

func TestSearchLessons_Validation(t *testing.T) {
	store := &fakeLessonStore{}
	handler := NewRoutingAdminHandler(nil, nil, nil, store, nil)

	rec := adminRequest(t, handler.SearchLessons, http.MethodGet, "/api/v1/admin/routing/lessons", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without query, got %d", rec.Code)
	}

	rec = adminRequest(t, handler.SearchLessons, http.MethodGet, "/api/v1/admin/routing/lessons?query=x&k=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-integer k, got %d", rec.Code)
	}
}

func TestSearchLessons_StoreError(t *testing.T) {
	store := &fakeLessonStore{searchErr: errors.New("redis: connection refused")}
	handler := NewRoutingAdminHandler(nil, nil, nil, store, nil)

	rec := adminRequest(t, handler.SearchLessons, http.MethodGet, "/api/v1/admin/routing/lessons?query=x", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
