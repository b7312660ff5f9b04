package search_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"emergencyDashboard/internal/api/handlers/http/search"
	mock_search "emergencyDashboard/internal/api/handlers/http/search/mocks"
	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/render"
	"emergencyDashboard/pkg/e"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError}))
}

func addChiURLParam(r *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func f64ptr(v float64) *float64 { return &v }

func TestSearchByType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want domain.IncidentType
	}{
		{"lower", "fire", domain.IncidentFire},
		{"upper", "POLICE", domain.IncidentPolice},
		{"none", "none", domain.IncidentTypeNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mock_search.NewMockSearcher(ctrl)
			h := search.NewHandler(newTestLogger(), svc)

			svc.EXPECT().
				SearchByType(gomock.Any(), tc.want).
				Return([]domain.Record{{ID: "a", IncidentType: tc.want}}, nil).
				Times(1)

			req := addChiURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/incidents/search/"+tc.raw, nil), "type", tc.raw)
			rr := httptest.NewRecorder()
			h.SearchByType(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected %d got %d, body=%s", http.StatusOK, rr.Code, rr.Body.String())
			}
			var got []domain.Record
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 || got[0].ID != "a" {
				t.Fatalf("unexpected body %+v", got)
			}
		})
	}
}

func TestSearchByType_UnknownType_400(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	h := search.NewHandler(newTestLogger(), mock_search.NewMockSearcher(ctrl))

	req := addChiURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/incidents/search/flood", nil), "type", "flood")
	rr := httptest.NewRecorder()
	h.SearchByType(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d", http.StatusBadRequest, rr.Code)
	}
	var body render.ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Message != `invalid input: invalid incident type: "flood"` {
		t.Fatalf("message = %q", body.Message)
	}
}

func TestSearch_ParsesQuery(t *testing.T) {
	t.Parallel()

	ts, _ := domain.ParseDateTime("2024-05-01T10:00:00")

	cases := []struct {
		name  string
		query string
		want  domain.SearchRequest
	}{
		{"empty", "", domain.SearchRequest{}},
		{"type_only", "?incidentType=medical", domain.SearchRequest{IncidentType: domain.IncidentMedical}},
		{
			"all",
			"?incidentType=fire&latitude=51.5&longitude=-0.12&timestamp=2024-05-01T10:00:00",
			domain.SearchRequest{IncidentType: domain.IncidentFire, Latitude: f64ptr(51.5), Longitude: f64ptr(-0.12), Timestamp: &ts},
		},
		{"blank_params", "?incidentType=&latitude=&longitude=", domain.SearchRequest{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mock_search.NewMockSearcher(ctrl)
			h := search.NewHandler(newTestLogger(), svc)

			svc.EXPECT().Search(gomock.Any(), tc.want).Return(nil, nil).Times(1)

			rr := httptest.NewRecorder()
			h.Search(rr, httptest.NewRequest(http.MethodGet, "/api/v1/incidents/search"+tc.query, nil))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected %d got %d, body=%s", http.StatusOK, rr.Code, rr.Body.String())
			}
			if body := bytes.TrimSpace(rr.Body.Bytes()); string(body) != "[]" {
				t.Fatalf("expected [], got %s", body)
			}
		})
	}
}

func TestSearch_BadQuery_400(t *testing.T) {
	t.Parallel()

	cases := []string{
		"?incidentType=flood",
		"?latitude=north&longitude=0",
		"?latitude=0&longitude=east",
		"?timestamp=yesterday",
	}

	for _, query := range cases {
		t.Run(query, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			h := search.NewHandler(newTestLogger(), mock_search.NewMockSearcher(ctrl))

			rr := httptest.NewRecorder()
			h.Search(rr, httptest.NewRequest(http.MethodGet, "/api/v1/incidents/search"+query, nil))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected %d got %d", http.StatusBadRequest, rr.Code)
			}
		})
	}
}

func TestSearch_IndexDown_503(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	svc := mock_search.NewMockSearcher(ctrl)
	h := search.NewHandler(newTestLogger(), svc)

	svc.EXPECT().Search(gomock.Any(), gomock.Any()).
		Return(nil, e.Dependency("search.Store.Execute", errors.New("i/o timeout"))).
		Times(1)

	rr := httptest.NewRecorder()
	h.Search(rr, httptest.NewRequest(http.MethodGet, "/api/v1/incidents/search?incidentType=fire", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected %d got %d", http.StatusServiceUnavailable, rr.Code)
	}
	var body render.ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Retryable {
		t.Fatal("dependency failures are retryable")
	}
}
