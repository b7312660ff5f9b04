package search

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/pkg/e"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type Searcher interface {
	SearchByType(ctx context.Context, t domain.IncidentType) ([]domain.Record, error)
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.Record, error)
}

type Handler struct {
	logger   *slog.Logger
	Searcher Searcher
}

func NewHandler(logger *slog.Logger, searcher Searcher) *Handler {
	return &Handler{logger: logger, Searcher: searcher}
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

func (h *Handler) SearchByType(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	raw := chi.URLParam(r, "type")
	l.Debug("SearchByType", slog.String("type", raw), slog.String("remote", r.RemoteAddr))

	t, err := domain.ParseIncidentType(raw)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	recs, err := h.Searcher.SearchByType(r.Context(), t)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Debug("search by type done", slog.String("type", t.Name()), slog.Int("count", len(recs)))
	h.writeJSON(w, http.StatusOK, nonNil(recs))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("Search", slog.String("query", r.URL.RawQuery), slog.String("remote", r.RemoteAddr))

	req, err := parseSearchRequest(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	recs, err := h.Searcher.Search(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Debug("search done", slog.Int("count", len(recs)))
	h.writeJSON(w, http.StatusOK, nonNil(recs))
}

// parseSearchRequest reads incidentType, latitude, longitude and timestamp
// from the query string. Absent or blank parameters stay unset.
func parseSearchRequest(r *http.Request) (domain.SearchRequest, error) {
	q := r.URL.Query()

	var req domain.SearchRequest

	t, err := domain.ParseIncidentType(q.Get("incidentType"))
	if err != nil {
		return req, err
	}
	req.IncidentType = t

	if req.Latitude, err = parseFloat(q.Get("latitude"), "latitude"); err != nil {
		return req, err
	}
	if req.Longitude, err = parseFloat(q.Get("longitude"), "longitude"); err != nil {
		return req, err
	}

	if s := strings.TrimSpace(q.Get("timestamp")); s != "" {
		ts, err := domain.ParseDateTime(s)
		if err != nil {
			return req, err
		}
		req.Timestamp = &ts
	}

	return req, nil
}

func parseFloat(s, name string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, e.Invalid("%s must be a number, got %q", name, s)
	}
	return &v, nil
}

func nonNil(recs []domain.Record) []domain.Record {
	if recs == nil {
		return []domain.Record{}
	}
	return recs
}
