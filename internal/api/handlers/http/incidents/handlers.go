package incidents

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/middleware"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type Incidents interface {
	Create(ctx context.Context, rec domain.Record) (domain.Record, error)
	Update(ctx context.Context, id string, rec domain.Record) (domain.Record, error)
	Delete(ctx context.Context, id string) error
	FindAll(ctx context.Context) ([]domain.Record, error)
	FindByID(ctx context.Context, id string) (domain.Record, error)
}

type Handler struct {
	logger    *slog.Logger
	Incidents Incidents
}

func NewHandler(logger *slog.Logger, incidents Incidents) *Handler {
	return &Handler{
		logger:    logger,
		Incidents: incidents,
	}
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

func (h *Handler) IncidentCreate(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("IncidentCreate", slog.String("remote", r.RemoteAddr))

	rec, err := h.record(w, r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	created, err := h.Incidents.Create(r.Context(), rec)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Info("incident created", slog.String("id", created.ID), slog.String("type", created.IncidentType.Name()))
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) IncidentList(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("IncidentList", slog.String("remote", r.RemoteAddr))

	recs, err := h.Incidents.FindAll(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Debug("incidents listed", slog.Int("count", len(recs)))
	h.writeJSON(w, http.StatusOK, nonNil(recs))
}

func (h *Handler) IncidentGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Incidents.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) IncidentUpdate(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	id := chi.URLParam(r, "id")
	l.Debug("IncidentUpdate", slog.String("id", id), slog.String("remote", r.RemoteAddr))

	rec, err := h.record(w, r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	updated, err := h.Incidents.Update(r.Context(), id, rec)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Info("incident updated", slog.String("id", updated.ID))
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) IncidentDelete(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	id := chi.URLParam(r, "id")
	l.Debug("IncidentDelete", slog.String("id", id), slog.String("remote", r.RemoteAddr))

	if err := h.Incidents.Delete(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Info("incident deleted", slog.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// record takes the body bound by middleware.BindJSON, decoding it here when
// the route has no binder.
func (h *Handler) record(w http.ResponseWriter, r *http.Request) (domain.Record, error) {
	if rec, ok := middleware.Body[domain.Record](r.Context()); ok {
		return rec, nil
	}
	return middleware.DecodeJSON[domain.Record](w, r)
}

func nonNil(recs []domain.Record) []domain.Record {
	if recs == nil {
		return []domain.Record{}
	}
	return recs
}
