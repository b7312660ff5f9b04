package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/render"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type Reindexer interface {
	Reindex(ctx context.Context) (domain.ReindexResult, error)
}

type Handler struct {
	logger    *slog.Logger
	Reindexer Reindexer
}

func NewHandler(logger *slog.Logger, reindexer Reindexer) *Handler {
	return &Handler{logger: logger, Reindexer: reindexer}
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

// AdminReindex rebuilds the search index from Postgres and reports the counts.
func (h *Handler) AdminReindex(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Info("AdminReindex", slog.String("remote", r.RemoteAddr))

	start := time.Now()
	res, err := h.Reindexer.Reindex(r.Context())
	if err != nil {
		l.Error("reindex failed",
			slog.Int("indexed", res.Indexed),
			slog.Int("failed", res.Failed),
			slog.Any("error", err),
		)
		render.Error(w, err)
		return
	}

	l.Info("reindex finished",
		slog.Int("indexed", res.Indexed),
		slog.Int("failed", res.Failed),
		slog.Duration("took", time.Since(start)),
	)
	render.JSON(w, http.StatusOK, res)
}
