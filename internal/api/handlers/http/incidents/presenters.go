package incidents

import (
	"log/slog"
	"net/http"

	"emergencyDashboard/internal/render"
	"emergencyDashboard/pkg/e"
)

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	l := h.log(r)

	attrs := []any{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	}
	switch e.KindOf(err) {
	case e.KindValidation, e.KindNotFound:
		l.Warn("request rejected", attrs...)
	default:
		l.Error("handler error", attrs...)
	}

	render.Error(w, err)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	render.JSON(w, code, v)
}
