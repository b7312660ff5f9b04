package system

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"emergencyDashboard/internal/render"
)

// CheckFunc reports whether a backing store answers.
type CheckFunc func(ctx context.Context) error

type Handler struct {
	logger *slog.Logger
	checks map[string]CheckFunc
}

func NewHandler(logger *slog.Logger, checks map[string]CheckFunc) *Handler {
	return &Handler{logger: logger, checks: checks}
}

// SystemHealth is the liveness probe.
func (h *Handler) SystemHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// SystemReady pings every configured store and answers 503 when one is down.
func (h *Handler) SystemReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	report := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("readiness check failed", slog.String("check", name), slog.Any("error", err))
			report[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		report[name] = "ok"
	}

	render.JSON(w, status, report)
}
