package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"emergencyDashboard/internal/api/handlers/http/admin"
	"emergencyDashboard/internal/api/handlers/http/incidents"
	"emergencyDashboard/internal/api/handlers/http/search"
	"emergencyDashboard/internal/api/handlers/http/system"
	"emergencyDashboard/internal/config"
	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/metrics"
	"emergencyDashboard/internal/middleware"
	"emergencyDashboard/internal/service"
)

const visitorTTL = 10 * time.Minute

type Server struct {
	logger *slog.Logger
	router *chi.Mux
	cfg    config.Config
}

type Handlers struct {
	Incidents *incidents.Handler
	Search    *search.Handler
	Admin     *admin.Handler
	System    *system.Handler
}

// NewServer builds the HTTP surface. ctx bounds background work started by
// middleware, e.g. the rate limiter's visitor sweeper.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, svc *service.Service, checks map[string]system.CheckFunc) *Server {
	h := Handlers{
		Incidents: incidents.NewHandler(logger, svc.IncidentService),
		Search:    search.NewHandler(logger, svc.SearchService),
		Admin:     admin.NewHandler(logger, svc),
		System:    system.NewHandler(logger, checks),
	}

	return &Server{
		logger: logger,
		router: InitRouter(ctx, cfg, h, logger),
		cfg:    *cfg,
	}
}

func InitRouter(ctx context.Context, cfg *config.Config, h Handlers, logger *slog.Logger) *chi.Mux {
	r := chi.NewMux()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)
	r.Use(metrics.Middleware())

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/incidents", func(ir chi.Router) {
			ir.Use(middleware.Limit(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst, visitorTTL, logger))
			if cfg.Http.RequestTimeout > 0 {
				ir.Use(chimw.Timeout(cfg.Http.RequestTimeout))
			}

			ir.With(middleware.BindJSON[domain.Record]()).Post("/", h.Incidents.IncidentCreate)
			ir.Get("/", h.Incidents.IncidentList)

			ir.Get("/search", h.Search.Search)
			ir.Get("/search/{type}", h.Search.SearchByType)

			ir.Route("/{id}", func(rr chi.Router) {
				rr.Get("/", h.Incidents.IncidentGet)
				rr.With(middleware.BindJSON[domain.Record]()).Put("/", h.Incidents.IncidentUpdate)
				rr.Delete("/", h.Incidents.IncidentDelete)
			})
		})

		api.Route("/admin", func(ar chi.Router) {
			ar.Use(middleware.APIKeyMiddleware(cfg.APIKey))
			ar.Use(middleware.Limit(ctx, 1, 2, visitorTTL, logger))

			ar.Post("/reindex", h.Admin.AdminReindex)
		})

		api.Get("/health", h.System.SystemHealth)
		api.Get("/ready", h.System.SystemReady)
	})

	return r
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Http.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Http.ReadTimeout,
		WriteTimeout: s.cfg.Http.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Starting HTTP server",
			slog.String("addr", srv.Addr),
			slog.Duration("read_timeout", s.cfg.Http.ReadTimeout),
			slog.Duration("write_timeout", s.cfg.Http.WriteTimeout),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ListenAndServe error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server", slog.String("reason", ctx.Err().Error()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown failed", slog.Any("error", err))
			return err
		}
		return nil

	case err := <-errChan:
		return err
	}
}
