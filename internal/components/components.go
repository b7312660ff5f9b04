package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"emergencyDashboard/internal/api"
	"emergencyDashboard/internal/api/handlers/http/system"
	"emergencyDashboard/internal/config"
	"emergencyDashboard/internal/metrics"
	"emergencyDashboard/internal/redis"
	"emergencyDashboard/internal/service"
	"emergencyDashboard/internal/storage/postgres"
	"emergencyDashboard/internal/storage/search"
	"emergencyDashboard/internal/workers"
	"emergencyDashboard/pkg/logger"
)

type Components struct {
	logger     *slog.Logger
	HttpServer *api.Server
	Postgres   *postgres.Postgres
	Redis      *redis.Redis // nil when the cache is disabled
	Search     *search.Store
	Reindexer  *workers.Reindexer
}

func InitComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	logger.Info("Initializing Postgres")

	storage, err := postgres.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to init postgres", slog.Any("error", err))
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	logger.Info("Initializing search index", slog.Any("addrs", cfg.Search.Addrs), slog.String("index", cfg.Search.Index))
	store, err := search.NewStore(search.Config{
		Addrs:    cfg.Search.Addrs,
		Username: cfg.Search.Username,
		Password: cfg.Search.Password,
		Index:    cfg.Search.Index,
		Limit:    cfg.Search.Limit,
	}, logger)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("failed to init search: %w", err)
	}
	if err := store.EnsureIndex(ctx); err != nil {
		store.Close()
		storage.Close()
		return nil, fmt.Errorf("failed to ensure search index: %w", err)
	}

	var (
		redisClient *redis.Redis
		cache       service.IncidentCache
	)
	if cfg.Redis.CacheDisabled {
		logger.Info("Incident cache disabled")
	} else {
		logger.Info("Initializing Redis")
		redisClient, err = redis.NewRedis(ctx, cfg, logger)
		if err != nil {
			store.Close()
			storage.Close()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		cache = redis.NewIncidentCache(redisClient, cfg.Redis.CacheTTL)
	}

	repo := storage.Incidents()
	m := metrics.NewIncidents()
	incidentSvc := service.NewIncidents(repo, store, cache, m, logger)
	searchSvc := service.NewSearch(store, logger)
	reindexer := workers.NewReindexer(repo, store, m, logger, cfg.Reindex.Workers)

	srv := service.NewService(incidentSvc, searchSvc, reindexer)

	checks := map[string]system.CheckFunc{
		"postgres": storage.Pool.Ping,
		"search":   store.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Client.Ping(ctx).Err()
		}
	}

	httpServer := api.NewServer(ctx, cfg, logger, srv, checks)
	logger.Info("Initialized server")

	return &Components{
		logger:     logger,
		HttpServer: httpServer,
		Postgres:   storage,
		Redis:      redisClient,
		Search:     store,
		Reindexer:  reindexer,
	}, nil
}

// ReindexOnStart rebuilds the search index in the background when configured.
func (c *Components) ReindexOnStart(ctx context.Context, cfg *config.Config) {
	if !cfg.Reindex.OnStart {
		return
	}
	go func() {
		c.logger.Info("Reindex on start")
		res, err := c.Reindexer.Reindex(ctx)
		if err != nil {
			c.logger.Error("Reindex on start failed", slog.Any("error", err))
			return
		}
		c.logger.Info("Reindex on start finished", slog.Int("indexed", res.Indexed), slog.Int("failed", res.Failed))
	}()
}

func SetupLogger(env string) *slog.Logger {
	switch env {
	case "local":
		return logger.SetupPrettySlog()
	case "dev":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}
}

func (c *Components) ShutdownAll() {
	start := time.Now()
	c.logger.Info("Shutting down components")

	c.Search.Close()
	c.Postgres.Close()
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Error("Redis close failed", slog.String("err", err.Error()))
		}
	}

	c.logger.Info("All components stopped",
		slog.Duration("latency", time.Since(start)))
}
