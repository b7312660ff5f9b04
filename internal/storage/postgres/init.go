package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"emergencyDashboard/internal/config"
	"emergencyDashboard/pkg/e"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS incidents (
	id             uuid PRIMARY KEY,
	incident_type  text NOT NULL DEFAULT 'NONE',
	latitude       double precision,
	longitude      double precision,
	occurred_at    timestamp,
	severity_level text NOT NULL DEFAULT 'NONE'
);
`

type Postgres struct {
	Pool         *pgxpool.Pool
	IncidentRepo *Incidents
}

func NewPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Database,
		cfg.Postgres.SSLMode,
	)

	logger.Info("Connecting to Postgres",
		slog.String("host", cfg.Postgres.Host),
		slog.Int("port", cfg.Postgres.Port),
		slog.String("db", cfg.Postgres.Database),
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("Failed to parse pgx config", slog.String("error", err.Error()))
		return nil, e.Wrap("storage.pg.NewPostgres.ParseConfig", err)
	}
	poolCfg.MaxConns = cfg.Postgres.MaxConns
	poolCfg.MinConns = cfg.Postgres.MinConns
	poolCfg.MaxConnLifetime = cfg.Postgres.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("Failed to create pgx pool", slog.String("error", err.Error()))
		return nil, e.Wrap("storage.pg.NewPostgres.NewWithConfig", err)
	}

	logger.Info("Pinging Postgres database")
	if err := pool.Ping(ctx); err != nil {
		logger.Error("Failed to ping Postgres database", slog.String("error", err.Error()))
		pool.Close()
		return nil, e.Wrap("storage.pg.NewPostgres.Ping", err)
	}
	logger.Info("Connected to Postgres successfully")

	if cfg.Postgres.AutoMigrate {
		if err := Migrate(ctx, pool); err != nil {
			logger.Error("Failed to migrate schema", slog.String("error", err.Error()))
			pool.Close()
			return nil, err
		}
		logger.Info("Postgres schema is up to date")
	}

	return &Postgres{
		Pool:         pool,
		IncidentRepo: NewIncidents(pool, logger),
	}, nil
}

// Migrate creates the incidents table when it does not exist yet.
func Migrate(ctx context.Context, q querier) error {
	if _, err := q.Exec(ctx, schema); err != nil {
		return e.Wrap("storage.pg.Migrate", err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.Pool.Close()
}
