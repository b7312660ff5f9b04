package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/storage"
	"emergencyDashboard/pkg/e"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectColumns = `id, incident_type, latitude, longitude, occurred_at, severity_level`

// Incidents runs row operations directly on the pool and opens transactions
// for the write coordinator.
type Incidents struct {
	rowStore
	pool *pgxpool.Pool
}

func NewIncidents(pool *pgxpool.Pool, logger *slog.Logger) *Incidents {
	return &Incidents{
		rowStore: rowStore{q: pool, logger: logger},
		pool:     pool,
	}
}

func (p *Incidents) InTx(ctx context.Context, fn storage.TxFunc) error {
	const op = "postgres.Incident.InTx"

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		p.logger.Error("begin tx failed", slog.String("op", op), slog.Any("error", err))
		return e.WrapError(ctx, op, err)
	}
	defer func() {
		// no-op once committed
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.logger.Error("rollback failed", slog.String("op", op), slog.Any("error", rbErr))
		}
	}()

	if err := fn(ctx, &rowStore{q: tx, logger: p.logger}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		p.logger.Error("commit failed", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%w: %w", storage.ErrCommitFailed, e.WrapError(ctx, op, err))
	}
	return nil
}

type rowStore struct {
	q      querier
	logger *slog.Logger
}

func (p *rowStore) Insert(ctx context.Context, row *domain.Row) error {
	const op = "postgres.Incident.Insert"

	const query = `
		INSERT INTO incidents (id, incident_type, latitude, longitude, occurred_at, severity_level)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}

	_, err := p.q.Exec(ctx, query,
		row.ID,
		row.IncidentType.Name(),
		row.Latitude,
		row.Longitude,
		row.Timestamp,
		row.SeverityLevel.Name(),
	)
	if err != nil {
		p.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err))
		return e.WrapError(ctx, op, err)
	}

	return nil
}

func (p *rowStore) Update(ctx context.Context, row *domain.Row) error {
	const op = "postgres.Incident.Update"

	const query = `
		UPDATE incidents
		SET incident_type  = $2,
			latitude       = $3,
			longitude      = $4,
			occurred_at    = $5,
			severity_level = $6
		WHERE id = $1
	`

	cmd, err := p.q.Exec(ctx, query,
		row.ID,
		row.IncidentType.Name(),
		row.Latitude,
		row.Longitude,
		row.Timestamp,
		row.SeverityLevel.Name(),
	)
	if err != nil {
		p.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err), slog.String("id", row.ID.String()))
		return e.WrapError(ctx, op, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, e.ErrNotFound)
	}

	return nil
}

func (p *rowStore) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "postgres.Incident.ExistsByID"

	const query = `SELECT EXISTS (SELECT 1 FROM incidents WHERE id = $1)`

	var exists bool
	if err := p.q.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		p.logger.Error("db queryrow scan failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return false, e.WrapError(ctx, op, err)
	}

	return exists, nil
}

func (p *rowStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.Incident.DeleteByID"

	const query = `DELETE FROM incidents WHERE id = $1`

	cmd, err := p.q.Exec(ctx, query, id)
	if err != nil {
		p.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return e.WrapError(ctx, op, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, e.ErrNotFound)
	}

	return nil
}

func (p *rowStore) FindAll(ctx context.Context) ([]domain.Row, error) {
	const op = "postgres.Incident.FindAll"

	const query = `
		SELECT ` + selectColumns + `
		FROM incidents
		ORDER BY occurred_at DESC NULLS LAST, id
	`

	rows, err := p.q.Query(ctx, query)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	incidents := make([]domain.Row, 0, 16)
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		incidents = append(incidents, row)
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return incidents, nil
}

func (p *rowStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Row, error) {
	const op = "postgres.Incident.FindByID"

	const query = `SELECT ` + selectColumns + ` FROM incidents WHERE id = $1`

	row, err := scanRow(p.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
		}
		p.logger.Error("db queryrow scan failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return nil, e.WrapError(ctx, op, err)
	}

	return &row, nil
}

func (p *rowStore) LockByID(ctx context.Context, id uuid.UUID) (*domain.Row, error) {
	const op = "postgres.Incident.LockByID"

	const query = `SELECT ` + selectColumns + ` FROM incidents WHERE id = $1 FOR SHARE`

	row, err := scanRow(p.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
		}
		p.logger.Error("db queryrow scan failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return nil, e.WrapError(ctx, op, err)
	}

	return &row, nil
}

func scanRow(r pgx.Row) (domain.Row, error) {
	var (
		row                domain.Row
		incidentType, sevl string
	)
	if err := r.Scan(
		&row.ID,
		&incidentType,
		&row.Latitude,
		&row.Longitude,
		&row.Timestamp,
		&sevl,
	); err != nil {
		return domain.Row{}, err
	}

	var err error
	if row.IncidentType, err = domain.ParseIncidentType(incidentType); err != nil {
		return domain.Row{}, err
	}
	if row.SeverityLevel, err = domain.ParseSeverityLevel(sevl); err != nil {
		return domain.Row{}, err
	}
	return row, nil
}
