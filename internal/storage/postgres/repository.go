package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/storage"
)

// IncidentRepository is the primary store gateway.
type IncidentRepository interface {
	InTx(ctx context.Context, fn storage.TxFunc) error
	FindAll(ctx context.Context) ([]domain.Row, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Row, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ IncidentRepository = (*Incidents)(nil)
	_ storage.RowWriter  = (*rowStore)(nil)
)

func (p *Postgres) Incidents() IncidentRepository { return p.IncidentRepo }
