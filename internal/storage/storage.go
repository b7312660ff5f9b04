// Package storage holds the contracts shared by the primary store gateway and
// its consumers.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"emergencyDashboard/internal/domain"
)

// ErrCommitFailed marks a transaction whose callback succeeded but whose
// commit did not.
var ErrCommitFailed = errors.New("commit failed")

// RowWriter is the set of row operations available inside a transaction.
type RowWriter interface {
	Insert(ctx context.Context, row *domain.Row) error
	Update(ctx context.Context, row *domain.Row) error
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	// LockByID reads the row and holds a shared lock on it until the
	// transaction ends, so no writer can change or delete it meanwhile.
	LockByID(ctx context.Context, id uuid.UUID) (*domain.Row, error)
}

// TxFunc runs inside a transaction. Returning an error rolls it back.
type TxFunc func(ctx context.Context, rows RowWriter) error
