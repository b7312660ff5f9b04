package e

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func Wrap(message string, err error) error {
	return fmt.Errorf("%s: %w", message, err)
}

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDependency   = errors.New("dependency failure")

	// ErrDeadline and ErrCanceled are always reported together with ErrDependency.
	ErrDeadline = errors.New("deadline exceeded")
	ErrCanceled = errors.New("context canceled")

	ErrUniqueViolation = errors.New("unique violation")

	// ErrInvalidCoordinates and ErrInvalidID are always reported together with ErrInvalidInput.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidID          = errors.New("invalid id")
)

// Kind is the stable failure category surfaced to callers.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindDependency Kind = "dependency"
	KindInternal   Kind = "internal"
)

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDependency):
		return KindDependency
	default:
		return KindInternal
	}
}

// IsRetryable reports whether the whole operation may be retried by the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDependency)
}

// Invalid builds a validation failure carrying a human readable detail.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// InvalidAs builds a validation failure that also matches the narrower reason.
func InvalidAs(reason error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidInput, reason, fmt.Sprintf(format, args...))
}

// NotFound builds a not-found failure for the given identifier.
func NotFound(what, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, what, id)
}

// Dependency wraps a failure of an external store that is not a postgres error,
// e.g. the search index or the cache.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDependency) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrDependency, ErrDeadline)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, ErrDependency, ErrCanceled)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrDependency, err)
}

func WrapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDependency) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrDependency, ErrDeadline)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, ErrDependency, ErrCanceled)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w: %w", op, ErrDependency, ErrUniqueViolation)
		case "22P02", "23514":
			return fmt.Errorf("%s: %w", op, ErrInvalidInput)
		default:
			return fmt.Errorf("%s: pg error %s: %w", op, pgErr.Code, ErrDependency)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrDependency, err)
}
