package service

import (
	"context"
	"errors"
	"log/slog"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/mapper"
	"emergencyDashboard/internal/metrics"
	"emergencyDashboard/internal/storage"
	"emergencyDashboard/pkg/e"

	"github.com/google/uuid"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// Incidents is the write coordinator. Every write runs in one primary store
// transaction with the primary write first and the index write last, so a
// failing index write rolls the row change back.
type Incidents struct {
	store   PrimaryStore
	index   SearchIndex
	cache   IncidentCache
	metrics WriteMetrics
	logger  *slog.Logger
}

// NewIncidents builds the coordinator. cache may be nil.
func NewIncidents(store PrimaryStore, index SearchIndex, cache IncidentCache, m WriteMetrics, logger *slog.Logger) *Incidents {
	return &Incidents{
		store:   store,
		index:   index,
		cache:   cache,
		metrics: m,
		logger:  logger,
	}
}

// Create ignores any identifier in rec; the primary store assigns one.
func (s *Incidents) Create(ctx context.Context, rec domain.Record) (domain.Record, error) {
	const op = "service.Incidents.Create"

	rec.ID = ""
	row, err := mapper.RecordToRow(rec)
	if err != nil {
		return domain.Record{}, s.fail(ctx, op, opCreate, "", err, false)
	}

	var indexFailed bool
	err = s.store.InTx(ctx, func(ctx context.Context, rows storage.RowWriter) error {
		if err := rows.Insert(ctx, &row); err != nil {
			return err
		}
		if err := s.index.IndexDocument(ctx, mapper.RowToDocument(row)); err != nil {
			indexFailed = true
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Record{}, s.fail(ctx, op, opCreate, idString(row.ID), err, indexFailed)
	}

	s.succeed(ctx, op, opCreate, row.ID)
	return mapper.RowToRecord(row), nil
}

// Update replaces every field of the incident identified by id. The
// identifier in rec is ignored.
func (s *Incidents) Update(ctx context.Context, id string, rec domain.Record) (domain.Record, error) {
	const op = "service.Incidents.Update"

	uid, err := parseRequiredID(id)
	if err != nil {
		return domain.Record{}, s.fail(ctx, op, opUpdate, id, err, false)
	}

	rec.ID = ""
	row, err := mapper.RecordToRow(rec)
	if err != nil {
		return domain.Record{}, s.fail(ctx, op, opUpdate, id, err, false)
	}
	row.ID = uid

	var indexFailed bool
	err = s.store.InTx(ctx, func(ctx context.Context, rows storage.RowWriter) error {
		exists, err := rows.ExistsByID(ctx, uid)
		if err != nil {
			return err
		}
		if !exists {
			return e.NotFound("incident", id)
		}
		if err := rows.Update(ctx, &row); err != nil {
			return err
		}
		if err := s.index.IndexDocument(ctx, mapper.RowToDocument(row)); err != nil {
			indexFailed = true
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Record{}, s.fail(ctx, op, opUpdate, id, err, indexFailed)
	}

	s.succeed(ctx, op, opUpdate, uid)
	return mapper.RowToRecord(row), nil
}

func (s *Incidents) Delete(ctx context.Context, id string) error {
	const op = "service.Incidents.Delete"

	uid, err := parseRequiredID(id)
	if err != nil {
		return s.fail(ctx, op, opDelete, id, err, false)
	}

	var indexFailed bool
	err = s.store.InTx(ctx, func(ctx context.Context, rows storage.RowWriter) error {
		exists, err := rows.ExistsByID(ctx, uid)
		if err != nil {
			return err
		}
		if !exists {
			return e.NotFound("incident", id)
		}
		if err := rows.DeleteByID(ctx, uid); err != nil {
			return err
		}
		if err := s.index.DeleteDocument(ctx, mapper.FormatID(uid)); err != nil {
			indexFailed = true
			return err
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, op, opDelete, id, err, indexFailed)
	}

	s.succeed(ctx, op, opDelete, uid)
	return nil
}

// FindAll serves from the cache when possible. Cache failures only cost a
// trip to the primary store.
func (s *Incidents) FindAll(ctx context.Context) ([]domain.Record, error) {
	const op = "service.Incidents.FindAll"

	// the generation is read before the store so a delete committed in
	// between makes SetAll drop this list
	var (
		gen      int64
		storable bool
	)
	if s.cache != nil {
		cached, g, ok, err := s.cache.GetAll(ctx)
		switch {
		case err != nil:
			s.logger.Warn("cache read failed", slog.String("op", op), slog.Any("error", err))
		case ok:
			return cached, nil
		default:
			gen, storable = g, true
		}
	}

	rows, err := s.store.FindAll(ctx)
	if err != nil {
		s.logger.Error("find all failed", slog.String("op", op), slog.Any("error", err))
		return nil, err
	}
	records := mapper.RowsToRecords(rows)

	if storable {
		if err := s.cache.SetAll(ctx, gen, records); err != nil {
			s.logger.Warn("cache write failed", slog.String("op", op), slog.Any("error", err))
		}
	}

	return records, nil
}

func (s *Incidents) FindByID(ctx context.Context, id string) (domain.Record, error) {
	const op = "service.Incidents.FindByID"

	uid, err := parseRequiredID(id)
	if err != nil {
		return domain.Record{}, err
	}

	row, err := s.store.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return domain.Record{}, e.NotFound("incident", id)
		}
		s.logger.Error("find by id failed", slog.String("op", op), slog.String("id", id), slog.Any("error", err))
		return domain.Record{}, err
	}
	return mapper.RowToRecord(*row), nil
}

func (s *Incidents) succeed(ctx context.Context, op, metricOp string, id uuid.UUID) {
	s.metrics.ObserveWrite(metricOp, metrics.ResultOK)
	s.logger.Info("incident written", slog.String("op", op), slog.String("id", idString(id)))

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidate failed", slog.String("op", op), slog.Any("error", err))
		}
	}
}

// fail records the outcome and returns err unchanged. Errors that reach the
// caller unclassified are reported as dependency failures.
func (s *Incidents) fail(ctx context.Context, op, metricOp, id string, err error, indexFailed bool) error {
	if e.KindOf(err) == e.KindInternal {
		err = e.Dependency(op, err)
	}

	kind := e.KindOf(err)
	s.metrics.ObserveWrite(metricOp, resultOf(kind))

	switch {
	case errors.Is(err, storage.ErrCommitFailed):
		// the index write already happened; the document may now outlive its row
		s.logger.ErrorContext(ctx, "commit failed after index write, index may hold an orphan document",
			slog.String("op", op), slog.String("id", id), slog.Any("error", err))
	case indexFailed:
		s.metrics.ObserveRollback(metricOp)
		s.logger.ErrorContext(ctx, "index write failed, primary store rolled back",
			slog.String("op", op), slog.String("id", id), slog.Any("error", err))
	case kind == e.KindDependency:
		s.logger.ErrorContext(ctx, "primary store write failed",
			slog.String("op", op), slog.String("id", id), slog.Any("error", err))
	default:
		s.logger.InfoContext(ctx, "incident write rejected",
			slog.String("op", op), slog.String("id", id), slog.String("kind", string(kind)), slog.Any("error", err))
	}

	return err
}

func resultOf(k e.Kind) string {
	switch k {
	case e.KindValidation:
		return metrics.ResultInvalid
	case e.KindNotFound:
		return metrics.ResultNotFound
	case e.KindDependency:
		return metrics.ResultDependency
	default:
		return metrics.ResultInternal
	}
}

func parseRequiredID(id string) (uuid.UUID, error) {
	uid, err := mapper.ParseID(id)
	if err != nil {
		return uuid.Nil, err
	}
	if uid == uuid.Nil {
		return uuid.Nil, e.InvalidAs(e.ErrInvalidID, "incident id is required")
	}
	return uid, nil
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return mapper.FormatID(id)
}
