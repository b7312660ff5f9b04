package service

import (
	"context"
	"log/slog"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/mapper"
	"emergencyDashboard/internal/query"
	"emergencyDashboard/pkg/e"
	"emergencyDashboard/pkg/validator"
)

type Search struct {
	index  SearchIndex
	logger *slog.Logger
}

func NewSearch(index SearchIndex, logger *slog.Logger) *Search {
	return &Search{index: index, logger: logger}
}

func (s *Search) SearchByType(ctx context.Context, t domain.IncidentType) ([]domain.Record, error) {
	const op = "service.Search.SearchByType"

	docs, err := s.index.FindByType(ctx, t)
	if err != nil {
		s.logger.Error("find by type failed", slog.String("op", op), slog.String("type", t.Name()), slog.Any("error", err))
		return nil, err
	}
	return s.records(op, docs)
}

func (s *Search) Search(ctx context.Context, req domain.SearchRequest) ([]domain.Record, error) {
	const op = "service.Search.Search"

	if err := validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	q := query.Compile(req)
	s.logger.Debug("compiled search query", slog.String("op", op), slog.String("query", q.String()))

	docs, err := s.index.Execute(ctx, q)
	if err != nil {
		s.logger.Error("search failed", slog.String("op", op), slog.Any("error", err))
		return nil, err
	}
	s.logger.Debug("search hits", slog.String("op", op), slog.Int("count", len(docs)))

	return s.records(op, docs)
}

// records maps index hits. A hit that cannot be mapped is a fault of the index
// content, not of the caller's request.
func (s *Search) records(op string, docs []domain.Document) ([]domain.Record, error) {
	out, err := mapper.DocumentsToRecords(docs)
	if err != nil {
		s.logger.Error("unreadable index document", slog.String("op", op), slog.Any("error", err))
		return nil, e.Dependency(op, err)
	}
	return out, nil
}
