package service

import (
	"context"

	"emergencyDashboard/internal/domain"
)

func (s *Service) SearchByType(ctx context.Context, t domain.IncidentType) ([]domain.Record, error) {
	return s.SearchService.SearchByType(ctx, t)
}

func (s *Service) Search(ctx context.Context, req domain.SearchRequest) ([]domain.Record, error) {
	return s.SearchService.Search(ctx, req)
}
