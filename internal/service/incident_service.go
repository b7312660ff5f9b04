package service

import (
	"context"

	"emergencyDashboard/internal/domain"
)

func (s *Service) Create(ctx context.Context, rec domain.Record) (domain.Record, error) {
	return s.IncidentService.Create(ctx, rec)
}

func (s *Service) Update(ctx context.Context, id string, rec domain.Record) (domain.Record, error) {
	return s.IncidentService.Update(ctx, id, rec)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.IncidentService.Delete(ctx, id)
}

func (s *Service) FindAll(ctx context.Context) ([]domain.Record, error) {
	return s.IncidentService.FindAll(ctx)
}

func (s *Service) FindByID(ctx context.Context, id string) (domain.Record, error) {
	return s.IncidentService.FindByID(ctx, id)
}
