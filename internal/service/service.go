package service

import (
	"context"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/query"
	"emergencyDashboard/internal/storage"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go

// IncidentService writes incidents to the primary store and the search index
// together.
type IncidentService interface {
	Create(ctx context.Context, rec domain.Record) (domain.Record, error)
	Update(ctx context.Context, id string, rec domain.Record) (domain.Record, error)
	Delete(ctx context.Context, id string) error
	FindAll(ctx context.Context) ([]domain.Record, error)
	FindByID(ctx context.Context, id string) (domain.Record, error)
}

// SearchService is the read side backed by the search index.
type SearchService interface {
	SearchByType(ctx context.Context, t domain.IncidentType) ([]domain.Record, error)
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.Record, error)
}

// ReindexService rebuilds the index projection from the primary store.
type ReindexService interface {
	Reindex(ctx context.Context) (domain.ReindexResult, error)
}

// PrimaryStore is the transactional source of truth.
type PrimaryStore interface {
	InTx(ctx context.Context, fn storage.TxFunc) error
	FindAll(ctx context.Context) ([]domain.Row, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Row, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
}

type SearchIndex interface {
	IndexDocument(ctx context.Context, doc domain.Document) error
	DeleteDocument(ctx context.Context, id string) error
	FindByType(ctx context.Context, t domain.IncidentType) ([]domain.Document, error)
	Execute(ctx context.Context, q query.Query) ([]domain.Document, error)
}

// IncidentCache stores the FindAll list. GetAll returns the cache generation
// it observed; SetAll must drop the list when Invalidate ran since then.
type IncidentCache interface {
	GetAll(ctx context.Context) ([]domain.Record, int64, bool, error)
	SetAll(ctx context.Context, gen int64, incidents []domain.Record) error
	Invalidate(ctx context.Context) error
}

type WriteMetrics interface {
	ObserveWrite(op, result string)
	ObserveRollback(op string)
}

type Service struct {
	IncidentService IncidentService
	SearchService   SearchService
	ReindexService  ReindexService
}

func NewService(
	incidentService IncidentService,
	searchService SearchService,
	reindexService ReindexService,
) *Service {
	return &Service{
		IncidentService: incidentService,
		SearchService:   searchService,
		ReindexService:  reindexService,
	}
}

func (s *Service) Reindex(ctx context.Context) (domain.ReindexResult, error) {
	return s.ReindexService.Reindex(ctx)
}
