package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/service"
	mock_service "emergencyDashboard/internal/service/mocks"
	"emergencyDashboard/internal/storage"
	"emergencyDashboard/pkg/e"
)

type coordinatorMocks struct {
	store   *mock_service.MockPrimaryStore
	index   *mock_service.MockSearchIndex
	cache   *mock_service.MockIncidentCache
	metrics *mock_service.MockWriteMetrics
}

func newCoordinator(t *testing.T) (*service.Incidents, coordinatorMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := coordinatorMocks{
		store:   mock_service.NewMockPrimaryStore(ctrl),
		index:   mock_service.NewMockSearchIndex(ctrl),
		cache:   mock_service.NewMockIncidentCache(ctrl),
		metrics: mock_service.NewMockWriteMetrics(ctrl),
	}
	return service.NewIncidents(m.store, m.index, m.cache, m.metrics, discardLogger()), m
}

// runTx makes InTx run the callback against tx and return its error as is.
func runTx(tx storage.RowWriter) func(context.Context, storage.TxFunc) error {
	return func(ctx context.Context, fn storage.TxFunc) error {
		return fn(ctx, tx)
	}
}

func sampleRecord() domain.Record {
	ts := domain.NewDateTime(time.Date(2024, 3, 1, 11, 52, 16, 0, time.UTC))
	return domain.Record{
		IncidentType:  domain.IncidentFire,
		Latitude:      f64ptr(40.712776),
		Longitude:     f64ptr(-74.005974),
		Timestamp:     &ts,
		SeverityLevel: domain.SeverityMedium,
	}
}

// --- Create ---

func TestIncidents_Create_OK(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	tx := &memTx{rows: map[uuid.UUID]domain.Row{}}

	var indexed domain.Document
	gomock.InOrder(
		m.store.EXPECT().InTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx)),
		m.metrics.EXPECT().ObserveWrite("create", "ok"),
		m.cache.EXPECT().Invalidate(gomock.Any()).Return(nil),
	)
	m.index.EXPECT().
		IndexDocument(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc domain.Document) error {
			indexed = doc
			return nil
		})

	in := sampleRecord()
	in.ID = "ignored-on-create"
	got, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got.ID == "" || got.ID == in.ID {
		t.Fatalf("expected a store-assigned id, got %q", got.ID)
	}
	if indexed.ID != got.ID {
		t.Fatalf("document id %q does not match record id %q", indexed.ID, got.ID)
	}
	if indexed.Location == nil || indexed.Location.Lat != 40.712776 || indexed.Location.Lon != -74.005974 {
		t.Fatalf("unexpected document location %+v", indexed.Location)
	}
	if indexed.Timestamp != "2024-03-01T11:52:16.000" {
		t.Fatalf("unexpected document timestamp %q", indexed.Timestamp)
	}
	if got.IncidentType != domain.IncidentFire || got.SeverityLevel != domain.SeverityMedium {
		t.Fatalf("unexpected record %+v", got)
	}
	if len(tx.rows) != 1 {
		t.Fatalf("expected one inserted row, got %d", len(tx.rows))
	}
}

func TestIncidents_Create_IndexFailure_RollsBack(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	tx := &memTx{rows: map[uuid.UUID]domain.Row{}}

	m.store.EXPECT().InTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx))
	m.index.EXPECT().
		IndexDocument(gomock.Any(), gomock.Any()).
		Return(e.Dependency("search.Index.IndexDocument", errors.New("connection refused")))
	m.metrics.EXPECT().ObserveWrite("create", "dependency")
	m.metrics.EXPECT().ObserveRollback("create")

	_, err := svc.Create(context.Background(), sampleRecord())
	if !errors.Is(err, e.ErrDependency) {
		t.Fatalf("expected dependency failure, got %v", err)
	}
	if !e.IsRetryable(err) {
		t.Fatalf("expected retryable error")
	}
}

func TestIncidents_Create_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  domain.Record
	}{
		{"latitude_out_of_range", domain.Record{Latitude: f64ptr(91), Longitude: f64ptr(0)}},
		{"longitude_out_of_range", domain.Record{Latitude: f64ptr(0), Longitude: f64ptr(-180.5)}},
		{"half_pair", domain.Record{Latitude: f64ptr(10)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc, m := newCoordinator(t)
			m.metrics.EXPECT().ObserveWrite("create", "invalid")

			_, err := svc.Create(context.Background(), tc.rec)
			if e.KindOf(err) != e.KindValidation {
				t.Fatalf("expected validation failure, got %v", err)
			}
			if e.IsRetryable(err) {
				t.Fatalf("validation failures must not be retryable")
			}
		})
	}
}

func TestIncidents_Create_CommitFailure(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	tx := &memTx{rows: map[uuid.UUID]domain.Row{}}

	m.store.EXPECT().
		InTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn storage.TxFunc) error {
			if err := fn(ctx, tx); err != nil {
				return err
			}
			return fmt.Errorf("%w: %w", storage.ErrCommitFailed, e.Dependency("postgres.Incident.InTx", errors.New("conn reset")))
		})
	m.index.EXPECT().IndexDocument(gomock.Any(), gomock.Any()).Return(nil)
	m.metrics.EXPECT().ObserveWrite("create", "dependency")

	_, err := svc.Create(context.Background(), sampleRecord())
	if !errors.Is(err, storage.ErrCommitFailed) || !errors.Is(err, e.ErrDependency) {
		t.Fatalf("expected commit failure reported as dependency failure, got %v", err)
	}
}

func TestIncidents_Create_UnclassifiedErrorBecomesDependency(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	m.store.EXPECT().InTx(gomock.Any(), gomock.Any()).Return(errors.New("boom"))
	m.metrics.EXPECT().ObserveWrite("create", "dependency")

	_, err := svc.Create(context.Background(), sampleRecord())
	if !errors.Is(err, e.ErrDependency) {
		t.Fatalf("expected dependency failure, got %v", err)
	}
}

// --- Update ---

func TestIncidents_Update_OK_IgnoresBodyID(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	id := uuid.New()
	tx := &memTx{rows: map[uuid.UUID]domain.Row{id: {ID: id, IncidentType: domain.IncidentPolice}}}

	m.store.EXPECT().InTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx))
	m.index.EXPECT().
		IndexDocument(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc domain.Document) error {
			if doc.ID != id.String() {
				t.Errorf("document id = %q, want %q", doc.ID, id)
			}
			return nil
		})
	m.metrics.EXPECT().ObserveWrite("update", "ok")
	m.cache.EXPECT().Invalidate(gomock.Any()).Return(nil)

	in := sampleRecord()
	in.ID = uuid.NewString()
	got, err := svc.Update(context.Background(), id.String(), in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.ID != id.String() {
		t.Fatalf("id = %q, want %q", got.ID, id)
	}
	if tx.rows[id].IncidentType != domain.IncidentFire {
		t.Fatalf("row not replaced: %+v", tx.rows[id])
	}
}

func TestIncidents_Update_NotFound(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	tx := &memTx{rows: map[uuid.UUID]domain.Row{}}

	m.store.EXPECT().InTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx))
	m.metrics.EXPECT().ObserveWrite("update", "not_found")

	id := uuid.NewString()
	_, err := svc.Update(context.Background(), id, sampleRecord())
	if !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if e.IsRetryable(err) {
		t.Fatalf("not found must not be retryable")
	}
}

func TestIncidents_Update_MalformedID(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"", "42", "not-a-uuid"} {
		t.Run(id, func(t *testing.T) {
			t.Parallel()

			svc, m := newCoordinator(t)
			m.metrics.EXPECT().ObserveWrite("update", "invalid")

			_, err := svc.Update(context.Background(), id, sampleRecord())
			if e.KindOf(err) != e.KindValidation {
				t.Fatalf("expected validation failure for %q, got %v", id, err)
			}
		})
	}
}

func TestIncidents_Update_IndexFailure_RollsBack(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	id := uuid.New()
	tx := &memTx{rows: map[uuid.UUID]domain.Row{id: {ID: id}}}

	m.store.EXPECT().InTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx))
	m.index.EXPECT().IndexDocument(gomock.Any(), gomock.Any()).Return(e.Dependency("search", context.DeadlineExceeded))
	m.metrics.EXPECT().ObserveWrite("update", "dependency")
	m.metrics.EXPECT().ObserveRollback("update")

	_, err := svc.Update(context.Background(), id.String(), sampleRecord())
	if !errors.Is(err, e.ErrDependency) || !errors.Is(err, e.ErrDeadline) {
		t.Fatalf("expected dependency deadline failure, got %v", err)
	}
}

// --- Delete ---

func TestIncidents_Delete_OK(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	id := uuid.New()
	tx := &memTx{rows: map[uuid.UUID]domain.Row{id: {ID: id}}}

	gomock.InOrder(
		m.store.EXPECT().InTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx)),
		m.metrics.EXPECT().ObserveWrite("delete", "ok"),
		m.cache.EXPECT().Invalidate(gomock.Any()).Return(errors.New("redis down")),
	)
	m.index.EXPECT().DeleteDocument(gomock.Any(), id.String()).Return(nil)

	// a failed invalidation is logged, not surfaced
	if err := svc.Delete(context.Background(), id.String()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(tx.rows) != 0 {
		t.Fatalf("row not deleted")
	}
}

func TestIncidents_Delete_NotFound(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	tx := &memTx{rows: map[uuid.UUID]domain.Row{}}

	m.store.EXPECT().InTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx))
	m.metrics.EXPECT().ObserveWrite("delete", "not_found")

	err := svc.Delete(context.Background(), uuid.NewString())
	if !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIncidents_Delete_IndexFailure_RollsBack(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	id := uuid.New()
	tx := &memTx{rows: map[uuid.UUID]domain.Row{id: {ID: id}}}

	m.store.EXPECT().InTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(tx))
	m.index.EXPECT().DeleteDocument(gomock.Any(), id.String()).Return(e.Dependency("search", errors.New("READONLY")))
	m.metrics.EXPECT().ObserveWrite("delete", "dependency")
	m.metrics.EXPECT().ObserveRollback("delete")

	if err := svc.Delete(context.Background(), id.String()); !errors.Is(err, e.ErrDependency) {
		t.Fatalf("expected dependency failure, got %v", err)
	}
}

// --- FindAll / FindByID ---

func TestIncidents_FindAll_CacheHit(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	cached := []domain.Record{{ID: uuid.NewString(), IncidentType: domain.IncidentMedical}}
	m.cache.EXPECT().GetAll(gomock.Any()).Return(cached, int64(3), true, nil)

	got, err := svc.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(got) != 1 || got[0].ID != cached[0].ID {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestIncidents_FindAll_CacheMiss(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	id := uuid.New()

	m.cache.EXPECT().GetAll(gomock.Any()).Return(nil, int64(7), false, nil)
	m.store.EXPECT().FindAll(gomock.Any()).Return([]domain.Row{{ID: id, IncidentType: domain.IncidentPolice}}, nil)
	m.cache.EXPECT().
		SetAll(gomock.Any(), int64(7), gomock.Len(1)).
		Return(nil)

	got, err := svc.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(got) != 1 || got[0].ID != id.String() || got[0].IncidentType != domain.IncidentPolice {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestIncidents_FindAll_CacheErrorFallsThrough(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)

	// without a generation the list cannot be stored safely, so SetAll is not expected
	m.cache.EXPECT().GetAll(gomock.Any()).Return(nil, int64(0), false, e.Dependency("redis", errors.New("down")))
	m.store.EXPECT().FindAll(gomock.Any()).Return(nil, nil)

	got, err := svc.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
}

func TestIncidents_FindAll_StoreError(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	m.cache.EXPECT().GetAll(gomock.Any()).Return(nil, int64(0), false, nil)
	m.store.EXPECT().FindAll(gomock.Any()).Return(nil, e.Dependency("postgres", context.DeadlineExceeded))

	if _, err := svc.FindAll(context.Background()); !errors.Is(err, e.ErrDependency) {
		t.Fatalf("expected dependency failure, got %v", err)
	}
}

func TestIncidents_FindAll_WithoutCache(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mock_service.NewMockPrimaryStore(ctrl)
	svc := service.NewIncidents(store, mock_service.NewMockSearchIndex(ctrl), nil, nopMetrics{}, discardLogger())

	store.EXPECT().FindAll(gomock.Any()).Return([]domain.Row{}, nil)
	if _, err := svc.FindAll(context.Background()); err != nil {
		t.Fatalf("FindAll: %v", err)
	}
}

func TestIncidents_FindByID(t *testing.T) {
	t.Parallel()

	svc, m := newCoordinator(t)
	id := uuid.New()

	m.store.EXPECT().FindByID(gomock.Any(), id).Return(&domain.Row{ID: id, SeverityLevel: domain.SeverityHigh}, nil)
	got, err := svc.FindByID(context.Background(), id.String())
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.ID != id.String() || got.SeverityLevel != domain.SeverityHigh {
		t.Fatalf("unexpected record %+v", got)
	}

	missing := uuid.New()
	m.store.EXPECT().FindByID(gomock.Any(), missing).Return(nil, fmt.Errorf("pg: %w", e.ErrNotFound))
	if _, err := svc.FindByID(context.Background(), missing.String()); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
