package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/query"
	"emergencyDashboard/internal/storage"
	"emergencyDashboard/pkg/e"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func f64ptr(v float64) *float64 { return &v }

// memStore is a primary store whose transactions work on a copy of the table
// and only publish it on commit.
type memStore struct {
	mu         sync.Mutex
	rows       map[uuid.UUID]domain.Row
	failCommit bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[uuid.UUID]domain.Row{}}
}

func (s *memStore) InTx(ctx context.Context, fn storage.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[uuid.UUID]domain.Row, len(s.rows))
	for k, v := range s.rows {
		staged[k] = v
	}
	if err := fn(ctx, &memTx{rows: staged}); err != nil {
		return err
	}
	if s.failCommit {
		return fmt.Errorf("%w: %w", storage.ErrCommitFailed, e.Dependency("memStore.Commit", fmt.Errorf("connection reset")))
	}
	s.rows = staged
	return nil
}

func (s *memStore) FindAll(_ context.Context) ([]domain.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Timestamp, out[j].Timestamp
		switch {
		case ti == nil && tj == nil:
			return out[i].ID.String() < out[j].ID.String()
		case ti == nil:
			return false
		case tj == nil:
			return true
		case !ti.Equal(*tj):
			return ti.After(*tj)
		default:
			return out[i].ID.String() < out[j].ID.String()
		}
	})
	return out, nil
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("memStore.FindByID: %w", e.ErrNotFound)
	}
	return &r, nil
}

func (s *memStore) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.rows[id]
	return ok, nil
}

type memTx struct {
	rows map[uuid.UUID]domain.Row
}

func (t *memTx) Insert(_ context.Context, row *domain.Row) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if _, ok := t.rows[row.ID]; ok {
		return fmt.Errorf("memTx.Insert: %w: %w", e.ErrDependency, e.ErrUniqueViolation)
	}
	t.rows[row.ID] = *row
	return nil
}

func (t *memTx) Update(_ context.Context, row *domain.Row) error {
	if _, ok := t.rows[row.ID]; !ok {
		return fmt.Errorf("memTx.Update: %w", e.ErrNotFound)
	}
	t.rows[row.ID] = *row
	return nil
}

func (t *memTx) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := t.rows[id]
	return ok, nil
}

func (t *memTx) DeleteByID(_ context.Context, id uuid.UUID) error {
	if _, ok := t.rows[id]; !ok {
		return fmt.Errorf("memTx.DeleteByID: %w", e.ErrNotFound)
	}
	delete(t.rows, id)
	return nil
}

func (t *memTx) LockByID(_ context.Context, id uuid.UUID) (*domain.Row, error) {
	r, ok := t.rows[id]
	if !ok {
		return nil, fmt.Errorf("memTx.LockByID: %w", e.ErrNotFound)
	}
	return &r, nil
}

// memIndex evaluates compiled queries the way the search engine does: filters
// must all hold, should-clauses add their boost, and with no filter at least
// one should-clause has to match. Documents keep insertion order on ties.
type memIndex struct {
	mu        sync.Mutex
	order     []string
	docs      map[string]domain.Document
	failIndex error
	failDel   error
	// attempted holds the last document an IndexDocument call was given.
	attempted domain.Document
}

func newMemIndex() *memIndex {
	return &memIndex{docs: map[string]domain.Document{}}
}

func (x *memIndex) IndexDocument(_ context.Context, doc domain.Document) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.attempted = doc
	if x.failIndex != nil {
		return x.failIndex
	}
	if _, ok := x.docs[doc.ID]; !ok {
		x.order = append(x.order, doc.ID)
	}
	x.docs[doc.ID] = doc
	return nil
}

func (x *memIndex) DeleteDocument(_ context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.failDel != nil {
		return x.failDel
	}
	delete(x.docs, id)
	for i, v := range x.order {
		if v == id {
			x.order = append(x.order[:i], x.order[i+1:]...)
			break
		}
	}
	return nil
}

func (x *memIndex) FindByType(_ context.Context, t domain.IncidentType) ([]domain.Document, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var out []domain.Document
	for _, id := range x.order {
		if d := x.docs[id]; d.IncidentType == t {
			out = append(out, d)
		}
	}
	return out, nil
}

func (x *memIndex) Execute(_ context.Context, q query.Query) ([]domain.Document, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	type hit struct {
		doc   domain.Document
		score float64
	}
	var hits []hit
	for _, id := range x.order {
		d := x.docs[id]
		if !matchesFilters(d, q.Filter) {
			continue
		}
		score := 1.0
		matched := 0
		for _, c := range q.Should {
			if c.Kind == query.ClauseMatch && d.IncidentType.Tag() == c.Value {
				score += c.Boost
				matched++
			}
		}
		if len(q.Filter) == 0 && len(q.Should) > 0 && matched == 0 {
			continue
		}
		hits = append(hits, hit{doc: d, score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]domain.Document, len(hits))
	for i, h := range hits {
		out[i] = h.doc
	}
	return out, nil
}

func (x *memIndex) has(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.docs[id]
	return ok
}

func matchesFilters(d domain.Document, filters []query.Clause) bool {
	for _, c := range filters {
		switch c.Kind {
		case query.ClauseGeoDistance:
			if d.Location == nil || haversineKm(c.Lat, c.Lon, d.Location.Lat, d.Location.Lon) > c.RadiusKm {
				return false
			}
		case query.ClauseRange:
			// the sortable layout makes text order equal time order
			if d.Timestamp == "" || d.Timestamp < c.GTE || d.Timestamp > c.LTE {
				return false
			}
		case query.ClauseMatch:
			if d.IncidentType.Tag() != c.Value {
				return false
			}
		}
	}
	return true
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

type nopMetrics struct{}

func (nopMetrics) ObserveWrite(string, string) {}
func (nopMetrics) ObserveRollback(string)      {}


// memCache mirrors the Redis cache: Invalidate bumps the generation and
// SetAll ignores lists read under an older one.
type memCache struct {
	mu   sync.Mutex
	gen  int64
	list []domain.Record
	set  bool
}

func (c *memCache) GetAll(_ context.Context) ([]domain.Record, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list, c.gen, c.set, nil
}

func (c *memCache) SetAll(_ context.Context, gen int64, incidents []domain.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.list, c.set = incidents, true
	return nil
}

func (c *memCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.list, c.set = nil, false
	return nil
}

// gatedStore holds FindAll after the rows are read until release is closed.
type gatedStore struct {
	*memStore
	loaded  chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore(s *memStore) *gatedStore {
	return &gatedStore{memStore: s, loaded: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) FindAll(ctx context.Context) ([]domain.Row, error) {
	rows, err := g.memStore.FindAll(ctx)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.loaded)
		<-g.release
	}
	return rows, err
}
