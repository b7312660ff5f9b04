package query_test

import (
	"testing"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/query"
)

func f64ptr(v float64) *float64 { return &v }

func mustDateTime(t *testing.T, s string) *domain.DateTime {
	t.Helper()
	d, err := domain.ParseDateTime(s)
	if err != nil {
		t.Fatalf("ParseDateTime: %v", err)
	}
	return &d
}

func assertScoreSort(t *testing.T, q query.Query) {
	t.Helper()
	if len(q.Sort) != 1 || q.Sort[0].Field != query.ScoreField || !q.Sort[0].Desc {
		t.Fatalf("expected sort by _score desc, got %+v", q.Sort)
	}
}

func TestCompile_TypeOnly(t *testing.T) {
	t.Parallel()

	q := query.Compile(domain.SearchRequest{IncidentType: domain.IncidentFire})

	if len(q.Should) != 1 || len(q.Filter) != 0 {
		t.Fatalf("expected exactly one should clause and no filters: %s", q)
	}
	c := q.Should[0]
	if c.Kind != query.ClauseMatch || c.Field != "incidentType" || c.Value != "fire" || c.Boost != 3.0 {
		t.Fatalf("unexpected clause %+v", c)
	}
	if q.MatchAll() {
		t.Fatalf("type query must not be match-all")
	}
	assertScoreSort(t, q)
}

func TestCompile_NoneTypeOmitsClause(t *testing.T) {
	t.Parallel()

	q := query.Compile(domain.SearchRequest{IncidentType: domain.IncidentTypeNone})
	if !q.MatchAll() {
		t.Fatalf("expected match-all, got %s", q)
	}
}

func TestCompile_LocationOnly(t *testing.T) {
	t.Parallel()

	q := query.Compile(domain.SearchRequest{Latitude: f64ptr(40.7128), Longitude: f64ptr(-74.0060)})

	if len(q.Should) != 0 || len(q.Filter) != 1 {
		t.Fatalf("expected exactly one filter: %s", q)
	}
	c := q.Filter[0]
	if c.Kind != query.ClauseGeoDistance || c.Field != "location" {
		t.Fatalf("unexpected clause %+v", c)
	}
	if c.Lat != 40.7128 || c.Lon != -74.0060 || c.RadiusKm != 10 {
		t.Fatalf("unexpected geo parameters %+v", c)
	}
	assertScoreSort(t, q)
}

func TestCompile_HalfLocationOmitsClause(t *testing.T) {
	t.Parallel()

	for _, req := range []domain.SearchRequest{{Latitude: f64ptr(1)}, {Longitude: f64ptr(1)}} {
		if q := query.Compile(req); !q.MatchAll() {
			t.Fatalf("expected match-all for %+v, got %s", req, q)
		}
	}
}

func TestCompile_TimestampOnly(t *testing.T) {
	t.Parallel()

	q := query.Compile(domain.SearchRequest{Timestamp: mustDateTime(t, "2024-03-01T11:52:16")})

	if len(q.Should) != 0 || len(q.Filter) != 1 {
		t.Fatalf("expected exactly one filter: %s", q)
	}
	c := q.Filter[0]
	if c.Kind != query.ClauseRange || c.Field != "timestamp" {
		t.Fatalf("unexpected clause %+v", c)
	}
	if c.GTE != "2024-03-01T10:52:16.000" || c.LTE != "2024-03-01T12:52:16.000" {
		t.Fatalf("unexpected window [%s, %s]", c.GTE, c.LTE)
	}
}

func TestCompile_WindowCrossesMidnight(t *testing.T) {
	t.Parallel()

	q := query.Compile(domain.SearchRequest{Timestamp: mustDateTime(t, "2024-02-29T23:30:00")})
	c := q.Filter[0]
	if c.GTE != "2024-02-29T22:30:00.000" || c.LTE != "2024-03-01T00:30:00.000" {
		t.Fatalf("unexpected window [%s, %s]", c.GTE, c.LTE)
	}
}

func TestCompile_Empty(t *testing.T) {
	t.Parallel()

	q := query.Compile(domain.SearchRequest{})
	if !q.MatchAll() || len(q.Filter) != 0 || len(q.Should) != 0 {
		t.Fatalf("expected match-all, got %s", q)
	}
	assertScoreSort(t, q)
}

func TestCompile_AllClauses(t *testing.T) {
	t.Parallel()

	q := query.Compile(domain.SearchRequest{
		IncidentType: domain.IncidentMedical,
		Latitude:     f64ptr(1.5),
		Longitude:    f64ptr(2.5),
		Timestamp:    mustDateTime(t, "2024-03-01T11:52:16"),
	})

	if len(q.Should) != 1 || len(q.Filter) != 2 {
		t.Fatalf("unexpected shape: %s", q)
	}
	if q.Filter[0].Kind != query.ClauseGeoDistance || q.Filter[1].Kind != query.ClauseRange {
		t.Fatalf("unexpected filter order: %s", q)
	}

	want := `{"bool":{"should":[{"match":{"incidentType":{"query":"medical","boost":3.0}}}],` +
		`"filter":[{"geo_distance":{"location":[2.5,1.5],"distance":"10km"}},` +
		`{"range":{"timestamp":{"gte":"2024-03-01T10:52:16.000","lte":"2024-03-01T12:52:16.000"}}}]},` +
		`"sort":[{"_score":"desc"}]}`
	if q.String() != want {
		t.Fatalf("got  %s\nwant %s", q.String(), want)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	t.Parallel()

	req := domain.SearchRequest{IncidentType: domain.IncidentPolice, Latitude: f64ptr(3), Longitude: f64ptr(4)}
	if query.Compile(req).String() != query.Compile(req).String() {
		t.Fatalf("compilation is not deterministic")
	}
}
