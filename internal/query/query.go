// Package query compiles a search request into an engine-neutral boolean
// query: optional should-clauses that only affect relevance, mandatory filter
// clauses, and a sort order.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/mapper"
)

const (
	ScoreField        = "_score"
	IncidentTypeField = "incidentType"
	LocationField     = "location"
	TimestampField    = "timestamp"

	DefaultBoost       = 1.0
	IncidentTypeBoost  = 3.0
	DistanceKilometers = 10.0
	TimeWindow         = time.Hour
)

type ClauseKind int

const (
	ClauseMatch ClauseKind = iota + 1
	ClauseGeoDistance
	ClauseRange
)

// Clause is a single leaf of the boolean query. Only the fields relevant to
// Kind are set.
type Clause struct {
	Kind  ClauseKind
	Field string
	Boost float64

	// ClauseMatch
	Value string

	// ClauseGeoDistance
	Lat      float64
	Lon      float64
	RadiusKm float64

	// ClauseRange, inclusive on both ends
	GTE string
	LTE string
}

type SortField struct {
	Field string
	Desc  bool
}

// Query is a pure value. An empty query matches every document.
type Query struct {
	Should []Clause
	Filter []Clause
	Sort   []SortField
}

func (q Query) MatchAll() bool {
	return len(q.Should) == 0 && len(q.Filter) == 0
}

func Compile(req domain.SearchRequest) Query {
	q := Query{
		Sort: []SortField{{Field: ScoreField, Desc: true}},
	}

	if req.IncidentType != domain.IncidentTypeNone {
		q.Should = append(q.Should, Clause{
			Kind:  ClauseMatch,
			Field: IncidentTypeField,
			Value: req.IncidentType.Tag(),
			Boost: IncidentTypeBoost,
		})
	}

	if req.Latitude != nil && req.Longitude != nil {
		q.Filter = append(q.Filter, Clause{
			Kind:     ClauseGeoDistance,
			Field:    LocationField,
			Lat:      *req.Latitude,
			Lon:      *req.Longitude,
			RadiusKm: DistanceKilometers,
			Boost:    DefaultBoost,
		})
	}

	if req.Timestamp != nil {
		ts := req.Timestamp.Time
		q.Filter = append(q.Filter, Clause{
			Kind:  ClauseRange,
			Field: TimestampField,
			GTE:   mapper.FormatTimestamp(ts.Add(-TimeWindow)),
			LTE:   mapper.FormatTimestamp(ts.Add(TimeWindow)),
			Boost: DefaultBoost,
		})
	}

	return q
}

// String renders the query for logs in a stable, JSON-like form.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(`{"bool":{`)
	writeClauses(&b, "should", q.Should)
	b.WriteString(",")
	writeClauses(&b, "filter", q.Filter)
	b.WriteString(`},"sort":[`)
	for i, s := range q.Sort {
		if i > 0 {
			b.WriteString(",")
		}
		order := "asc"
		if s.Desc {
			order = "desc"
		}
		fmt.Fprintf(&b, `{%q:%q}`, s.Field, order)
	}
	b.WriteString("]}")
	return b.String()
}

func writeClauses(b *strings.Builder, name string, clauses []Clause) {
	fmt.Fprintf(b, "%q:[", name)
	for i, c := range clauses {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(c.String())
	}
	b.WriteString("]")
}

func (c Clause) String() string {
	boost := strconv.FormatFloat(c.Boost, 'f', 1, 64)
	switch c.Kind {
	case ClauseMatch:
		return fmt.Sprintf(`{"match":{%q:{"query":%q,"boost":%s}}}`, c.Field, c.Value, boost)
	case ClauseGeoDistance:
		return fmt.Sprintf(`{"geo_distance":{%q:[%s,%s],"distance":"%skm"}}`, c.Field,
			strconv.FormatFloat(c.Lon, 'f', -1, 64), strconv.FormatFloat(c.Lat, 'f', -1, 64),
			strconv.FormatFloat(c.RadiusKm, 'f', -1, 64))
	case ClauseRange:
		return fmt.Sprintf(`{"range":{%q:{"gte":%q,"lte":%q}}}`, c.Field, c.GTE, c.LTE)
	default:
		return "{}"
	}
}
