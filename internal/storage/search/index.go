package search

import (
	"context"
	"log/slog"

	"emergencyDashboard/internal/query"
	"emergencyDashboard/pkg/e"
)

// Hash fields of an indexed incident.
const (
	fieldID            = "id"
	fieldIncidentType  = query.IncidentTypeField
	fieldLocation      = query.LocationField
	fieldTimestamp     = query.TimestampField
	fieldTimestampMs   = "timestampMs"
	fieldSeverityLevel = "severityLevel"
)

// EnsureIndex creates the search index over incident hashes. An existing index
// is left as is.
func (s *Store) EnsureIndex(ctx context.Context) error {
	const op = "search.Index.EnsureIndex"

	cmd := s.b().Arbitrary(OpCreateIndex).Args(createArgs(s.index)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			s.logger.Debug("search index exists", slog.String("op", op), slog.String("index", s.index))
			return nil
		}
		s.logger.Error("create index failed", slog.String("op", op), slog.Any("error", err))
		return e.Dependency(op, err)
	}

	s.logger.Info("search index created", slog.String("op", op), slog.String("index", s.index))
	return nil
}

func createArgs(index string) []string {
	return []string{
		index,
		"ON", "HASH",
		"PREFIX", "1", KeyPrefix,
		"SCHEMA",
		fieldID, "TAG",
		fieldIncidentType, "TEXT", "NOSTEM",
		fieldLocation, "GEO",
		fieldTimestampMs, "NUMERIC", "SORTABLE",
		fieldSeverityLevel, "TAG",
	}
}
