package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/mapper"
	"emergencyDashboard/pkg/e"
)

// IndexDocument replaces the stored projection of doc. Fields absent from doc
// are removed, so the old hash is dropped in the same MULTI block.
func (s *Store) IndexDocument(ctx context.Context, doc domain.Document) error {
	const op = "search.Index.IndexDocument"

	if doc.ID == "" {
		return e.Invalid("document id is required")
	}
	fields, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	key := documentKey(doc.ID)
	hset := s.b().Hset().Key(key).FieldValue()
	for _, kv := range fields {
		hset = hset.FieldValue(kv[0], kv[1])
	}

	results := s.client.DoMulti(ctx,
		s.b().Multi().Build(),
		s.b().Del().Key(key).Build(),
		hset.Build(),
		s.b().Exec().Build(),
	)
	if err := firstError(results); err != nil {
		s.logger.Error("index document failed", slog.String("op", op), slog.String("id", doc.ID), slog.Any("error", err))
		return e.Dependency(op, fmt.Errorf("%s %s: %w", OpIndex, key, err))
	}

	return nil
}

// DeleteDocument removes the projection of id. Deleting an absent document is
// not an error.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	const op = "search.Index.DeleteDocument"

	cmd := s.b().Del().Key(documentKey(id)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		s.logger.Error("delete document failed", slog.String("op", op), slog.String("id", id), slog.Any("error", err))
		return e.Dependency(op, fmt.Errorf("%s: %w", OpDel, err))
	}
	return nil
}

func firstError(results []rueidis.RedisResult) error {
	for _, res := range results {
		if err := res.Error(); err != nil {
			return err
		}
	}
	if len(results) == 0 {
		return nil
	}
	// EXEC carries the per-command replies
	replies, err := results[len(results)-1].ToArray()
	if err != nil {
		return err
	}
	for _, r := range replies {
		if err := r.Error(); err != nil {
			return err
		}
	}
	return nil
}

func encodeDocument(doc domain.Document) ([][2]string, error) {
	fields := [][2]string{
		{fieldID, doc.ID},
		{fieldIncidentType, doc.IncidentType.Tag()},
		{fieldSeverityLevel, doc.SeverityLevel.Tag()},
	}
	if doc.Location != nil {
		fields = append(fields, [2]string{fieldLocation, formatGeo(*doc.Location)})
	}
	if doc.Timestamp != "" {
		ms, err := timestampMillis(doc.Timestamp)
		if err != nil {
			return nil, err
		}
		fields = append(fields,
			[2]string{fieldTimestamp, doc.Timestamp},
			[2]string{fieldTimestampMs, strconv.FormatInt(ms, 10)},
		)
	}
	return fields, nil
}

func decodeDocument(key string, fields map[string]string) (domain.Document, error) {
	doc := domain.Document{
		ID:        fields[fieldID],
		Timestamp: fields[fieldTimestamp],
	}
	if doc.ID == "" {
		doc.ID = strings.TrimPrefix(key, KeyPrefix)
	}

	var err error
	if doc.IncidentType, err = domain.ParseIncidentType(fields[fieldIncidentType]); err != nil {
		return domain.Document{}, err
	}
	if doc.SeverityLevel, err = domain.ParseSeverityLevel(fields[fieldSeverityLevel]); err != nil {
		return domain.Document{}, err
	}
	if raw, ok := fields[fieldLocation]; ok && raw != "" {
		p, err := parseGeo(raw)
		if err != nil {
			return domain.Document{}, err
		}
		doc.Location = &p
	}
	return doc, nil
}

// formatGeo renders a point the way GEO fields expect it: "lon,lat".
func formatGeo(p domain.GeoPoint) string {
	return strconv.FormatFloat(p.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'f', -1, 64)
}

func parseGeo(s string) (domain.GeoPoint, error) {
	lonStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("malformed geo point %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("malformed geo point %q: %w", s, err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("malformed geo point %q: %w", s, err)
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

// timestampMillis reads the sortable text timestamp as UTC milliseconds, which
// keeps numeric order equal to textual order.
func timestampMillis(s string) (int64, error) {
	t, err := mapper.ParseTimestamp(s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
