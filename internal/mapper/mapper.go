// Package mapper converts incidents between the API record, the primary store
// row and the search index document. All functions are pure.
package mapper

import (
	"time"

	"github.com/google/uuid"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/pkg/e"
	"emergencyDashboard/pkg/validator"
)

// TimestampLayout is the sortable text form of timestamps in the index.
const TimestampLayout = "2006-01-02T15:04:05.000"

// ParseID converts a record identifier into the store identifier. An empty
// string is the "not yet assigned" identifier.
func ParseID(id string) (uuid.UUID, error) {
	if id == "" {
		return uuid.Nil, nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, e.InvalidAs(e.ErrInvalidID, "malformed incident id: %q", id)
	}
	return parsed, nil
}

func FormatID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func RecordToRow(rec domain.Record) (domain.Row, error) {
	if err := ValidateRecord(rec); err != nil {
		return domain.Row{}, err
	}
	id, err := ParseID(rec.ID)
	if err != nil {
		return domain.Row{}, err
	}

	row := domain.Row{
		ID:            id,
		IncidentType:  rec.IncidentType,
		Latitude:      copyFloat(rec.Latitude),
		Longitude:     copyFloat(rec.Longitude),
		SeverityLevel: rec.SeverityLevel,
	}
	if rec.Timestamp != nil {
		ts := rec.Timestamp.Time
		row.Timestamp = &ts
	}
	return row, nil
}

func RowToRecord(row domain.Row) domain.Record {
	rec := domain.Record{
		ID:            FormatID(row.ID),
		IncidentType:  row.IncidentType,
		Latitude:      copyFloat(row.Latitude),
		Longitude:     copyFloat(row.Longitude),
		SeverityLevel: row.SeverityLevel,
	}
	if row.Timestamp != nil {
		ts := domain.NewDateTime(*row.Timestamp)
		rec.Timestamp = &ts
	}
	return rec
}

// RowToDocument collapses latitude and longitude into one geo-point. A row
// without both coordinates has no location.
func RowToDocument(row domain.Row) domain.Document {
	doc := domain.Document{
		ID:            FormatID(row.ID),
		IncidentType:  row.IncidentType,
		SeverityLevel: row.SeverityLevel,
	}
	if row.Latitude != nil && row.Longitude != nil {
		doc.Location = &domain.GeoPoint{Lat: *row.Latitude, Lon: *row.Longitude}
	}
	if row.Timestamp != nil {
		doc.Timestamp = FormatTimestamp(*row.Timestamp)
	}
	return doc
}

func DocumentToRow(doc domain.Document) (domain.Row, error) {
	id, err := ParseID(doc.ID)
	if err != nil {
		return domain.Row{}, err
	}

	row := domain.Row{
		ID:            id,
		IncidentType:  doc.IncidentType,
		SeverityLevel: doc.SeverityLevel,
	}
	if doc.Location != nil {
		lat, lon := doc.Location.Lat, doc.Location.Lon
		row.Latitude = &lat
		row.Longitude = &lon
	}
	if doc.Timestamp != "" {
		ts, err := ParseTimestamp(doc.Timestamp)
		if err != nil {
			return domain.Row{}, err
		}
		row.Timestamp = &ts
	}
	return row, nil
}

func DocumentToRecord(doc domain.Document) (domain.Record, error) {
	row, err := DocumentToRow(doc)
	if err != nil {
		return domain.Record{}, err
	}
	return RowToRecord(row), nil
}

func RowsToRecords(rows []domain.Row) []domain.Record {
	out := make([]domain.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, RowToRecord(r))
	}
	return out
}

func DocumentsToRecords(docs []domain.Document) ([]domain.Record, error) {
	out := make([]domain.Record, 0, len(docs))
	for _, d := range docs {
		rec, err := DocumentToRecord(d)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// FormatTimestamp renders the wall clock of t, ignoring its zone.
func FormatTimestamp(t time.Time) string {
	return domain.NewDateTime(t).Format(TimestampLayout)
}

func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, e.Invalid("malformed index timestamp: %q", s)
	}
	return t, nil
}

// ValidateRecord checks coordinate ranges and that coordinates come in pairs:
// the index keeps a single geo-point and cannot hold half of one.
func ValidateRecord(rec domain.Record) error {
	if err := validator.ValidateStruct(rec); err != nil {
		return err
	}
	if (rec.Latitude == nil) != (rec.Longitude == nil) {
		return e.InvalidAs(e.ErrInvalidCoordinates, "latitude and longitude must be provided together")
	}
	return nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
