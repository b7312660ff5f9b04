package domain

import (
	"time"

	"github.com/google/uuid"
)

// Record is the representation exchanged with callers.
type Record struct {
	ID            string        `json:"id,omitempty"`
	IncidentType  IncidentType  `json:"incidentType"`
	Latitude      *float64      `json:"latitude,omitempty" validate:"omitempty,lat"`   // -90..90
	Longitude     *float64      `json:"longitude,omitempty" validate:"omitempty,lng"` // -180..180
	Timestamp     *DateTime     `json:"timestamp,omitempty"`
	SeverityLevel SeverityLevel `json:"severityLevel"`
}

// Row is the primary store representation.
type Row struct {
	ID            uuid.UUID
	IncidentType  IncidentType
	Latitude      *float64
	Longitude     *float64
	Timestamp     *time.Time
	SeverityLevel SeverityLevel
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Document is the search index representation. Timestamp is kept in the
// index's sortable text layout.
type Document struct {
	ID            string
	IncidentType  IncidentType
	Location      *GeoPoint
	Timestamp     string
	SeverityLevel SeverityLevel
}
