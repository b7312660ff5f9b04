package domain

import (
	"encoding/json"
	"strings"

	"emergencyDashboard/pkg/e"
)

// IncidentType is a closed set; IncidentTypeNone is the explicit "unspecified" member.
type IncidentType uint8

const (
	IncidentTypeNone IncidentType = iota
	IncidentFire
	IncidentMedical
	IncidentPolice
)

var incidentTypes = [...]struct{ name, tag string }{
	IncidentTypeNone: {"NONE", ""},
	IncidentFire:     {"FIRE", "fire"},
	IncidentMedical:  {"MEDICAL", "medical"},
	IncidentPolice:   {"POLICE", "police"},
}

// IncidentTypes lists every member except NONE.
func IncidentTypes() []IncidentType {
	return []IncidentType{IncidentFire, IncidentMedical, IncidentPolice}
}

// ParseIncidentType decodes an inbound token or a stored name. Blank input is
// NONE; matching against the member names ignores case.
func ParseIncidentType(s string) (IncidentType, error) {
	if strings.TrimSpace(s) == "" {
		return IncidentTypeNone, nil
	}
	for t, v := range incidentTypes {
		if strings.EqualFold(v.name, s) {
			return IncidentType(t), nil
		}
	}
	return IncidentTypeNone, e.Invalid("invalid incident type: %q", s)
}

func (t IncidentType) valid() bool { return int(t) < len(incidentTypes) }

func (t IncidentType) Name() string {
	if !t.valid() {
		return incidentTypes[IncidentTypeNone].name
	}
	return incidentTypes[t].name
}

// Tag is the lowercase external form; NONE has an empty tag.
func (t IncidentType) Tag() string {
	if !t.valid() {
		return ""
	}
	return incidentTypes[t].tag
}

func (t IncidentType) String() string { return t.Name() }

func (t IncidentType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Tag())
}

func (t *IncidentType) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return e.Invalid("incident type must be a string")
	}
	if s == nil {
		*t = IncidentTypeNone
		return nil
	}
	v, err := ParseIncidentType(*s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// SeverityLevel is a closed set; SeverityNone is the explicit "unspecified" member.
type SeverityLevel uint8

const (
	SeverityNone SeverityLevel = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityUrgent
)

var severityLevels = [...]struct{ name, tag string }{
	SeverityNone:   {"NONE", ""},
	SeverityLow:    {"LOW", "low"},
	SeverityMedium: {"MEDIUM", "medium"},
	SeverityHigh:   {"HIGH", "high"},
	SeverityUrgent: {"URGENT", "urgent"},
}

func ParseSeverityLevel(s string) (SeverityLevel, error) {
	if strings.TrimSpace(s) == "" {
		return SeverityNone, nil
	}
	for l, v := range severityLevels {
		if strings.EqualFold(v.name, s) {
			return SeverityLevel(l), nil
		}
	}
	return SeverityNone, e.Invalid("invalid severity level: %q", s)
}

func (l SeverityLevel) valid() bool { return int(l) < len(severityLevels) }

func (l SeverityLevel) Name() string {
	if !l.valid() {
		return severityLevels[SeverityNone].name
	}
	return severityLevels[l].name
}

func (l SeverityLevel) Tag() string {
	if !l.valid() {
		return ""
	}
	return severityLevels[l].tag
}

func (l SeverityLevel) String() string { return l.Name() }

func (l SeverityLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Tag())
}

func (l *SeverityLevel) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return e.Invalid("severity level must be a string")
	}
	if s == nil {
		*l = SeverityNone
		return nil
	}
	v, err := ParseSeverityLevel(*s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}
