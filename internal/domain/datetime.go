package domain

import (
	"encoding/json"
	"strings"
	"time"

	"emergencyDashboard/pkg/e"
)

// DateTime is a calendar date-time without a zone, with millisecond precision.
// The wall clock is kept in UTC so that it is never shifted by a zone conversion.
type DateTime struct {
	time.Time
}

const (
	dateTimeLayout      = "2006-01-02T15:04:05"
	dateTimeFracLayout  = "2006-01-02T15:04:05.999999999"
	dateTimeShortLayout = "2006-01-02T15:04"
)

func NewDateTime(t time.Time) DateTime {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return DateTime{Time: wall.Truncate(time.Millisecond)}
}

// ParseDateTime accepts an ISO local date-time with optional seconds and fraction.
// A zone designator is rejected: the value is a wall clock, not an instant.
func ParseDateTime(s string) (DateTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateTimeLayout, dateTimeShortLayout} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return NewDateTime(t), nil
		}
	}
	return DateTime{}, e.Invalid("invalid timestamp: %q (expected yyyy-MM-ddTHH:mm:ss)", s)
}

func (d DateTime) String() string {
	if d.Nanosecond() == 0 {
		return d.Format(dateTimeLayout)
	}
	return d.Format(dateTimeFracLayout)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return e.Invalid("timestamp must be a string")
	}
	v, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
