package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Scalar holds a JSON scalar as text. The backend is loose about types (ids
// and counters arrive either as numbers or as numeric strings), so records
// keep the raw text and let callers interpret it.
type Scalar string

// UnmarshalJSON accepts strings, numbers, booleans and null. Null becomes "".
func (s *Scalar) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "null":
		*s = ""
	case strings.HasPrefix(raw, `"`):
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Scalar(v)
	default:
		*s = Scalar(raw)
	}
	return nil
}

// MarshalJSON emits numeric text as a JSON number and anything else as a string.
func (s Scalar) MarshalJSON() ([]byte, error) {
	v := string(s)
	if _, err := strconv.ParseFloat(v, 64); err == nil && json.Valid([]byte(v)) {
		return []byte(v), nil
	}
	return json.Marshal(v)
}

// String returns the raw text.
func (s Scalar) String() string {
	return string(s)
}

// Int returns the value as an integer, or 0 when it is empty or not numeric.
func (s Scalar) Int() int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// zoneLayouts carry an explicit offset; localLayouts are read as UTC.
var (
	zoneLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02",
	}
)

// ParseTimestamp parses a backend timestamp such as "2025-03-19T23:56:31.916597".
// Values without a zone are taken as UTC. It reports false for empty or
// unparseable input.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range zoneLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TimestampLayout is how timestamps are shown to admins.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders a backend timestamp in loc as TimestampLayout.
// Unparseable input is returned unchanged so nothing is silently lost.
func FormatTimestamp(raw string, loc *time.Location) string {
	t, ok := ParseTimestamp(raw)
	if !ok {
		return strings.TrimSpace(raw)
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimestampLayout)
}
