package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"crm-quote-print/utils"
)

// Number is a numeric field that tolerates missing or malformed input.
// Anything that is not a finite number decodes to 0 instead of failing.
type Number float64

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		*n = 0
		return nil
	}
	*n = Number(utils.ToNumber(raw))
	return nil
}

// Float64 returns the value as a float64
func (n Number) Float64() float64 {
	return float64(n)
}

// timestampLayouts are tried in order when decoding a Timestamp from a string
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// Timestamp is a point in time decoded leniently from JSON.
// Strings in the common CRM layouts and epoch milliseconds are accepted;
// anything else leaves the zero time.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}

	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil
	}

	switch v := raw.(type) {
	case json.Number:
		if ms, err := v.Int64(); err == nil && ms != 0 {
			t.Time = time.UnixMilli(ms)
		}
	case string:
		t.Time = parseTimestamp(v)
	}
	return nil
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
