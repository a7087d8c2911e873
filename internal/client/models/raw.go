package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawRecord is an undecoded server object. Numbers are kept as json.Number so
// numeric identifiers survive without float rounding.
type RawRecord map[string]any

// UnmarshalJSON decodes an object with UseNumber enabled.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*r = m
	return nil
}

// String returns the first key among keys holding a non-empty string or a
// number, rendered as a string.
func (r RawRecord) String(keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := asString(r[k]); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// Int returns the first key among keys holding an integral value. Numeric
// strings are accepted; fractional values are truncated.
func (r RawRecord) Int(keys ...string) (int, bool) {
	for _, k := range keys {
		if n, ok := asInt(r[k]); ok {
			return n, true
		}
	}
	return 0, false
}

// Bool returns the first key among keys holding a boolean. The strings
// "true" and "false" are accepted.
func (r RawRecord) Bool(keys ...string) (bool, bool) {
	for _, k := range keys {
		switch x := r[k].(type) {
		case bool:
			return x, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

// Time returns the first key among keys holding a parseable instant.
func (r RawRecord) Time(keys ...string) (time.Time, bool) {
	for _, k := range keys {
		s, ok := asString(r[k])
		if !ok || s == "" {
			continue
		}
		if t, ok := ParseInstant(s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Record returns the nested object stored under key.
func (r RawRecord) Record(key string) (RawRecord, bool) {
	m, ok := r[key].(map[string]any)
	if !ok {
		return nil, false
	}
	return RawRecord(m), true
}

// Records returns the nested array of objects stored under key.
func (r RawRecord) Records(key string) []RawRecord {
	items, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]RawRecord, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, RawRecord(m))
		}
	}
	return out
}

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseInstant parses the timestamp shapes the API is known to emit.
func ParseInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	}
	return "", false
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), true
		}
		if f, err := x.Float64(); err == nil && !math.IsNaN(f) {
			return int(f), true
		}
	case float64:
		return int(x), true
	case int:
		return x, true
	case int64:
		return int(x), true
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}
