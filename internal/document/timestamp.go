package document

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// layouts accepted for string timestamps, tried in order. Strings without a
// zone are read as UTC.
var layouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp normalizes native times, extended-JSON {"$date": ...} wrappers
// (string, epoch milliseconds or {"$numberLong"}) and ISO-8601 strings with
// or without fractional seconds or an explicit offset. The result is UTC.
// Absent, empty or unparseable input reports false.
func Timestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case string:
		return parseTimestamp(t)
	case bson.DateTime:
		return t.Time().UTC(), true
	}
	if m, ok := AsDoc(v); ok {
		if inner, ok := m["$date"]; ok {
			return extendedDate(inner)
		}
	}
	return time.Time{}, false
}

// extendedDate reads the payload of a {"$date": ...} wrapper. Only here are
// bare numbers taken as epoch milliseconds.
func extendedDate(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		return parseTimestamp(s)
	}
	if n, ok := Int(v).(int64); ok {
		return time.UnixMilli(n).UTC(), true
	}
	return Timestamp(v)
}

// TimestampValue is Timestamp as a nullable column value.
func TimestampValue(v any) any {
	if ts, ok := Timestamp(v); ok {
		return ts
	}
	return nil
}

// PreferTimestamp returns the first value that normalizes, so a native date
// field can take precedence over its legacy string twin.
func PreferTimestamp(values ...any) any {
	for _, v := range values {
		if ts, ok := Timestamp(v); ok {
			return ts
		}
	}
	return nil
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
