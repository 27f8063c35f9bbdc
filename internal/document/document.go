// Package document provides typed, nil-safe access to weakly-typed MongoDB
// documents. Every accessor degrades to nil rather than failing: source data
// is known to be inconsistent and the migration normalizes it.
package document

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Doc is a decoded source document. Nested objects are Doc values and
// arrays are []any after FromBSON.
type Doc map[string]any

// FromBSON converts a value decoded by the Mongo driver into plain Go
// containers. bson.D and bson.M become Doc, bson.A becomes []any and
// bson.DateTime becomes a UTC time.Time. Other scalars pass through.
func FromBSON(v any) any {
	switch t := v.(type) {
	case bson.D:
		d := make(Doc, len(t))
		for _, e := range t {
			d[e.Key] = FromBSON(e.Value)
		}
		return d
	case bson.M:
		d := make(Doc, len(t))
		for k, val := range t {
			d[k] = FromBSON(val)
		}
		return d
	case map[string]any:
		d := make(Doc, len(t))
		for k, val := range t {
			d[k] = FromBSON(val)
		}
		return d
	case Doc:
		return t
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = FromBSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = FromBSON(val)
		}
		return out
	case bson.DateTime:
		return t.Time().UTC()
	case bson.Null, bson.Undefined:
		return nil
	default:
		return v
	}
}

// AsDoc returns v as a Doc when it is any kind of string-keyed object.
func AsDoc(v any) (Doc, bool) {
	switch t := v.(type) {
	case Doc:
		return t, true
	case map[string]any:
		return Doc(t), true
	case bson.M:
		return Doc(t), true
	case bson.D:
		d, _ := FromBSON(t).(Doc)
		return d, true
	}
	return nil, false
}

// AsSlice returns v as a slice when it is an array value.
func AsSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case bson.A:
		return []any(t), true
	case []Doc:
		out := make([]any, len(t))
		for i, d := range t {
			out[i] = d
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, d := range t {
			out[i] = Doc(d)
		}
		return out, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// Get walks a path of keys through nested objects. A missing key or a
// non-object intermediate yields nil.
func (d Doc) Get(path ...string) any {
	var cur any = d
	for _, key := range path {
		m, ok := AsDoc(cur)
		if !ok || m == nil {
			return nil
		}
		cur = m[key]
	}
	return cur
}

// Has reports whether key is present, even with a nil value.
func (d Doc) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Doc returns the nested object at path, or nil.
func (d Doc) Doc(path ...string) Doc {
	m, _ := AsDoc(d.Get(path...))
	return m
}

// Slice returns the array at path, or nil.
func (d Doc) Slice(path ...string) []any {
	s, _ := AsSlice(d.Get(path...))
	return s
}

// Docs returns the object elements of the array at path, skipping
// anything that is not an object. Ordinals of the original array are
// lost; use Slice when the position matters.
func (d Doc) Docs(path ...string) []Doc {
	var out []Doc
	for _, v := range d.Slice(path...) {
		if m, ok := AsDoc(v); ok {
			out = append(out, m)
		}
	}
	return out
}

// Str returns the value at path as a string column value.
func (d Doc) Str(path ...string) any { return Str(d.Get(path...)) }

// Int returns the value at path as a bigint column value.
func (d Doc) Int(path ...string) any { return Int(d.Get(path...)) }

// Float returns the value at path as a double column value.
func (d Doc) Float(path ...string) any { return Float(d.Get(path...)) }

// Bool returns the value at path as a boolean column value.
func (d Doc) Bool(path ...string) any { return Bool(d.Get(path...)) }

// Time returns the value at path as a timestamp column value.
func (d Doc) Time(path ...string) any { return TimestampValue(d.Get(path...)) }

// JSON returns the object or array at path as a JSON text column value.
func (d Doc) JSON(path ...string) any { return JSON(d.Get(path...)) }

// Str renders scalars as text. Objects and arrays yield nil, except the
// extended-JSON {"$oid": ...} envelope which is unwrapped.
func Str(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case bson.ObjectID:
		return t.Hex()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bson.Decimal128:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	}
	if m, ok := AsDoc(v); ok {
		if oid, ok := m["$oid"]; ok {
			return Str(oid)
		}
		return nil
	}
	return nil
}

// Int converts numeric values and numeric strings to int64.
func Int(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return int64(t)
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int64(f)
		}
		return nil
	}
	if m, ok := AsDoc(v); ok {
		for _, k := range []string{"$numberInt", "$numberLong"} {
			if n, ok := m[k]; ok {
				return Int(n)
			}
		}
	}
	return nil
}

// Float converts numeric values and numeric strings to float64.
func Float(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float64:
		return t
	case bson.Decimal128:
		if f, err := strconv.ParseFloat(t.String(), 64); err == nil {
			return f
		}
		return nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
		return nil
	}
	if m, ok := AsDoc(v); ok {
		for _, k := range []string{"$numberDouble", "$numberDecimal", "$numberInt", "$numberLong"} {
			if n, ok := m[k]; ok {
				return Float(n)
			}
		}
	}
	return nil
}

// Bool accepts real booleans and the string forms "true"/"false".
func Bool(v any) any {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return nil
}

// BoolOr is Bool with a default for absent or non-boolean values.
func BoolOr(v any, def bool) bool {
	if b, ok := Bool(v).(bool); ok {
		return b
	}
	return def
}

// IntOr is Int with a default for absent or non-numeric values.
func IntOr(v any, def int64) int64 {
	if n, ok := Int(v).(int64); ok {
		return n
	}
	return def
}

// JSON serializes objects and arrays for a json/jsonb column. Scalars and
// nil yield nil.
func JSON(v any) any {
	if v == nil {
		return nil
	}
	_, isDoc := AsDoc(v)
	_, isSlice := AsSlice(v)
	if !isDoc && !isSlice {
		return nil
	}
	return MarshalJSON(v)
}

// MarshalJSON serializes any value as JSON text. Values the encoder cannot
// handle fall back to their fmt representation.
func MarshalJSON(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprint(v))
	}
	return string(b)
}

// Truthy mirrors the loose truthiness the source data relies on: nil,
// empty strings, zero numbers, false and empty containers are all false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}
	if m, ok := AsDoc(v); ok {
		return len(m) > 0
	}
	if s, ok := AsSlice(v); ok {
		return len(s) > 0
	}
	return true
}

// First returns the first truthy value, or nil.
func First(values ...any) any {
	for _, v := range values {
		if Truthy(v) {
			return v
		}
	}
	return nil
}

// FirstPresent returns the first non-nil value, or nil. Unlike First it
// keeps false, 0 and "".
func FirstPresent(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
