package document

import (
	"errors"
)

// ErrMissingID is returned when a document carries no usable _id.
var ErrMissingID = errors.New("document has no _id")

// PrimaryKey returns the canonical string form of the document _id. Both a
// bare value and the {"$oid": X} envelope normalize to X.
func PrimaryKey(d Doc) (string, error) {
	id, ok := ID(d.Get("_id"))
	if !ok {
		return "", ErrMissingID
	}
	return id, nil
}

// ID normalizes an identifier value: ObjectID, {"$oid"} envelopes, strings
// and numbers. Empty results report false.
func ID(v any) (string, bool) {
	s, ok := Str(v).(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// IDValue is ID as a nullable column value.
func IDValue(v any) any {
	if s, ok := ID(v); ok {
		return s
	}
	return nil
}

// RefID reads the identifier of an embedded {id, ...} reference, accepting
// id, _id and the {"$oid"} envelope in either.
func RefID(v any) any {
	if m, ok := AsDoc(v); ok {
		return IDValue(FirstPresent(m["id"], m["_id"]))
	}
	return nil
}
