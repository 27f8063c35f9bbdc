package document

import (
	"regexp"
)

var dynamicKey = regexp.MustCompile(`^(.+_\d+|_\d+)$`)

// reservedKeys match the dynamic pattern shape but are document metadata.
var reservedKeys = map[string]bool{
	"_id":         true,
	"__v":         true,
	"_v":          true,
	"_master":     true,
	"_masterType": true,
}

// IsDynamicKey reports whether a field name is a positional form field such
// as "domicilio_0" or "_3".
func IsDynamicKey(key string) bool {
	return !reservedKeys[key] && dynamicKey.MatchString(key)
}

// CollectDynamic folds every dynamic field with a non-empty value into a
// JSON object. It returns nil when nothing qualifies so the column stays
// NULL instead of holding an empty object.
func CollectDynamic(d Doc) any {
	out := make(map[string]any)
	for k, v := range d {
		if IsDynamicKey(k) && !emptyDynamic(v) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return MarshalJSON(out)
}

// CollectKeys is CollectDynamic restricted to a fixed set of keys.
func CollectKeys(d Doc, keys ...string) any {
	out := make(map[string]any)
	for _, k := range keys {
		if v, ok := d[k]; ok && !emptyDynamic(v) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return MarshalJSON(out)
}

func emptyDynamic(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	if s, ok := AsSlice(v); ok {
		return len(s) == 0
	}
	return false
}
