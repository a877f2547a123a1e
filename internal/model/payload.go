package model

import (
	"encoding/json"
	"math"
)

// StringField returns the value of field if it is present and a JSON string.
func StringField(raw map[string]any, field string) (string, bool) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// NumberField returns the value of field if it is a finite JSON number.
// Both json.Number (decoder with UseNumber) and float64 are accepted.
func NumberField(raw map[string]any, field string) (float64, bool) {
	v, ok := raw[field]
	if !ok || v == nil {
		return 0, false
	}

	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// BoolField returns the value of field if it is a JSON boolean.
func BoolField(raw map[string]any, field string) (bool, bool) {
	v, ok := raw[field]
	if !ok || v == nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// HasField reports whether field is present with a non-null value.
func HasField(raw map[string]any, field string) bool {
	v, ok := raw[field]
	return ok && v != nil
}
