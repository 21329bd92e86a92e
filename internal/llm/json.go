package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeObject parses a JSON object out of raw model output. Models often
// wrap the object in markdown fences or prose, so the decoder falls back to
// scanning for the first balanced top-level object.
func DecodeObject(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty model output")
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return obj, nil
	}

	candidate, ok := firstBalancedObject(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in model output")
	}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse extracted JSON object: %w", err)
	}
	return obj, nil
}

// firstBalancedObject returns the first {...} span with balanced braces,
// respecting string literals and escapes.
func firstBalancedObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// StringSlice coerces a decoded JSON value into a string slice, skipping
// non-string elements. Returns nil for non-array values.
func StringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// StringValue coerces a decoded JSON value into a string, or returns the
// default when the value is absent or not a string.
func StringValue(v interface{}, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

// IntValue coerces a decoded JSON number into an int, or returns the
// default. JSON numbers decode as float64.
func IntValue(v interface{}, def int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}

// BoolValue coerces a decoded JSON value into a bool, or returns the default.
func BoolValue(v interface{}, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// MapValue coerces a decoded JSON value into a nested object, or nil.
func MapValue(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return nil
}

// StringMap coerces a decoded JSON object into a map of strings, skipping
// non-string values. Returns nil for non-object values.
func StringMap(v interface{}) map[string]string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}
