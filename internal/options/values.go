package options

import (
	"fmt"
	"sort"
)

// Values holds resolved option names and their decoded TOML values.
type Values map[string]any

// Keys returns the option names in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value for key rendered as a string.
func (v Values) String(key string) (string, bool) {
	raw, ok := v[key]
	if !ok {
		return "", false
	}
	switch value := raw.(type) {
	case string:
		return value, true
	case []any:
		return "", false
	default:
		return fmt.Sprint(value), true
	}
}

// Bool returns the boolean value for key.
func (v Values) Bool(key string) (bool, bool) {
	value, ok := v[key].(bool)
	return value, ok
}

// Strings returns key as a list. A scalar string becomes a one-element list.
func (v Values) Strings(key string) ([]string, bool) {
	switch value := v[key].(type) {
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			out = append(out, fmt.Sprint(item))
		}
		return out, true
	case []string:
		return append([]string(nil), value...), true
	case string:
		return []string{value}, true
	default:
		return nil, false
	}
}
