package runner

import (
	"fmt"
	"strconv"
)

// Settings holds the raw configuration handed to a runner factory.
type Settings map[string]any

// String returns the value of key as a string, or def when missing or empty.
func (s Settings) String(key, def string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return def
	}
	str := fmt.Sprint(v)
	if str == "" {
		return def
	}
	return str
}

// Bool returns the value of key as a bool, or def when missing.
func (s Settings) Bool(key string, def bool) (bool, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("%s: %w", key, err)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("%s: expected boolean, got %T", key, v)
	}
}

// Float returns the value of key as a float64, or def when missing.
// YAML and JSON decoders produce several numeric types, all accepted here.
func (s Settings) Float(key string, def float64) (float64, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("%s: expected number, got %T", key, v)
	}
}

// Clone returns a shallow copy of the settings.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
