package candidate

import (
	"math"
	"strconv"
	"strings"
)

// Total decode helpers for untrusted generated JSON. Every helper returns a
// usable value for any input shape; none of them can fail.

func str(m map[string]any, key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def
		}
		return s
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return def
}

func strSlice(m map[string]any, key string, max int) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		s, ok := entry.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

func numClamp(m map[string]any, key string, lo, hi, def float64) float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return def
		}
		n = parsed
	default:
		return def
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func intClamp(m map[string]any, key string, lo, hi, def int) int {
	return int(math.Round(numClamp(m, key, float64(lo), float64(hi), float64(def))))
}

func enumOr(m map[string]any, key string, allowed []string, def string) string {
	v := strings.ToLower(str(m, key, def))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return def
}

func boolOr(m map[string]any, key string, def bool) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	case float64:
		return t != 0
	}
	return def
}

func mapAt(m map[string]any, key string) map[string]any {
	v, ok := m[key].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return v
}

func mapSlice(m map[string]any, key string, max int) []map[string]any {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, obj)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
