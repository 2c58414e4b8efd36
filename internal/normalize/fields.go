package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Row is one flat upstream record as decoded from JSON.
type Row map[string]any

// lookup returns the first present, non-nil value among keys.
func (r Row) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r Row) str(keys ...string) string {
	v, ok := r.lookup(keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func (r Row) int(keys ...string) int {
	v, ok := r.lookup(keys...)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func (r Row) intPtr(keys ...string) *int {
	if _, ok := r.lookup(keys...); !ok {
		return nil
	}
	n := r.int(keys...)
	if n < 0 {
		return nil
	}
	return &n
}

func (r Row) bool(keys ...string) bool {
	v, ok := r.lookup(keys...)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "y":
			return true
		}
	}
	return false
}

// price returns nil for anything that is not a positive number. Upstreams
// report 0 when a terminal does not trade in that direction.
func (r Row) price(keys ...string) *float64 {
	v, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return nil
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	if f <= 0 {
		return nil
	}
	return &f
}

func (r Row) list(keys ...string) []string {
	v, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	var raw []string
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = t
	case string:
		raw = strings.Split(t, ",")
	}
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
