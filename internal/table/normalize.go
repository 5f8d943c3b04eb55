// Package table reads and writes ledger and review rows through a TableBackend.
package table

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// Normalize reduces a raw cell value to a scalar: string, float64, bool or nil.
// Stores return text either as a scalar, a list of segments, or an object
// carrying a "text" key; all of these collapse to the same string.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case bool:
		return val
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []string:
		return joinSegments(len(val), func(i int) any { return val[i] })
	case []any:
		return joinSegments(len(val), func(i int) any { return val[i] })
	case map[string]any:
		for _, key := range []string{"text", "name", "value"} {
			if inner, ok := val[key]; ok {
				return Normalize(inner)
			}
		}
		return nil
	case map[string]string:
		for _, key := range []string{"text", "name", "value"} {
			if inner, ok := val[key]; ok {
				return inner
			}
		}
		return nil
	default:
		return nil
	}
}

func joinSegments(n int, at func(int) any) any {
	switch n {
	case 0:
		return nil
	case 1:
		return Normalize(at(0))
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(Text(Normalize(at(i))))
	}
	return b.String()
}

// NormalizeFields normalizes every value of f in place and returns it.
func NormalizeFields(f model.Fields) model.Fields {
	for k, v := range f {
		f[k] = Normalize(v)
	}
	return f
}

// Text renders a normalized value as a trimmed string.
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// String returns the named field as trimmed text.
func String(f model.Fields, name string) string {
	return Text(Normalize(f[name]))
}

// Number returns the named field as a float when it holds a number or numeric text.
func Number(f model.Fields, name string) (float64, bool) {
	switch val := Normalize(f[name]).(type) {
	case float64:
		return val, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
