package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// fieldSet is a record's fields keyed by trimmed, lower-case name.
type fieldSet map[string]any

// newFieldSet folds keys to lower case. When two keys differ only by case the
// lexically smallest original key wins so the result does not depend on map
// iteration order.
func newFieldSet(fields map[string]any) fieldSet {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := make(fieldSet, len(fields))
	for _, k := range keys {
		lk := strings.ToLower(strings.TrimSpace(k))
		if _, dup := f[lk]; dup {
			continue
		}
		f[lk] = fields[k]
	}
	return f
}

// text returns the first alias holding a non-empty value, rendered as text.
func (f fieldSet) text(aliases []string) (string, bool) {
	for _, a := range aliases {
		v, ok := f[a]
		if !ok {
			continue
		}
		if s := stringValue(v); s != "" && !isNullSentinel(s) {
			return s, true
		}
	}
	return "", false
}

// number returns the first alias holding a parseable number.
func (f fieldSet) number(aliases []string) (float64, bool) {
	for _, a := range aliases {
		v, ok := f[a]
		if !ok {
			continue
		}
		if n, ok := coerceFloat(v); ok {
			return n, true
		}
	}
	return 0, false
}

// has reports whether any alias is present as a key.
func (f fieldSet) has(aliases []string) bool {
	for _, a := range aliases {
		if _, ok := f[a]; ok {
			return true
		}
	}
	return false
}

// nullSentinels are placeholder strings upstream uses for missing values.
var nullSentinels = map[string]struct{}{
	"na": {}, "nan": {}, "n/a": {}, "null": {}, "none": {}, "-": {},
}

func isNullSentinel(s string) bool {
	_, ok := nullSentinels[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// coerceFloat converts a JSON value to a finite float. Strings may carry
// thousands separators ("1,250").
func coerceFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		s := strings.TrimSpace(t)
		if s == "" || isNullSentinel(s) {
			return 0, false
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
