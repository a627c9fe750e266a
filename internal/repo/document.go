package repo

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Document is one stored record and the key it lives under.
type Document struct {
	Key    string
	Fields Fields
}

// Filter is a set of equality constraints, all of which must hold.
type Filter map[string]interface{}

// Keys returns the filter's field names in a stable order.
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Matches reports whether fields satisfy every constraint of f.
func (f Filter) Matches(fields Fields) bool {
	for k, want := range f {
		got, ok := fields[k]
		if !ok || !reflect.DeepEqual(normalize(got), normalize(want)) {
			return false
		}
	}
	return true
}

// Fields is the body of a document. Values are kept in a small canonical set
// (string, int64, float64, bool, time.Time, []interface{}, map[string]interface{})
// so that every backend decodes to the same shapes.
type Fields map[string]interface{}

// String returns the value at k as a string, or "" when absent.
func (f Fields) String(k string) string {
	switch v := f[k].(type) {
	case string:
		return v
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Number coerces the value at k to a float64. Anything that is not numeric
// (or a numeric string) is 0.
func (f Fields) Number(k string) float64 {
	switch v := f[k].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Int is Number truncated to an int64.
func (f Fields) Int(k string) int64 {
	if v, ok := f[k].(int64); ok {
		return v
	}
	return int64(f.Number(k))
}

// Time returns the value at k as a UTC time. RFC 3339 strings and epoch
// milliseconds are accepted as well.
func (f Fields) Time(k string) time.Time {
	switch v := f[k].(type) {
	case time.Time:
		return v.UTC()
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	case int64:
		return time.UnixMilli(v).UTC()
	default:
		return time.Time{}
	}
}

// List returns the nested documents stored at k.
func (f Fields) List(k string) []Fields {
	items, ok := f[k].([]interface{})
	if !ok {
		return nil
	}
	out := make([]Fields, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, Fields(m))
		}
	}
	return out
}

// Clone returns a deep copy with every value normalized.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil, string, bool, int64, float64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.UTC()
	case Fields:
		return map[string]interface{}(t.Clone())
	case map[string]interface{}:
		return map[string]interface{}(Fields(t).Clone())
	case []Fields:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = map[string]interface{}(t[i].Clone())
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = normalize(t[i])
		}
		return out
	case []string:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out
	default:
		return t
	}
}
