// Package odoc implements ordered JSON-like documents: string-keyed mappings
// that remember insertion order and preserve the literal text of JSON number
// tokens (so "1.50", "1e2" and integers beyond 64 bits survive a round trip).
//
// Value domain: nil, bool, string, json.Number, []any and *Map. Anything else
// is rejected by the JSON layer and by consumers of these documents.
package odoc

import (
	"encoding/json"
	"reflect"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is an insertion-ordered mapping from string keys to document values.
type Map = orderedmap.OrderedMap[string, any]

// New returns an empty document.
func New() *Map {
	return orderedmap.New[string, any]()
}

// Pairs builds a document from alternating keys and values, preserving the
// argument order. It panics when given an odd number of arguments or a
// non-string key; it is meant for literals in code, not for runtime data.
func Pairs(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("odoc.Pairs: odd number of arguments")
	}
	m := New()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic("odoc.Pairs: key is not a string")
		}
		m.Set(key, kv[i+1])
	}
	return m
}

// Keys returns the keys of m in insertion order. The result is never nil.
func Keys(m *Map) []string {
	if m == nil {
		return []string{}
	}
	keys := make([]string, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Copy returns a deep copy of m. Scalars are shared (they are immutable),
// nested maps and slices are copied. A nil map copies to an empty one.
func Copy(m *Map) *Map {
	c := New()
	if m == nil {
		return c
	}
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		c.Set(pair.Key, CopyValue(pair.Value))
	}
	return c
}

// CopyValue deep-copies a document value. Values outside the document value
// domain are returned as is.
func CopyValue(v any) any {
	switch v := v.(type) {
	case *Map:
		return Copy(v)
	case []any:
		c := make([]any, len(v))
		for i, el := range v {
			c[i] = CopyValue(el)
		}
		return c
	default:
		return v
	}
}

// Equal reports whether two documents hold equal content, ignoring key order.
// Number tokens compare by their literal text, so "1.5" and "1.50" differ.
// A nil map equals an empty one.
func Equal(a, b *Map) bool {
	if a == b {
		return true
	}
	alen, blen := 0, 0
	if a != nil {
		alen = a.Len()
	}
	if b != nil {
		blen = b.Len()
	}
	if alen != blen {
		return false
	}
	if alen == 0 {
		return true
	}
	for pair := a.Oldest(); pair != nil; pair = pair.Next() {
		bv, ok := b.Get(pair.Key)
		if !ok || !EqualValue(pair.Value, bv) {
			return false
		}
	}
	return true
}

// EqualValue compares two document values the way Equal does.
func EqualValue(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case json.Number:
		bv, ok := b.(json.Number)
		return ok && av == bv
	case *Map:
		bv, ok := b.(*Map)
		return ok && Equal(av, bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !EqualValue(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// ValidNumber reports whether s matches the JSON number grammar. Unlike
// strconv.ParseFloat, it rejects hex floats, infinities, NaN, leading plus
// signs and leading zeros.
func ValidNumber(s string) bool {
	i, n := 0, len(s)
	if n == 0 {
		return false
	}
	if s[i] == '-' {
		i++
		if i == n {
			return false
		}
	}
	switch {
	case s[i] == '0':
		i++
	case s[i] >= '1' && s[i] <= '9':
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	default:
		return false
	}
	if i < n && s[i] == '.' {
		i++
		if i == n || s[i] < '0' || s[i] > '9' {
			return false
		}
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < n && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if i == n || s[i] < '0' || s[i] > '9' {
			return false
		}
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	return i == n
}
