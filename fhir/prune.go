package fhir

import (
	"github.com/andreyvit/fhirdict/odoc"
)

// PruneEmpty removes null values and recursively-empty maps and lists from a
// document, in place, and returns it. Empty strings, zeros and false survive:
// FHIR treats them as data, only null and empty containers as absence.
func PruneEmpty(m *odoc.Map) *odoc.Map {
	if m == nil {
		return nil
	}
	var drop []string
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		v := pruneValue(pair.Value)
		if isEmptyValue(v) {
			drop = append(drop, pair.Key)
		} else {
			m.Set(pair.Key, v)
		}
	}
	for _, key := range drop {
		m.Delete(key)
	}
	return m
}

func pruneValue(v any) any {
	switch v := v.(type) {
	case *odoc.Map:
		return PruneEmpty(v)
	case []any:
		out := v[:0]
		for _, el := range v {
			el = pruneValue(el)
			if !isEmptyValue(el) {
				out = append(out, el)
			}
		}
		return out
	default:
		return v
	}
}

func isEmptyValue(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case *odoc.Map:
		return v.Len() == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}
