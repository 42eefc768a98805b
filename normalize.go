package fhirdict

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/andreyvit/fhirdict/odoc"
)

// normalizeDoc builds a fresh, normalized deep copy of doc, so the container
// owns its document outright. Plain Go numbers become json.Number tokens,
// map[string]any values become ordered maps with sorted keys, number tokens
// are validated. A nil doc normalizes to an empty one.
func normalizeDoc(doc *odoc.Map) (*odoc.Map, error) {
	norm := odoc.New()
	if doc == nil {
		return norm, nil
	}
	for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
		v, err := normalizeValue(pair.Value)
		if err != nil {
			return nil, pathify(err, pair.Key)
		}
		norm.Set(pair.Key, v)
	}
	return norm, nil
}

func normalizeValue(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return v, nil
	case json.Number:
		if !odoc.ValidNumber(string(v)) {
			return nil, invalidDocErrf("", nil, "bad number token %q", string(v))
		}
		return v, nil
	case int:
		return json.Number(strconv.FormatInt(int64(v), 10)), nil
	case int8:
		return json.Number(strconv.FormatInt(int64(v), 10)), nil
	case int16:
		return json.Number(strconv.FormatInt(int64(v), 10)), nil
	case int32:
		return json.Number(strconv.FormatInt(int64(v), 10)), nil
	case int64:
		return json.Number(strconv.FormatInt(v, 10)), nil
	case uint:
		return json.Number(strconv.FormatUint(uint64(v), 10)), nil
	case uint8:
		return json.Number(strconv.FormatUint(uint64(v), 10)), nil
	case uint16:
		return json.Number(strconv.FormatUint(uint64(v), 10)), nil
	case uint32:
		return json.Number(strconv.FormatUint(uint64(v), 10)), nil
	case uint64:
		return json.Number(strconv.FormatUint(v, 10)), nil
	case float32:
		return normalizeFloat(float64(v), 32)
	case float64:
		return normalizeFloat(v, 64)
	case *odoc.Map:
		return normalizeDoc(v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := odoc.New()
		for _, k := range keys {
			nv, err := normalizeValue(v[k])
			if err != nil {
				return nil, pathify(err, k)
			}
			m.Set(k, nv)
		}
		return m, nil
	case []any:
		arr := make([]any, len(v))
		for i, el := range v {
			nv, err := normalizeValue(el)
			if err != nil {
				return nil, pathify(err, "["+strconv.Itoa(i)+"]")
			}
			arr[i] = nv
		}
		return arr, nil
	default:
		return nil, invalidDocErrf("", nil, "unsupported value type %T", v)
	}
}

func normalizeFloat(f float64, bits int) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalidDocErrf("", nil, "non-finite number %v", f)
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, bits)), nil
}
