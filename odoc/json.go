package odoc

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
)

// FromJSON parses a JSON object into a document, keeping the original key
// order and the literal text of number tokens. The root value must be an
// object; trailing non-whitespace input is an error.
func FromJSON(data []byte) (*Map, error) {
	value, dt, off, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("odoc: bad JSON: %w", err)
	}
	if dt != jsonparser.Object {
		return nil, fmt.Errorf("odoc: document root is %s, expected an object", dt)
	}
	for _, c := range data[off:] {
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			return nil, fmt.Errorf("odoc: trailing data after JSON document")
		}
	}
	return parseObject(value)
}

func parseObject(data []byte) (*Map, error) {
	m := New()
	err := jsonparser.ObjectEach(data, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
		v, err := parseValue(value, dt)
		if err != nil {
			return err
		}
		m.Set(string(key), v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func parseArray(data []byte) ([]any, error) {
	arr := []any{}
	var inner error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dt jsonparser.ValueType, _ int, err error) {
		if inner != nil {
			return
		}
		if err != nil {
			inner = err
			return
		}
		v, err := parseValue(value, dt)
		if err != nil {
			inner = err
			return
		}
		arr = append(arr, v)
	})
	if err != nil {
		return nil, err
	}
	if inner != nil {
		return nil, inner
	}
	return arr, nil
}

func parseValue(value []byte, dt jsonparser.ValueType) (any, error) {
	switch dt {
	case jsonparser.Null:
		return nil, nil
	case jsonparser.Boolean:
		return len(value) > 0 && value[0] == 't', nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return nil, err
		}
		return s, nil
	case jsonparser.Number:
		tok := string(value)
		if !ValidNumber(tok) {
			return nil, fmt.Errorf("odoc: bad number token %q", tok)
		}
		return json.Number(tok), nil
	case jsonparser.Object:
		return parseObject(value)
	case jsonparser.Array:
		return parseArray(value)
	default:
		return nil, fmt.Errorf("odoc: unexpected JSON value type %s", dt)
	}
}

// ToJSON renders the document back to JSON, keeping key order and number
// tokens byte for byte. Strings use minimal escaping and raw UTF-8.
func ToJSON(m *Map) ([]byte, error) {
	return AppendJSON(nil, m)
}

// AppendJSON appends the JSON rendering of a document value to dst.
func AppendJSON(dst []byte, v any) ([]byte, error) {
	switch v := v.(type) {
	case nil:
		return append(dst, "null"...), nil
	case bool:
		if v {
			return append(dst, "true"...), nil
		}
		return append(dst, "false"...), nil
	case string:
		return appendQuoted(dst, v), nil
	case json.Number:
		if !ValidNumber(string(v)) {
			return nil, fmt.Errorf("odoc: bad number token %q", string(v))
		}
		return append(dst, v...), nil
	case *Map:
		var err error
		dst = append(dst, '{')
		first := true
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				dst = append(dst, ',')
			}
			first = false
			dst = appendQuoted(dst, pair.Key)
			dst = append(dst, ':')
			dst, err = AppendJSON(dst, pair.Value)
			if err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil
	case []any:
		var err error
		dst = append(dst, '[')
		for i, el := range v {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst, err = AppendJSON(dst, el)
			if err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	default:
		return nil, fmt.Errorf("odoc: cannot render %T as JSON", v)
	}
}

const hexdigits = "0123456789abcdef"

func appendQuoted(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '"' && c != '\\' && c >= 0x20 {
			continue
		}
		dst = append(dst, s[start:i]...)
		switch c {
		case '"':
			dst = append(dst, '\\', '"')
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		default:
			dst = append(dst, '\\', 'u', '0', '0', hexdigits[c>>4], hexdigits[c&0xf])
		}
		start = i + 1
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}
