package fhirdict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/andreyvit/fhirdict/odoc"
)

// Codec turns ordered documents into payload bytes and back. Implementations
// must round-trip key order and number tokens byte for byte, and must be safe
// for concurrent use.
type Codec interface {
	Name() string

	// AppendEncoded appends the encoded document to dst and returns the
	// extended slice.
	AppendEncoded(dst []byte, doc *odoc.Map) ([]byte, error)

	// Decode builds a fresh document tree from payload bytes. Errors are
	// *CorruptPayloadError.
	Decode(data []byte) (*odoc.Map, error)

	// DecodeKeys returns the top-level keys of an encoded document without
	// building the value tree. The result is never nil on success.
	DecodeKeys(data []byte) ([]string, error)
}

var (
	plainCodec         = msgpackCodec{}
	plainColumnarCodec = msgpackCodec{columnar: true}
	compressedCodec    = zstdCodec{inner: plainCodec}
	columnarCodec      = zstdCodec{inner: plainColumnarCodec}

	// canonicalCodec produces the bytes hashed by Fingerprint: plain msgpack,
	// no compression, no transposition.
	canonicalCodec = plainCodec
)

type msgpackCodec struct {
	columnar bool
}

func (c msgpackCodec) Name() string {
	if c.columnar {
		return "msgpack-columnar"
	}
	return "msgpack"
}

func (c msgpackCodec) AppendEncoded(dst []byte, doc *odoc.Map) ([]byte, error) {
	bb := bytesBuilder{dst}
	enc := msgpack.GetEncoder()
	enc.ResetDict(&bb, nil)
	err := c.encodeMap(enc, doc)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, err
	}
	return bb.Buf, nil
}

func (c msgpackCodec) Decode(data []byte) (*odoc.Map, error) {
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.ResetDict(&r, nil)
	doc, err := c.decodeMap(dec)
	msgpack.PutDecoder(dec)
	if err != nil {
		// Clone: data may live in a pooled decompression buffer.
		return nil, corruptErrf(slices.Clone(data), 0, err, "%s", c.Name())
	}
	return doc, nil
}

func (c msgpackCodec) DecodeKeys(data []byte) ([]string, error) {
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.ResetDict(&r, nil)
	keys, err := decodeKeysOnly(dec)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, corruptErrf(slices.Clone(data), 0, err, "%s keys", c.Name())
	}
	return keys, nil
}

func decodeKeysOnly(d *msgpack.Decoder) ([]string, error) {
	n, err := d.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		key, err := d.DecodeString()
		if err != nil {
			return nil, err
		}
		if err := d.Skip(); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (c msgpackCodec) encodeMap(e *msgpack.Encoder, m *odoc.Map) error {
	if err := e.EncodeMapLen(m.Len()); err != nil {
		return err
	}
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if err := e.EncodeString(pair.Key); err != nil {
			return err
		}
		if err := c.encodeValue(e, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

func (c msgpackCodec) encodeValue(e *msgpack.Encoder, v any) error {
	switch v := v.(type) {
	case nil:
		return e.EncodeNil()
	case bool:
		return e.EncodeBool(v)
	case string:
		return e.EncodeString(v)
	case json.Number:
		return encodeNumber(e, v)
	case *odoc.Map:
		return c.encodeMap(e, v)
	case []any:
		if c.columnar {
			if rows, ok := transposableRows(v); ok {
				return c.encodeColumns(e, rows)
			}
		}
		if err := e.EncodeArrayLen(len(v)); err != nil {
			return err
		}
		for _, el := range v {
			if err := c.encodeValue(e, el); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("cannot encode %T as a document value", v)
	}
}

// encodeNumber writes n as a native msgpack number when the token is the
// canonical rendering of an int64, uint64 or float64, and as a bin value
// holding the literal token bytes otherwise.
func encodeNumber(e *msgpack.Encoder, n json.Number) error {
	tok := string(n)
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		if strconv.FormatInt(i, 10) == tok {
			return e.EncodeInt(i)
		}
	} else if u, err := strconv.ParseUint(tok, 10, 64); err == nil {
		if strconv.FormatUint(u, 10) == tok {
			return e.EncodeUint(u)
		}
	} else if f, err := strconv.ParseFloat(tok, 64); err == nil {
		if strconv.FormatFloat(f, 'g', -1, 64) == tok {
			return e.EncodeFloat64(f)
		}
	}
	return e.EncodeBytes([]byte(tok))
}

func (c msgpackCodec) decodeMap(d *msgpack.Decoder) (*odoc.Map, error) {
	code, err := d.PeekCode()
	if err != nil {
		return nil, err
	}
	if !isMapCode(code) {
		return nil, fmt.Errorf("document is not a map (code %02x)", code)
	}
	v, err := c.decodeValue(d)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*odoc.Map)
	if !ok {
		return nil, fmt.Errorf("document decoded to %T instead of a map", v)
	}
	return m, nil
}

func (c msgpackCodec) decodeValue(d *msgpack.Decoder) (any, error) {
	code, err := d.PeekCode()
	if err != nil {
		return nil, err
	}
	switch {
	case code == msgpcode.Nil:
		return nil, d.DecodeNil()
	case code == msgpcode.True || code == msgpcode.False:
		return d.DecodeBool()
	case msgpcode.IsFixedNum(code) || code == msgpcode.Int8 || code == msgpcode.Int16 || code == msgpcode.Int32 || code == msgpcode.Int64:
		i, err := d.DecodeInt64()
		if err != nil {
			return nil, err
		}
		return json.Number(strconv.FormatInt(i, 10)), nil
	case code == msgpcode.Uint8 || code == msgpcode.Uint16 || code == msgpcode.Uint32 || code == msgpcode.Uint64:
		u, err := d.DecodeUint64()
		if err != nil {
			return nil, err
		}
		return json.Number(strconv.FormatUint(u, 10)), nil
	case code == msgpcode.Float:
		f, err := d.DecodeFloat32()
		if err != nil {
			return nil, err
		}
		return json.Number(strconv.FormatFloat(float64(f), 'g', -1, 32)), nil
	case code == msgpcode.Double:
		f, err := d.DecodeFloat64()
		if err != nil {
			return nil, err
		}
		return json.Number(strconv.FormatFloat(f, 'g', -1, 64)), nil
	case msgpcode.IsString(code):
		return d.DecodeString()
	case msgpcode.IsBin(code):
		b, err := d.DecodeBytes()
		if err != nil {
			return nil, err
		}
		tok := string(b)
		if !odoc.ValidNumber(tok) {
			return nil, fmt.Errorf("bad number token %q", tok)
		}
		return json.Number(tok), nil
	case isMapCode(code):
		n, err := d.DecodeMapLen()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			keyCode, err := d.PeekCode()
			if err != nil {
				return nil, err
			}
			if !msgpcode.IsString(keyCode) {
				// Ordinary maps only have string keys; an integer first key
				// marks a transposed array of objects.
				return c.decodeColumns(d, n)
			}
		}
		m := odoc.New()
		for i := 0; i < n; i++ {
			key, err := d.DecodeString()
			if err != nil {
				return nil, err
			}
			v, err := c.decodeValue(d)
			if err != nil {
				return nil, err
			}
			m.Set(key, v)
		}
		return m, nil
	case isArrayCode(code):
		n, err := d.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		arr := make([]any, 0, n)
		for i := 0; i < n; i++ {
			v, err := c.decodeValue(d)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unsupported msgpack code %02x", code)
	}
}

func isMapCode(code byte) bool {
	return msgpcode.IsFixedMap(code) || code == msgpcode.Map16 || code == msgpcode.Map32
}

func isArrayCode(code byte) bool {
	return msgpcode.IsFixedArray(code) || code == msgpcode.Array16 || code == msgpcode.Array32
}
