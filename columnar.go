package fhirdict

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/andreyvit/fhirdict/odoc"
)

// Keys of the integer-keyed msgpack map that carries a transposed array of
// objects. See the package documentation for the layout.
const (
	colRowCount = 0
	colKeyTable = 1
	colRowKeys  = 2
	colValues   = 3

	colEntryCount = 4
)

// transposableRows reports whether v is a non-empty array of objects, the
// only shape that benefits from columnar encoding.
func transposableRows(v []any) ([]*odoc.Map, bool) {
	if len(v) == 0 {
		return nil, false
	}
	rows := make([]*odoc.Map, len(v))
	for i, el := range v {
		m, ok := el.(*odoc.Map)
		if !ok {
			return nil, false
		}
		rows[i] = m
	}
	return rows, true
}

func (c msgpackCodec) encodeColumns(e *msgpack.Encoder, rows []*odoc.Map) error {
	var keys []string
	keyIdx := make(map[string]int)
	for _, row := range rows {
		for pair := row.Oldest(); pair != nil; pair = pair.Next() {
			if _, ok := keyIdx[pair.Key]; !ok {
				keyIdx[pair.Key] = len(keys)
				keys = append(keys, pair.Key)
			}
		}
	}

	if err := e.EncodeMapLen(colEntryCount); err != nil {
		return err
	}

	if err := e.EncodeInt(colRowCount); err != nil {
		return err
	}
	if err := e.EncodeInt(int64(len(rows))); err != nil {
		return err
	}

	if err := e.EncodeInt(colKeyTable); err != nil {
		return err
	}
	if err := e.EncodeArrayLen(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := e.EncodeString(k); err != nil {
			return err
		}
	}

	if err := e.EncodeInt(colRowKeys); err != nil {
		return err
	}
	if err := e.EncodeArrayLen(len(rows)); err != nil {
		return err
	}
	for _, row := range rows {
		if err := e.EncodeArrayLen(row.Len()); err != nil {
			return err
		}
		for pair := row.Oldest(); pair != nil; pair = pair.Next() {
			if err := e.EncodeUint(uint64(keyIdx[pair.Key])); err != nil {
				return err
			}
		}
	}

	if err := e.EncodeInt(colValues); err != nil {
		return err
	}
	if err := e.EncodeArrayLen(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		count := 0
		for _, row := range rows {
			if _, ok := row.Get(k); ok {
				count++
			}
		}
		if err := e.EncodeArrayLen(count); err != nil {
			return err
		}
		for _, row := range rows {
			if v, ok := row.Get(k); ok {
				if err := c.encodeValue(e, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// decodeColumns reassembles a transposed array of objects. The map length
// header and the peek at the first key have already been consumed by the
// caller; entries is the map length.
func (c msgpackCodec) decodeColumns(d *msgpack.Decoder, entries int) ([]any, error) {
	if entries != colEntryCount {
		return nil, fmt.Errorf("columnar: %d entries, expected %d", entries, colEntryCount)
	}

	if err := expectColKey(d, colRowCount); err != nil {
		return nil, err
	}
	rowCount, err := d.DecodeInt64()
	if err != nil {
		return nil, err
	}
	if rowCount < 0 {
		return nil, fmt.Errorf("columnar: negative row count %d", rowCount)
	}

	if err := expectColKey(d, colKeyTable); err != nil {
		return nil, err
	}
	keyN, err := d.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	keys := make([]string, keyN)
	for i := range keys {
		keys[i], err = d.DecodeString()
		if err != nil {
			return nil, err
		}
	}

	if err := expectColKey(d, colRowKeys); err != nil {
		return nil, err
	}
	rowN, err := d.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if int64(rowN) != rowCount {
		return nil, fmt.Errorf("columnar: %d row key lists, header says %d rows", rowN, rowCount)
	}
	rowKeys := make([][]int, rowN)
	colLens := make([]int, keyN)
	for i := range rowKeys {
		n, err := d.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		idxs := make([]int, n)
		for j := range idxs {
			u, err := d.DecodeUint64()
			if err != nil {
				return nil, err
			}
			if u >= uint64(keyN) {
				return nil, fmt.Errorf("columnar: key index %d out of range (%d keys)", u, keyN)
			}
			idxs[j] = int(u)
			colLens[u]++
		}
		rowKeys[i] = idxs
	}

	if err := expectColKey(d, colValues); err != nil {
		return nil, err
	}
	colN, err := d.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if colN != keyN {
		return nil, fmt.Errorf("columnar: %d columns for %d keys", colN, keyN)
	}
	cols := make([][]any, keyN)
	for ki := range cols {
		n, err := d.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		if n != colLens[ki] {
			return nil, fmt.Errorf("columnar: column %q holds %d values, rows reference %d", keys[ki], n, colLens[ki])
		}
		col := make([]any, n)
		for i := range col {
			col[i], err = c.decodeValue(d)
			if err != nil {
				return nil, err
			}
		}
		cols[ki] = col
	}

	cursors := make([]int, keyN)
	rows := make([]any, rowN)
	for i, idxs := range rowKeys {
		row := odoc.New()
		for _, ki := range idxs {
			row.Set(keys[ki], cols[ki][cursors[ki]])
			cursors[ki]++
		}
		rows[i] = row
	}
	return rows, nil
}

func expectColKey(d *msgpack.Decoder, want int64) error {
	got, err := d.DecodeInt64()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("columnar: map key %d, expected %d", got, want)
	}
	return nil
}
