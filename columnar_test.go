package fhirdict

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/andreyvit/fhirdict/odoc"
)

func TestColumnarRoundTripHomogeneousRows(t *testing.T) {
	doc := odoc.Pairs("name", []any{
		odoc.Pairs("family", "Doe", "given", []any{"John"}),
		odoc.Pairs("family", "Doe", "given", []any{"Johnny"}),
		odoc.Pairs("family", "Smith", "given", []any{"Jane"}),
	})
	out := roundTrip(t, plainColumnarCodec, doc)
	if !odoc.Equal(doc, out) {
		t.Errorf("** round trip changed the document")
	}
}

func TestColumnarPreservesPerRowKeyOrderAndAbsence(t *testing.T) {
	doc := odoc.Pairs("entry", []any{
		odoc.Pairs("a", json.Number("1"), "b", "x"),
		odoc.Pairs("b", "y", "a", json.Number("2")), // reversed order
		odoc.Pairs("a", json.Number("3")),           // b absent
		odoc.Pairs("b", nil),                        // a absent, b explicitly null
		odoc.New(),                                  // empty row
	})
	out := roundTrip(t, plainColumnarCodec, doc)

	v, _ := out.Get("entry")
	rows := v.([]any)
	eq(t, len(rows), 5)
	eq(t, strings.Join(odoc.Keys(rows[0].(*odoc.Map)), ","), "a,b")
	eq(t, strings.Join(odoc.Keys(rows[1].(*odoc.Map)), ","), "b,a")
	eq(t, strings.Join(odoc.Keys(rows[2].(*odoc.Map)), ","), "a")
	eq(t, strings.Join(odoc.Keys(rows[3].(*odoc.Map)), ","), "b")
	eq(t, rows[4].(*odoc.Map).Len(), 0)

	b3, ok := rows[3].(*odoc.Map).Get("b")
	eq(t, ok, true)
	eq(t, b3 == nil, true)
	_, ok = rows[2].(*odoc.Map).Get("b")
	eq(t, ok, false)

	if !odoc.Equal(doc, out) {
		t.Errorf("** round trip changed the document")
	}
}

func TestColumnarNestedListsOfObjects(t *testing.T) {
	doc := odoc.Pairs("entry", []any{
		odoc.Pairs("resource", odoc.Pairs(
			"name", []any{
				odoc.Pairs("family", "Doe"),
				odoc.Pairs("family", "Dough"),
			},
		)),
		odoc.Pairs("resource", odoc.Pairs(
			"name", []any{
				odoc.Pairs("family", "Smith"),
			},
		)),
	})
	out := roundTrip(t, plainColumnarCodec, doc)
	if !odoc.Equal(doc, out) {
		t.Errorf("** round trip changed the document")
	}
}

func TestColumnarLeavesMixedListsAlone(t *testing.T) {
	docs := []*odoc.Map{
		odoc.Pairs("mixed", []any{odoc.Pairs("a", json.Number("1")), "not a map"}),
		odoc.Pairs("scalars", []any{json.Number("1"), json.Number("2")}),
		odoc.Pairs("empty", []any{}),
		odoc.Pairs("nulls", []any{nil, nil}),
	}
	for _, doc := range docs {
		out := roundTrip(t, plainColumnarCodec, doc)
		if !odoc.Equal(doc, out) {
			t.Errorf("** round trip changed the document %v", odoc.Keys(doc))
		}
	}
}

func TestColumnarSingleRowList(t *testing.T) {
	doc := odoc.Pairs("entry", []any{odoc.Pairs("only", "row")})
	out := roundTrip(t, plainColumnarCodec, doc)
	if !odoc.Equal(doc, out) {
		t.Errorf("** round trip changed the document")
	}
}

func TestColumnarMapWithNumericStringKeysIsNotConfused(t *testing.T) {
	// String keys that look like the transposed layout's integer keys must
	// stay an ordinary map.
	doc := odoc.Pairs("weird", []any{
		odoc.Pairs("0", json.Number("3"), "1", []any{"k"}, "2", []any{}, "3", []any{}),
	})
	out := roundTrip(t, plainColumnarCodec, doc)
	if !odoc.Equal(doc, out) {
		t.Errorf("** round trip changed the document")
	}
}

func TestColumnarShrinksRepetitiveBundles(t *testing.T) {
	entries := make([]any, 0, 100)
	for i := 0; i < 100; i++ {
		entries = append(entries, odoc.Pairs(
			"fullUrl", "urn:uuid:00000000-0000-0000-0000-000000000000",
			"resource", odoc.Pairs(
				"resourceType", "Observation",
				"status", "final",
				"code", odoc.Pairs("text", "Heart rate"),
			),
		))
	}
	doc := odoc.Pairs("resourceType", "Bundle", "type", "collection", "entry", entries)

	flat := must(plainCodec.AppendEncoded(nil, doc))
	columnar := must(plainColumnarCodec.AppendEncoded(nil, doc))
	if len(columnar) >= len(flat) {
		t.Errorf("** columnar %d bytes >= flat %d bytes", len(columnar), len(flat))
	}
}

func TestColumnarRejectsMalformedLayouts(t *testing.T) {
	// Hand-built transposed layouts with internal inconsistencies. Layout:
	// {0: rowCount, 1: keyTable, 2: rowKeys, 3: columns}.
	cases := []struct {
		name  string
		build func(e *colBuilder)
	}{
		{"row count mismatch", func(e *colBuilder) {
			e.header(2) // claims 2 rows
			e.keyTable("a")
			e.rowKeys([][]uint64{{0}}) // but only 1 row key list
			e.columns([][]string{{"x"}})
		}},
		{"key index out of range", func(e *colBuilder) {
			e.header(1)
			e.keyTable("a")
			e.rowKeys([][]uint64{{5}})
			e.columns([][]string{{"x"}})
		}},
		{"column length mismatch", func(e *colBuilder) {
			e.header(2)
			e.keyTable("a")
			e.rowKeys([][]uint64{{0}, {0}}) // 2 rows reference column 0
			e.columns([][]string{{"x"}})    // but it holds 1 value
		}},
		{"wrong entry count", func(e *colBuilder) {
			e.enc.EncodeMapLen(2)
			e.enc.EncodeInt(0)
			e.enc.EncodeInt(1)
			e.enc.EncodeInt(1)
			e.enc.EncodeArrayLen(0)
		}},
	}
	for _, c := range cases {
		var bb bytesBuilder
		enc := msgpack.GetEncoder()
		enc.ResetDict(&bb, nil)
		enc.EncodeMapLen(1) // wrap in a document: {"entry": <layout>}
		enc.EncodeString("entry")
		c.build(&colBuilder{enc: enc})
		msgpack.PutEncoder(enc)

		if _, err := plainColumnarCodec.Decode(bb.Buf); err == nil {
			t.Errorf("** %s: decoded, wanted error", c.name)
		}
	}
}

type colBuilder struct {
	enc *msgpack.Encoder
}

func (b *colBuilder) header(rows int64) {
	b.enc.EncodeMapLen(4)
	b.enc.EncodeInt(0)
	b.enc.EncodeInt(rows)
}

func (b *colBuilder) keyTable(keys ...string) {
	b.enc.EncodeInt(1)
	b.enc.EncodeArrayLen(len(keys))
	for _, k := range keys {
		b.enc.EncodeString(k)
	}
}

func (b *colBuilder) rowKeys(rows [][]uint64) {
	b.enc.EncodeInt(2)
	b.enc.EncodeArrayLen(len(rows))
	for _, idxs := range rows {
		b.enc.EncodeArrayLen(len(idxs))
		for _, i := range idxs {
			b.enc.EncodeUint(i)
		}
	}
}

func (b *colBuilder) columns(cols [][]string) {
	b.enc.EncodeInt(3)
	b.enc.EncodeArrayLen(len(cols))
	for _, col := range cols {
		b.enc.EncodeArrayLen(len(col))
		for _, v := range col {
			b.enc.EncodeString(v)
		}
	}
}
