package fhir

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/andreyvit/fhirdict/odoc"
)

func TestPruneEmptyDropsNulls(t *testing.T) {
	m := odoc.Pairs("a", "x", "b", nil, "c", "y")
	PruneEmpty(m)
	eq(t, strings.Join(odoc.Keys(m), ","), "a,c")
}

func TestPruneEmptyDropsEmptyContainersRecursively(t *testing.T) {
	m := odoc.Pairs(
		"a", odoc.Pairs("b", odoc.New()),
		"list", []any{nil, odoc.New(), []any{}},
		"keep", odoc.Pairs("x", "1", "junk", nil),
	)
	PruneEmpty(m)
	eq(t, strings.Join(odoc.Keys(m), ","), "keep")
	keep, _ := m.Get("keep")
	eq(t, strings.Join(odoc.Keys(keep.(*odoc.Map)), ","), "x")
}

func TestPruneEmptyKeepsFalsyScalars(t *testing.T) {
	m := odoc.Pairs("s", "", "n", json.Number("0"), "f", false)
	PruneEmpty(m)
	eq(t, strings.Join(odoc.Keys(m), ","), "s,n,f")
}

func TestPruneEmptyPrunesListElements(t *testing.T) {
	m := odoc.Pairs("list", []any{
		odoc.Pairs("ok", true),
		odoc.Pairs("gone", nil),
		"text",
	})
	PruneEmpty(m)
	v, _ := m.Get("list")
	list := v.([]any)
	eq(t, len(list), 2)
	eq(t, strings.Join(odoc.Keys(list[0].(*odoc.Map)), ","), "ok")
	eq(t, list[1].(string), "text")
}

func TestPruneEmptyPreservesKeyOrder(t *testing.T) {
	m := odoc.Pairs("z", "1", "gone", nil, "a", "2", "m", "3")
	PruneEmpty(m)
	eq(t, strings.Join(odoc.Keys(m), ","), "z,a,m")
}

func TestPruneEmptyNil(t *testing.T) {
	if PruneEmpty(nil) != nil {
		t.Fatal("** wanted nil")
	}
}
