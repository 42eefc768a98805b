package odoc

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPairsAndKeys(t *testing.T) {
	m := Pairs("resourceType", "Patient", "id", "123", "active", true)
	eq(t, strings.Join(Keys(m), ","), "resourceType,id,active")
	v, ok := m.Get("id")
	eq(t, ok, true)
	eq(t, v.(string), "123")
}

func TestPairsPanics(t *testing.T) {
	expectPanic(t, func() { Pairs("a") })
	expectPanic(t, func() { Pairs(1, "a") })
}

func TestKeysOrder(t *testing.T) {
	m := New()
	m.Set("z", 1)
	m.Set("a", 2)
	m.Set("m", 3)
	m.Set("a", 4) // overwrite keeps position
	eq(t, strings.Join(Keys(m), ","), "z,a,m")
}

func TestCopyIndependence(t *testing.T) {
	inner := Pairs("city", "Boston")
	m := Pairs("name", "John", "address", inner, "tags", []any{"a", "b"})
	c := Copy(m)
	eq(t, Equal(m, c), true)

	inner.Set("city", "Austin")
	m.Set("name", "Jane")
	cv, _ := c.Get("address")
	city, _ := cv.(*Map).Get("city")
	eq(t, city.(string), "Boston")
	nm, _ := c.Get("name")
	eq(t, nm.(string), "John")

	tags, _ := m.Get("tags")
	tags.([]any)[0] = "changed"
	ctags, _ := c.Get("tags")
	eq(t, ctags.([]any)[0].(string), "a")
}

func TestEqualIgnoresKeyOrder(t *testing.T) {
	a := Pairs("x", json.Number("1"), "y", json.Number("2"))
	b := Pairs("y", json.Number("2"), "x", json.Number("1"))
	eq(t, Equal(a, b), true)
}

func TestEqualNested(t *testing.T) {
	a := Pairs("p", Pairs("a", []any{nil, true, "s"}))
	b := Pairs("p", Pairs("a", []any{nil, true, "s"}))
	eq(t, Equal(a, b), true)

	b = Pairs("p", Pairs("a", []any{nil, true, "t"}))
	eq(t, Equal(a, b), false)
}

func TestEqualNumberTokensAreLiteral(t *testing.T) {
	eq(t, EqualValue(json.Number("1.5"), json.Number("1.5")), true)
	eq(t, EqualValue(json.Number("1.5"), json.Number("1.50")), false)
	eq(t, EqualValue(json.Number("1"), "1"), false)
}

func TestEqualNil(t *testing.T) {
	eq(t, Equal(nil, nil), true)
	eq(t, Equal(nil, New()), true)
	eq(t, Equal(Pairs("a", 1), nil), false)
}

func TestValidNumber(t *testing.T) {
	valid := []string{"0", "-0", "1", "-1", "10", "1.5", "1.50", "-0.001", "1e2", "1E2", "1e+2", "1e-2", "1.5e10", "123456789012345678901234567890"}
	for _, s := range valid {
		if !ValidNumber(s) {
			t.Errorf("** ValidNumber(%q) = false, wanted true", s)
		}
	}
	invalid := []string{"", "-", "+1", "01", "1.", ".5", "1e", "1e+", "0x10", "Inf", "NaN", "1.2.3", "1 ", " 1", "1,5"}
	for _, s := range invalid {
		if ValidNumber(s) {
			t.Errorf("** ValidNumber(%q) = true, wanted false", s)
		}
	}
}

func eq[T comparable](t testing.TB, a, e T) {
	if a != e {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func expectPanic(t testing.TB, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("** no panic, wanted one")
		}
	}()
	f()
}
