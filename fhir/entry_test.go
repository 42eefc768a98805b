package fhir

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/andreyvit/fhirdict"
	"github.com/andreyvit/fhirdict/odoc"
)

func TestEntryMinimal(t *testing.T) {
	res := must(NewResource(odoc.Pairs("resourceType", "Patient"), fhirdict.Compressed))
	entry := &BundleEntry{Resource: res}

	if entry.Request != nil || entry.Response != nil || entry.FullURL != "" {
		t.Fatalf("** minimal entry carries extra fields: %+v", entry)
	}
	data, err := entry.JSON()
	if err != nil {
		t.Fatal(err)
	}
	eq(t, string(data), `{"resource":{"resourceType":"Patient"}}`)
}

func TestEntryFull(t *testing.T) {
	res := must(NewResource(odoc.Pairs("resourceType", "Patient", "id", "123"), fhirdict.Compressed))
	entry := &BundleEntry{
		FullURL:  "https://example.com/Patient/123",
		Resource: res,
		Request:  &EntryRequest{URL: "https://example.com"},
		Response: &EntryResponse{Status: "200"},
	}

	m, err := entry.Map()
	if err != nil {
		t.Fatal(err)
	}
	eq(t, strings.Join(odoc.Keys(m), ","), "fullUrl,resource,request,response")

	data, err := entry.JSON()
	if err != nil {
		t.Fatal(err)
	}
	eq(t, string(data), `{"fullUrl":"https://example.com/Patient/123",`+
		`"resource":{"resourceType":"Patient","id":"123"},`+
		`"request":{"url":"https://example.com","method":"GET"},`+
		`"response":{"status":"200"}}`)
}

func TestEntryFromMapMinimal(t *testing.T) {
	m := must(odoc.FromJSON([]byte(`{"resource":{"resourceType":"Patient"}}`)))
	entry, err := EntryFromMap(m, fhirdict.Compressed)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Resource == nil {
		t.Fatalf("** no resource parsed")
	}
	typ := must(entry.Resource.ResourceType())
	eq(t, typ, "Patient")
	if entry.Request != nil || entry.Response != nil || entry.FullURL != "" {
		t.Fatalf("** minimal entry parsed extra fields: %+v", entry)
	}
	eq(t, entry.Resource.Mode(), fhirdict.Compressed)
}

func TestEntryFromMapFull(t *testing.T) {
	m := must(odoc.FromJSON([]byte(`{
		"fullUrl": "https://example.com/Patient/123",
		"resource": {"resourceType": "Patient", "id": "123"},
		"request": {"url": "https://example.com", "method": "GET"},
		"response": {"status": "200", "lastModified": "2023-05-02T10:30:00Z", "etag": "W/\"abc\""}
	}`)))
	entry, err := EntryFromMap(m, fhirdict.Compressed)
	if err != nil {
		t.Fatal(err)
	}
	eq(t, entry.FullURL, "https://example.com/Patient/123")
	eq(t, must(entry.Resource.TypeAndID()), "Patient/123")
	eq(t, entry.Request.URL, "https://example.com")
	eq(t, entry.Request.Method, "GET")
	eq(t, entry.Response.Status, "200")
	eq(t, entry.Response.ETag, `W/"abc"`)
	eq(t, entry.Response.LastModified, time.Date(2023, 5, 2, 10, 30, 0, 0, time.UTC))
}

func TestEntryFromJSONRoundTrip(t *testing.T) {
	src := `{"fullUrl":"urn:uuid:x","resource":{"resourceType":"Observation","id":"obs1","value":1.50},"request":{"url":"https://example.com","method":"POST"},"response":{"status":"201"}}`
	entry, err := EntryFromJSON([]byte(src), fhirdict.CompressedDictOfLists)
	if err != nil {
		t.Fatal(err)
	}
	data, err := entry.JSON()
	if err != nil {
		t.Fatal(err)
	}
	eq(t, string(data), src)
}

func TestEntryLinkAndSearch(t *testing.T) {
	src := `{"resource":{"resourceType":"Patient","id":"p1"},"link":[{"relation":"self","url":"https://example.com/Patient/p1"}],"search":{"mode":"match","score":0.80}}`
	entry, err := EntryFromJSON([]byte(src), fhirdict.Compressed)
	if err != nil {
		t.Fatal(err)
	}
	eq(t, len(entry.Link), 1)
	eq(t, entry.Link[0], Link{Relation: "self", URL: "https://example.com/Patient/p1"})
	eq(t, entry.Search.Mode, "match")
	eq(t, string(entry.Search.Score), "0.80") // literal token survives

	data, err := entry.JSON()
	if err != nil {
		t.Fatal(err)
	}
	eq(t, string(data), src)
}

func TestEntryString(t *testing.T) {
	res := must(NewResource(odoc.Pairs("resourceType", "Patient", "id", "123"), fhirdict.Compressed))
	entry := &BundleEntry{Resource: res}
	eq(t, entry.String(), "BundleEntry(Patient/123)")

	eq(t, (&BundleEntry{}).String(), "BundleEntry(Empty)")

	anon := must(NewResource(odoc.Pairs("resourceType", "Patient"), fhirdict.Raw))
	eq(t, (&BundleEntry{Resource: anon}).String(), "BundleEntry(?)")
}

func TestEntryClone(t *testing.T) {
	entry, err := EntryFromJSON([]byte(`{
		"fullUrl": "urn:uuid:x",
		"resource": {"resourceType": "Patient", "id": "123"},
		"request": {"url": "https://example.com", "method": "PUT"},
		"response": {"status": "200"},
		"link": [{"relation": "self", "url": "u"}]
	}`), fhirdict.Compressed)
	if err != nil {
		t.Fatal(err)
	}
	c := entry.Clone()

	err = entry.Resource.Transaction(func(tx *fhirdict.Tx) error {
		return tx.Set("id", "456")
	})
	if err != nil {
		t.Fatal(err)
	}
	entry.Request.Method = "DELETE"
	entry.Link[0].URL = "changed"

	eq(t, must(c.Resource.ID()), "123")
	eq(t, c.Request.Method, "PUT")
	eq(t, c.Link[0].URL, "u")
}

func TestEntryFromMapRejectsBadShapes(t *testing.T) {
	for _, src := range []string{
		`{"link": "not a list"}`,
		`{"link": ["not an object"]}`,
		`{"response": {"status": true}}`,
		`{"request": {"ifModifiedSince": "not a time"}}`,
	} {
		m := must(odoc.FromJSON([]byte(src)))
		_, err := EntryFromMap(m, fhirdict.Compressed)
		var e *fhirdict.InvalidDocumentError
		if !errors.As(err, &e) {
			t.Errorf("** %s: got %T, wanted *InvalidDocumentError", src, err)
		}
	}
}

func TestEntryErrorPathsArePrefixed(t *testing.T) {
	m := must(odoc.FromJSON([]byte(`{"request": {"ifModifiedSince": "garbage"}}`)))
	_, err := EntryFromMap(m, fhirdict.Compressed)
	var e *fhirdict.InvalidDocumentError
	if !errors.As(err, &e) {
		t.Fatalf("** got %T, wanted *InvalidDocumentError", err)
	}
	eq(t, e.Path, "request.ifModifiedSince")
}

func eq[T comparable](t testing.TB, a, e T) {
	if a != e {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
