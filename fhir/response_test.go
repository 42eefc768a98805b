package fhir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/andreyvit/fhirdict/odoc"
)

func TestResponseDefaults(t *testing.T) {
	data, err := odoc.ToJSON((&EntryResponse{}).Map())
	if err != nil {
		t.Fatal(err)
	}
	eq(t, string(data), `{"status":"200"}`)

	r, err := ResponseFromMap(odoc.New())
	if err != nil {
		t.Fatal(err)
	}
	eq(t, r.Status, "200")
}

func TestResponseNumericStatusCoerced(t *testing.T) {
	r, err := ResponseFromMap(odoc.Pairs("status", json.Number("201")))
	if err != nil {
		t.Fatal(err)
	}
	eq(t, r.Status, "201")
}

func TestResponseMapFull(t *testing.T) {
	r := &EntryResponse{
		Status:       "201",
		LastModified: time.Date(2023, 5, 2, 10, 30, 0, 0, time.UTC),
		ETag:         `W/"1"`,
		Location:     "Patient/123/_history/1",
	}
	data, err := odoc.ToJSON(r.Map())
	if err != nil {
		t.Fatal(err)
	}
	eq(t, string(data), `{"status":"201","lastModified":"2023-05-02T10:30:00Z",`+
		`"etag":"W/\"1\"","location":"Patient/123/_history/1"}`)
}

func TestResponseRoundTrip(t *testing.T) {
	r := &EntryResponse{Status: "404", ETag: `W/"9"`}
	back, err := ResponseFromMap(r.Map())
	if err != nil {
		t.Fatal(err)
	}
	eq(t, *back, *r)
}

func TestResponseCloneAndString(t *testing.T) {
	r := &EntryResponse{Status: "500"}
	c := r.Clone()
	r.Status = "200"
	eq(t, c.Status, "500")
	eq(t, c.String(), "EntryResponse(500)")
	eq(t, (&EntryResponse{}).String(), "EntryResponse(200)")
}
