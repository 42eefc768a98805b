package fhir

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/andreyvit/fhirdict/odoc"
)

// DefaultResponseStatus fills in when a response renders or parses with the
// status empty.
const DefaultResponseStatus = "200"

// EntryResponse carries the response half of a bundle entry: what a FHIR
// server answered when the entry was processed.
type EntryResponse struct {
	Status       string
	LastModified time.Time
	ETag         string
	Location     string
}

// Map renders the response as an ordered document. Status falls back to
// "200" when empty.
func (r *EntryResponse) Map() *odoc.Map {
	m := odoc.New()
	m.Set("status", orDefault(r.Status, DefaultResponseStatus))
	if !r.LastModified.IsZero() {
		m.Set("lastModified", renderInstant(r.LastModified))
	}
	if r.ETag != "" {
		m.Set("etag", r.ETag)
	}
	if r.Location != "" {
		m.Set("location", r.Location)
	}
	return m
}

// ResponseFromMap parses the response subdocument of a bundle entry. Numeric
// statuses coerce to their string form.
func ResponseFromMap(m *odoc.Map) (*EntryResponse, error) {
	r := &EntryResponse{}
	status, _ := m.Get("status")
	switch v := status.(type) {
	case nil:
	case string:
		r.Status = v
	case json.Number:
		r.Status = string(v)
	default:
		return nil, badField("status", "expected a string, got %T", v)
	}
	r.Status = orDefault(r.Status, DefaultResponseStatus)
	var err error
	r.LastModified, err = timeField(m, "lastModified")
	if err != nil {
		return nil, err
	}
	r.ETag, _ = stringField(m, "etag")
	r.Location, _ = stringField(m, "location")
	return r, nil
}

// Clone returns a copy of the response.
func (r *EntryResponse) Clone() *EntryResponse {
	c := *r
	return &c
}

func (r *EntryResponse) String() string {
	return fmt.Sprintf("EntryResponse(%s)", orDefault(r.Status, DefaultResponseStatus))
}
