package fhir

import (
	"fmt"
	"time"

	"github.com/andreyvit/fhirdict/odoc"
)

// Defaults filled in when a request renders or parses with the field empty.
const (
	DefaultRequestURL    = "https://example.com"
	DefaultRequestMethod = "GET"
)

// EntryRequest carries the request half of a bundle entry: how the entry
// would be (or was) submitted to a FHIR server. A zero IfModifiedSince means
// the header is absent.
type EntryRequest struct {
	URL             string
	Method          string
	IfModifiedSince time.Time
	IfNoneMatch     string
	IfNoneExist     string
}

// Map renders the request as an ordered document. URL and Method fall back
// to their defaults when empty, so the result always names both.
func (r *EntryRequest) Map() *odoc.Map {
	m := odoc.New()
	m.Set("url", orDefault(r.URL, DefaultRequestURL))
	m.Set("method", orDefault(r.Method, DefaultRequestMethod))
	if !r.IfModifiedSince.IsZero() {
		m.Set("ifModifiedSince", renderInstant(r.IfModifiedSince))
	}
	if r.IfNoneMatch != "" {
		m.Set("ifNoneMatch", r.IfNoneMatch)
	}
	if r.IfNoneExist != "" {
		m.Set("ifNoneExist", r.IfNoneExist)
	}
	return m
}

// RequestFromMap parses the request subdocument of a bundle entry.
func RequestFromMap(m *odoc.Map) (*EntryRequest, error) {
	r := &EntryRequest{}
	r.URL, _ = stringField(m, "url")
	r.URL = orDefault(r.URL, DefaultRequestURL)
	r.Method, _ = stringField(m, "method")
	r.Method = orDefault(r.Method, DefaultRequestMethod)
	var err error
	r.IfModifiedSince, err = timeField(m, "ifModifiedSince")
	if err != nil {
		return nil, err
	}
	r.IfNoneMatch, _ = stringField(m, "ifNoneMatch")
	r.IfNoneExist, _ = stringField(m, "ifNoneExist")
	return r, nil
}

// Clone returns a copy of the request.
func (r *EntryRequest) Clone() *EntryRequest {
	c := *r
	return &c
}

func (r *EntryRequest) String() string {
	return fmt.Sprintf("EntryRequest(%s %s)", orDefault(r.Method, DefaultRequestMethod), orDefault(r.URL, DefaultRequestURL))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
