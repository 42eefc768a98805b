// Package fhir is a thin typed layer over fhirdict containers for the FHIR
// objects a bundle-processing client deals with: resources, bundle entries
// with their request/response metadata, and bundles.
//
// A Resource owns one container and routes every field access through it, so
// typed accessors never go stale against transaction-scoped mutations. The
// surrounding DTO types (BundleEntry, EntryRequest, EntryResponse, Bundle)
// hold plain Go fields and convert to and from ordered documents on demand,
// pruning empty elements the way FHIR servers expect.
package fhir

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andreyvit/fhirdict"
	"github.com/andreyvit/fhirdict/odoc"
)

// instantLayouts are the accepted spellings of FHIR instants, tried in
// order. The second form has no zone; such values parse as UTC.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseInstant(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range instantLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func renderInstant(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func badField(path string, format string, args ...any) error {
	return &fhirdict.InvalidDocumentError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// prefixPath prepends a path segment to an InvalidDocumentError bubbling up
// from a nested element, mirroring how fhirdict reports nested positions.
func prefixPath(err error, seg string) error {
	var e *fhirdict.InvalidDocumentError
	if errors.As(err, &e) {
		switch {
		case e.Path == "":
			e.Path = seg
		case strings.HasPrefix(e.Path, "["):
			e.Path = seg + e.Path
		default:
			e.Path = seg + "." + e.Path
		}
	}
	return err
}

func stringField(m *odoc.Map, key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func mapField(m *odoc.Map, key string) (*odoc.Map, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	mm, ok := v.(*odoc.Map)
	return mm, ok
}

func timeField(m *odoc.Map, key string) (time.Time, error) {
	v, ok := m.Get(key)
	if !ok {
		return time.Time{}, nil
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, badField(key, "expected an instant string, got %T", v)
	}
	t, err := parseInstant(s)
	if err != nil {
		return time.Time{}, badField(key, "bad instant %q", s)
	}
	return t, nil
}
