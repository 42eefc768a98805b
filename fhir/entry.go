package fhir

import (
	"encoding/json"
	"slices"

	"github.com/andreyvit/fhirdict"
	"github.com/andreyvit/fhirdict/odoc"
)

// BundleEntry is a single entry of a FHIR bundle. Every field except
// Resource is optional metadata; Map drops whatever is absent.
type BundleEntry struct {
	FullURL  string
	Resource *Resource
	Request  *EntryRequest
	Response *EntryResponse
	Link     []Link
	Search   *EntrySearch
}

// Link is a bundle or entry link, e.g. {"relation": "next", "url": …}.
type Link struct {
	Relation string
	URL      string
}

// EntrySearch describes why an entry is in a searchset bundle.
type EntrySearch struct {
	Mode  string
	Score json.Number
}

// Map renders the entry as an ordered document in the canonical element
// order (fullUrl, resource, request, response, link, search), with empty
// elements pruned.
func (e *BundleEntry) Map() (*odoc.Map, error) {
	m := odoc.New()
	if e.FullURL != "" {
		m.Set("fullUrl", e.FullURL)
	}
	if e.Resource != nil {
		rm, err := e.Resource.Map()
		if err != nil {
			return nil, err
		}
		m.Set("resource", rm)
	}
	if e.Request != nil {
		m.Set("request", e.Request.Map())
	}
	if e.Response != nil {
		m.Set("response", e.Response.Map())
	}
	if len(e.Link) > 0 {
		links := make([]any, 0, len(e.Link))
		for _, l := range e.Link {
			links = append(links, l.Map())
		}
		m.Set("link", links)
	}
	if e.Search != nil {
		m.Set("search", e.Search.Map())
	}
	return PruneEmpty(m), nil
}

// JSON renders the entry document.
func (e *BundleEntry) JSON() ([]byte, error) {
	m, err := e.Map()
	if err != nil {
		return nil, err
	}
	return odoc.ToJSON(m)
}

// EntryFromMap parses a bundle entry document. The storage mode applies to
// the contained resource.
func EntryFromMap(m *odoc.Map, mode fhirdict.StorageMode) (*BundleEntry, error) {
	e := &BundleEntry{}
	e.FullURL, _ = stringField(m, "fullUrl")
	if rm, ok := mapField(m, "resource"); ok {
		res, err := NewResource(rm, mode)
		if err != nil {
			return nil, prefixPath(err, "resource")
		}
		e.Resource = res
	}
	if rm, ok := mapField(m, "request"); ok {
		req, err := RequestFromMap(rm)
		if err != nil {
			return nil, prefixPath(err, "request")
		}
		e.Request = req
	}
	if rm, ok := mapField(m, "response"); ok {
		resp, err := ResponseFromMap(rm)
		if err != nil {
			return nil, prefixPath(err, "response")
		}
		e.Response = resp
	}
	if v, ok := m.Get("link"); ok {
		arr, ok := v.([]any)
		if !ok {
			return nil, badField("link", "expected a list, got %T", v)
		}
		e.Link = make([]Link, 0, len(arr))
		for _, el := range arr {
			lm, ok := el.(*odoc.Map)
			if !ok {
				return nil, badField("link", "expected a list of objects, got %T element", el)
			}
			e.Link = append(e.Link, linkFromMap(lm))
		}
	}
	if sm, ok := mapField(m, "search"); ok {
		e.Search = searchFromMap(sm)
	}
	return e, nil
}

// EntryFromJSON parses a JSON bundle entry.
func EntryFromJSON(data []byte, mode fhirdict.StorageMode) (*BundleEntry, error) {
	m, err := odoc.FromJSON(data)
	if err != nil {
		return nil, &fhirdict.InvalidDocumentError{Msg: "bad JSON", Err: err}
	}
	return EntryFromMap(m, mode)
}

// TypeAndID returns the contained resource's "Patient/123"-style
// identification, or "" when there is no resource or it lacks the fields.
func (e *BundleEntry) TypeAndID() (string, error) {
	if e.Resource == nil {
		return "", nil
	}
	return e.Resource.TypeAndID()
}

// Clone returns a deep copy of the entry.
func (e *BundleEntry) Clone() *BundleEntry {
	c := &BundleEntry{
		FullURL: e.FullURL,
		Link:    slices.Clone(e.Link),
	}
	if e.Resource != nil {
		c.Resource = e.Resource.Clone()
	}
	if e.Request != nil {
		c.Request = e.Request.Clone()
	}
	if e.Response != nil {
		c.Response = e.Response.Clone()
	}
	if e.Search != nil {
		s := *e.Search
		c.Search = &s
	}
	return c
}

func (e *BundleEntry) String() string {
	if e.Resource == nil {
		return "BundleEntry(Empty)"
	}
	ti, err := e.Resource.TypeAndID()
	if err != nil || ti == "" {
		return "BundleEntry(?)"
	}
	return "BundleEntry(" + ti + ")"
}

// Map renders the link as an ordered document.
func (l Link) Map() *odoc.Map {
	m := odoc.New()
	if l.Relation != "" {
		m.Set("relation", l.Relation)
	}
	if l.URL != "" {
		m.Set("url", l.URL)
	}
	return m
}

func linkFromMap(m *odoc.Map) Link {
	var l Link
	l.Relation, _ = stringField(m, "relation")
	l.URL, _ = stringField(m, "url")
	return l
}

// Map renders the search element as an ordered document.
func (s *EntrySearch) Map() *odoc.Map {
	m := odoc.New()
	if s.Mode != "" {
		m.Set("mode", s.Mode)
	}
	if s.Score != "" {
		m.Set("score", s.Score)
	}
	return m
}

func searchFromMap(m *odoc.Map) *EntrySearch {
	s := &EntrySearch{}
	s.Mode, _ = stringField(m, "mode")
	if v, ok := m.Get("score"); ok {
		if n, ok := v.(json.Number); ok {
			s.Score = n
		}
	}
	return s
}
