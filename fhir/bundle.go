package fhir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/andreyvit/fhirdict"
	"github.com/andreyvit/fhirdict/odoc"
)

// Bundle is a FHIR bundle: a typed list of entries plus the bundle-level
// metadata servers attach to search and transaction results. Total is a
// pointer because FHIR distinguishes "zero matches" from "total not
// reported".
type Bundle struct {
	ID        string
	Type      string
	Timestamp time.Time
	Total     *int
	Link      []Link
	Entry     []*BundleEntry
}

// Map renders the bundle as an ordered document in the canonical element
// order, with empty elements pruned. The resourceType field is always
// emitted.
func (b *Bundle) Map() (*odoc.Map, error) {
	m := odoc.New()
	m.Set("resourceType", "Bundle")
	if b.ID != "" {
		m.Set("id", b.ID)
	}
	if b.Type != "" {
		m.Set("type", b.Type)
	}
	if !b.Timestamp.IsZero() {
		m.Set("timestamp", renderInstant(b.Timestamp))
	}
	if b.Total != nil {
		m.Set("total", json.Number(strconv.Itoa(*b.Total)))
	}
	if len(b.Link) > 0 {
		links := make([]any, 0, len(b.Link))
		for _, l := range b.Link {
			links = append(links, l.Map())
		}
		m.Set("link", links)
	}
	if len(b.Entry) > 0 {
		entries := make([]any, 0, len(b.Entry))
		for _, e := range b.Entry {
			em, err := e.Map()
			if err != nil {
				return nil, err
			}
			entries = append(entries, em)
		}
		m.Set("entry", entries)
	}
	return PruneEmpty(m), nil
}

// JSON renders the bundle document.
func (b *Bundle) JSON() ([]byte, error) {
	m, err := b.Map()
	if err != nil {
		return nil, err
	}
	return odoc.ToJSON(m)
}

// BundleFromMap parses a bundle document. The storage mode applies to every
// contained resource.
func BundleFromMap(m *odoc.Map, mode fhirdict.StorageMode) (*Bundle, error) {
	if rt, ok := stringField(m, "resourceType"); ok && rt != "Bundle" {
		return nil, badField("resourceType", "expected %q, got %q", "Bundle", rt)
	}
	b := &Bundle{}
	b.ID, _ = stringField(m, "id")
	b.Type, _ = stringField(m, "type")
	var err error
	b.Timestamp, err = timeField(m, "timestamp")
	if err != nil {
		return nil, err
	}
	if v, ok := m.Get("total"); ok {
		n, ok := v.(json.Number)
		if !ok {
			return nil, badField("total", "expected a number, got %T", v)
		}
		total, err := strconv.Atoi(string(n))
		if err != nil {
			return nil, badField("total", "bad count %q", string(n))
		}
		b.Total = &total
	}
	if v, ok := m.Get("link"); ok {
		arr, ok := v.([]any)
		if !ok {
			return nil, badField("link", "expected a list, got %T", v)
		}
		b.Link = make([]Link, 0, len(arr))
		for _, el := range arr {
			lm, ok := el.(*odoc.Map)
			if !ok {
				return nil, badField("link", "expected a list of objects, got %T element", el)
			}
			b.Link = append(b.Link, linkFromMap(lm))
		}
	}
	if v, ok := m.Get("entry"); ok {
		arr, ok := v.([]any)
		if !ok {
			return nil, badField("entry", "expected a list, got %T", v)
		}
		b.Entry = make([]*BundleEntry, 0, len(arr))
		for i, el := range arr {
			em, ok := el.(*odoc.Map)
			if !ok {
				return nil, badField("entry", "expected a list of objects, got %T element", el)
			}
			e, err := EntryFromMap(em, mode)
			if err != nil {
				return nil, prefixPath(prefixPath(err, "["+strconv.Itoa(i)+"]"), "entry")
			}
			b.Entry = append(b.Entry, e)
		}
	}
	return b, nil
}

// BundleFromJSON parses a JSON bundle.
func BundleFromJSON(data []byte, mode fhirdict.StorageMode) (*Bundle, error) {
	m, err := odoc.FromJSON(data)
	if err != nil {
		return nil, &fhirdict.InvalidDocumentError{Msg: "bad JSON", Err: err}
	}
	return BundleFromMap(m, mode)
}

// AddEntry appends entries to the bundle.
func (b *Bundle) AddEntry(entries ...*BundleEntry) {
	b.Entry = append(b.Entry, entries...)
}

// Clone returns a deep copy of the bundle.
func (b *Bundle) Clone() *Bundle {
	c := &Bundle{
		ID:        b.ID,
		Type:      b.Type,
		Timestamp: b.Timestamp,
	}
	if b.Total != nil {
		total := *b.Total
		c.Total = &total
	}
	if len(b.Link) > 0 {
		c.Link = make([]Link, len(b.Link))
		copy(c.Link, b.Link)
	}
	if len(b.Entry) > 0 {
		c.Entry = make([]*BundleEntry, len(b.Entry))
		for i, e := range b.Entry {
			c.Entry[i] = e.Clone()
		}
	}
	return c
}

func (b *Bundle) String() string {
	typ := b.Type
	if typ == "" {
		typ = "?"
	}
	return fmt.Sprintf("Bundle(%s, %d entries)", typ, len(b.Entry))
}
