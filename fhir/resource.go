package fhir

import (
	"github.com/andreyvit/fhirdict"
	"github.com/andreyvit/fhirdict/odoc"
)

// Resource is a FHIR resource held in a fhirdict container. It exposes the
// container's whole surface plus typed accessors for the two well-known
// fields every resource carries. Accessors read through the container on
// every call and never cache, so they stay correct across transaction-scoped
// mutations.
type Resource struct {
	*fhirdict.Dict
}

// NewResource wraps a document in a resource container. A nil doc makes an
// empty resource.
func NewResource(doc *odoc.Map, mode fhirdict.StorageMode) (*Resource, error) {
	d, err := fhirdict.New(doc, mode)
	if err != nil {
		return nil, err
	}
	return &Resource{d}, nil
}

// ResourceFromJSON parses a JSON resource document.
func ResourceFromJSON(data []byte, mode fhirdict.StorageMode) (*Resource, error) {
	d, err := fhirdict.FromJSON(data, mode)
	if err != nil {
		return nil, err
	}
	return &Resource{d}, nil
}

// ResourceFromEncoded wraps payload bytes produced by the mode's codec. Like
// fhirdict.FromEncoded, the payload is decoded lazily on first access.
func ResourceFromEncoded(payload []byte, mode fhirdict.StorageMode) (*Resource, error) {
	d, err := fhirdict.FromEncoded(payload, mode)
	if err != nil {
		return nil, err
	}
	return &Resource{d}, nil
}

// ResourceType returns the resourceType field, or "" if it is missing or not
// a string.
func (r *Resource) ResourceType() (string, error) {
	return r.stringFieldValue("resourceType")
}

// ID returns the id field, or "" if it is missing or not a string.
func (r *Resource) ID() (string, error) {
	return r.stringFieldValue("id")
}

// TypeAndID returns "Patient/123"-style identification, or "" when either
// part is missing.
func (r *Resource) TypeAndID() (string, error) {
	typ, err := r.ResourceType()
	if err != nil {
		return "", err
	}
	id, err := r.ID()
	if err != nil {
		return "", err
	}
	if typ == "" || id == "" {
		return "", nil
	}
	return typ + "/" + id, nil
}

func (r *Resource) stringFieldValue(key string) (string, error) {
	v, _, err := r.Get(key)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// JSON renders the resource document.
func (r *Resource) JSON() ([]byte, error) {
	m, err := r.Map()
	if err != nil {
		return nil, err
	}
	return odoc.ToJSON(m)
}

// Equal reports whether two resources hold equal documents.
func (r *Resource) Equal(other *Resource) (bool, error) {
	if other == nil {
		return false, nil
	}
	return r.Dict.Equal(other.Dict)
}

// Clone returns an independent copy of the resource.
func (r *Resource) Clone() *Resource {
	return &Resource{r.Dict.Clone()}
}

func (r *Resource) String() string {
	ti, err := r.TypeAndID()
	if err != nil || ti == "" {
		return "Resource(?)"
	}
	return "Resource(" + ti + ")"
}
