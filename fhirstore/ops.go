package fhirstore

import (
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/andreyvit/fhirdict"
	"github.com/andreyvit/fhirdict/fhir"
)

// Put writes a resource under its resourceType bucket, keyed by id. A
// resource already encoded under the store's mode is written as is; anything
// else is re-encoded.
func (s *Store) Put(res *fhir.Resource) error {
	typ, id, err := identify(res)
	if err != nil {
		return err
	}
	record, err := s.encodeRecord(res)
	if err != nil {
		return err
	}
	err = s.bdb.Update(func(btx *bbolt.Tx) error {
		return putRecord(btx, typ, id, record)
	})
	if err != nil {
		return err
	}
	if s.verbose {
		s.logf("store: PUT %s/%s (%d bytes)", typ, id, len(record))
	}
	return nil
}

// PutBundle stores every entry resource in a single Bolt transaction and
// returns the number of resources written. Entries without a resource are
// skipped.
func (s *Store) PutBundle(b *fhir.Bundle) (int, error) {
	type row struct {
		typ, id string
		record  []byte
	}
	rows := make([]row, 0, len(b.Entry))
	for i, e := range b.Entry {
		if e.Resource == nil {
			continue
		}
		typ, id, err := identify(e.Resource)
		if err != nil {
			return 0, fmt.Errorf("entry[%d]: %w", i, err)
		}
		record, err := s.encodeRecord(e.Resource)
		if err != nil {
			return 0, fmt.Errorf("entry[%d]: %w", i, err)
		}
		rows = append(rows, row{typ, id, record})
	}
	err := s.bdb.Update(func(btx *bbolt.Tx) error {
		for _, r := range rows {
			if err := putRecord(btx, r.typ, r.id, r.record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if s.verbose {
		s.logf("store: PUTBUNDLE %d resources", len(rows))
	}
	return len(rows), nil
}

func putRecord(btx *bbolt.Tx, typ, id string, record []byte) error {
	b, err := btx.CreateBucketIfNotExists(unsafeBytesFromString(typ))
	if err != nil {
		return fmt.Errorf("fhirstore: %w", err)
	}
	err = b.Put(unsafeBytesFromString(id), record)
	if err != nil {
		return fmt.Errorf("fhirstore: %w", err)
	}
	return nil
}

func (s *Store) encodeRecord(res *fhir.Resource) ([]byte, error) {
	if res.Mode() == s.mode {
		payload, mode, err := res.Encoded()
		if err != nil {
			return nil, err
		}
		return appendRecord(nil, mode, payload), nil
	}
	doc, err := res.Map()
	if err != nil {
		return nil, err
	}
	payload, err := fhirdict.CodecFor(s.mode).AppendEncoded(nil, doc)
	if err != nil {
		return nil, err
	}
	return appendRecord(nil, s.mode, payload), nil
}

func identify(res *fhir.Resource) (typ, id string, err error) {
	typ, err = res.ResourceType()
	if err != nil {
		return "", "", err
	}
	id, err = res.ID()
	if err != nil {
		return "", "", err
	}
	if typ == "" || id == "" {
		return "", "", fmt.Errorf("fhirstore: resource must carry resourceType and id, got %q/%q", typ, id)
	}
	return typ, id, nil
}

// Get loads one resource. The result is compact: the payload is verified
// against the stored checksum but not decoded until the caller reads it.
func (s *Store) Get(resourceType, id string) (*fhir.Resource, error) {
	var res *fhir.Resource
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		raw := getRaw(btx, resourceType, id)
		if raw == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, resourceType, id)
		}
		payload, mode, err := parseRecord(raw)
		if err != nil {
			return err
		}
		res, err = fhir.ResourceFromEncoded(payload, mode)
		return err
	})
	if err != nil {
		if s.verbose && errors.Is(err, ErrNotFound) {
			s.logf("store: GET.NOTFOUND %s/%s", resourceType, id)
		}
		return nil, err
	}
	if s.verbose {
		s.logf("store: GET %s/%s", resourceType, id)
	}
	return res, nil
}

func getRaw(btx *bbolt.Tx, resourceType, id string) []byte {
	b := btx.Bucket(unsafeBytesFromString(resourceType))
	if b == nil {
		return nil
	}
	return b.Get(unsafeBytesFromString(id))
}

// Delete removes one resource and reports whether it existed.
func (s *Store) Delete(resourceType, id string) (bool, error) {
	var found bool
	err := s.bdb.Update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(unsafeBytesFromString(resourceType))
		if b == nil || b.Get(unsafeBytesFromString(id)) == nil {
			return nil
		}
		found = true
		return b.Delete(unsafeBytesFromString(id))
	})
	if err != nil {
		return false, fmt.Errorf("fhirstore: %w", err)
	}
	if s.verbose {
		if found {
			s.logf("store: DELETE %s/%s", resourceType, id)
		} else {
			s.logf("store: DELETE.NOOP %s/%s", resourceType, id)
		}
	}
	return found, nil
}

// Count returns the number of stored resources of one type.
func (s *Store) Count(resourceType string) (int, error) {
	var n int
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		if b := btx.Bucket(unsafeBytesFromString(resourceType)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("fhirstore: %w", err)
	}
	return n, nil
}

// ResourceTypes lists the resource types that have a bucket, in key order.
func (s *Store) ResourceTypes() ([]string, error) {
	var types []string
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		return btx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			types = append(types, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("fhirstore: %w", err)
	}
	return types, nil
}

// ForEach visits every stored resource of one type in id order. An error
// from fn stops the walk and is returned.
func (s *Store) ForEach(resourceType string, fn func(id string, res *fhir.Resource) error) error {
	return s.bdb.View(func(btx *bbolt.Tx) error {
		b := btx.Bucket(unsafeBytesFromString(resourceType))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			payload, mode, err := parseRecord(v)
			if err != nil {
				return err
			}
			res, err := fhir.ResourceFromEncoded(payload, mode)
			if err != nil {
				return err
			}
			return fn(string(k), res)
		})
	})
}
