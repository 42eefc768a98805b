package fhirdict

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/andreyvit/fhirdict/odoc"
)

// Dict is a document container that keeps its content either materialized
// (an ordered map in memory) or compact (encoded payload bytes plus a cached
// top-level key list), and never both. Raw containers are always
// materialized; compressing containers re-encode whenever no transaction
// scope is open.
//
// All methods are safe for concurrent use. Read accessors on a compact
// container decode transiently and leave it compact; open a transaction
// scope to batch work against a single decode.
type Dict struct {
	mode StorageMode

	mu      sync.Mutex
	doc     *odoc.Map // materialized document; nil while compact
	payload []byte    // encoded document; immutable once set
	keys    []string  // cached top-level keys of the compact form
	pins    int
	decodes int64
	encodes int64
}

// Stats reports codec work done by a container since construction.
type Stats struct {
	Decodes int64 // payload decode attempts
	Encodes int64 // payload encode attempts
	Pins    int   // currently open transaction scopes
	Compact bool  // true when the document is held in encoded form
}

// New builds a container around a deep, normalized copy of doc; the caller
// keeps ownership of doc. A nil doc makes an empty container. Compressing
// modes encode immediately.
func New(doc *odoc.Map, mode StorageMode) (*Dict, error) {
	mode = mode.Resolve()
	if !mode.known() {
		return nil, fmt.Errorf("fhirdict: unknown storage mode %v", mode)
	}
	norm, err := normalizeDoc(doc)
	if err != nil {
		return nil, err
	}
	return newFromOwned(norm, mode)
}

// newFromOwned wraps an already-normalized document tree that nothing else
// references.
func newFromOwned(doc *odoc.Map, mode StorageMode) (*Dict, error) {
	d := &Dict{mode: mode, doc: doc}
	if d.mode != Raw {
		if err := d.compactLocked(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// FromJSON parses a JSON object and wraps it in a container.
func FromJSON(data []byte, mode StorageMode) (*Dict, error) {
	mode = mode.Resolve()
	if !mode.known() {
		return nil, fmt.Errorf("fhirdict: unknown storage mode %v", mode)
	}
	doc, err := odoc.FromJSON(data)
	if err != nil {
		return nil, invalidDocErrf("", err, "bad JSON")
	}
	return newFromOwned(doc, mode)
}

// FromEncoded wraps payload bytes produced earlier by the same mode's codec.
// The payload is not validated here: the first operation that needs the
// document decodes it and reports *CorruptPayloadError if it is unreadable.
// Raw mode has no codec, so it returns ErrRawPayload.
func FromEncoded(payload []byte, mode StorageMode) (*Dict, error) {
	mode = mode.Resolve()
	if CodecFor(mode) == nil {
		if !mode.known() {
			return nil, fmt.Errorf("fhirdict: unknown storage mode %v", mode)
		}
		return nil, ErrRawPayload
	}
	p := slices.Clone(payload)
	if p == nil {
		p = []byte{}
	}
	return &Dict{mode: mode, payload: p}, nil
}

// Mode returns the storage mode resolved at construction.
func (d *Dict) Mode() StorageMode {
	return d.mode
}

// Stats returns a snapshot of the container's counters.
func (d *Dict) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Decodes: d.decodes,
		Encodes: d.encodes,
		Pins:    d.pins,
		Compact: d.doc == nil,
	}
}

// Map returns a deep copy of the document. A compact container decodes
// transiently and stays compact; call it inside a transaction scope when
// combining it with other accesses.
func (d *Dict) Map() (*odoc.Map, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc != nil {
		return odoc.Copy(d.doc), nil
	}
	return d.decodeLocked()
}

// Get returns a deep copy of the value stored under a top-level key.
func (d *Dict) Get(key string) (any, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc != nil {
		v, ok := d.doc.Get(key)
		if !ok {
			return nil, false, nil
		}
		return odoc.CopyValue(v), true, nil
	}
	doc, err := d.decodeLocked()
	if err != nil {
		return nil, false, err
	}
	v, ok := doc.Get(key)
	return v, ok, nil
}

// Keys returns the top-level keys in document order. On a compact container
// this uses the cached key list (derived without building the value tree on
// first use) rather than a full decode.
func (d *Dict) Keys() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc != nil {
		return odoc.Keys(d.doc), nil
	}
	keys, err := d.compactKeysLocked()
	if err != nil {
		return nil, err
	}
	return slices.Clone(keys), nil
}

// Has reports whether a top-level key is present, without a full decode on
// compact containers.
func (d *Dict) Has(key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc != nil {
		_, ok := d.doc.Get(key)
		return ok, nil
	}
	keys, err := d.compactKeysLocked()
	if err != nil {
		return false, err
	}
	return slices.Contains(keys, key), nil
}

// Len returns the number of top-level keys.
func (d *Dict) Len() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc != nil {
		return d.doc.Len(), nil
	}
	keys, err := d.compactKeysLocked()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Replace swaps the whole document for a deep, normalized copy of doc.
// Outside a transaction scope, compressing modes re-encode immediately;
// inside one, the new document stays materialized until the outermost Close.
func (d *Dict) Replace(doc *odoc.Map) error {
	norm, err := normalizeDoc(doc)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc, d.payload, d.keys = norm, nil, nil
	if d.pins == 0 && d.mode != Raw {
		return d.compactLocked()
	}
	return nil
}

// Equal reports whether two containers hold equal documents, ignoring key
// order; number tokens compare by literal text. Compact containers with
// identical payload bytes short-circuit without decoding.
func (d *Dict) Equal(other *Dict) (bool, error) {
	if d == other {
		return true, nil
	}
	if other == nil {
		return false, nil
	}
	if pa := d.payloadRef(); pa != nil {
		if pb := other.payloadRef(); pb != nil && d.mode == other.mode && bytes.Equal(pa, pb) {
			return true, nil
		}
	}
	a, err := d.docSnapshot()
	if err != nil {
		return false, err
	}
	b, err := other.docSnapshot()
	if err != nil {
		return false, err
	}
	return odoc.Equal(a, b), nil
}

// Clone returns an independent container with the same mode and content.
// Compact state is shared structurally (payloads are immutable); a
// materialized document is deep-copied, and compressing modes re-encode it.
// Counters are not inherited: they describe the clone's own codec work.
func (d *Dict) Clone() *Dict {
	d.mu.Lock()
	if d.doc == nil {
		c := &Dict{mode: d.mode, payload: d.payload, keys: d.keys}
		d.mu.Unlock()
		return c
	}
	doc := odoc.Copy(d.doc)
	d.mu.Unlock()

	c := &Dict{mode: d.mode, doc: doc}
	if c.mode != Raw {
		if err := c.compactLocked(); err != nil {
			panic(fmt.Errorf("fhirdict: failed to encode cloned document: %w", err))
		}
	}
	return c
}

// Fingerprint returns xxhash64 of the canonical msgpack encoding of the
// document. Unlike Equal it is order- and token-sensitive: two documents
// fingerprint equal only if they match byte for byte after decoding,
// regardless of storage mode. The transient encode is not counted in Stats.
func (d *Dict) Fingerprint() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc := d.doc
	if doc == nil {
		var err error
		doc, err = d.decodeLocked()
		if err != nil {
			return 0, err
		}
	}
	buf := valueBytesPool.Get().([]byte)
	defer func() { valueBytesPool.Put(buf[:0]) }()
	var err error
	buf, err = canonicalCodec.AppendEncoded(buf, doc)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(buf), nil
}

// Encoded returns the container's payload bytes and concrete mode. Compact
// containers return their existing payload without work; materialized
// compressing containers encode transiently. Raw containers return
// ErrRawPayload. The returned bytes are immutable and must not be modified.
func (d *Dict) Encoded() ([]byte, StorageMode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return d.payload, d.mode, nil
	}
	codec := CodecFor(d.mode)
	if codec == nil {
		return nil, d.mode, ErrRawPayload
	}
	d.encodes++
	payload, err := codec.AppendEncoded(nil, d.doc)
	if err != nil {
		return nil, d.mode, err
	}
	return payload, d.mode, nil
}

// String describes the container shape; document content is deliberately
// not included.
func (d *Dict) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc != nil {
		return fmt.Sprintf("Dict<%v>(%d keys)", d.mode, d.doc.Len())
	}
	return fmt.Sprintf("Dict<%v>(%d bytes compact)", d.mode, len(d.payload))
}

// decodeLocked decodes the payload into a fresh tree without changing the
// container state. Caller holds d.mu; the container must be compact.
func (d *Dict) decodeLocked() (*odoc.Map, error) {
	codec := CodecFor(d.mode)
	if codec == nil || d.doc != nil {
		panic("internal error: decode of a materialized container")
	}
	d.decodes++
	return codec.Decode(d.payload)
}

// materializeLocked installs the decoded document, switching the container
// to materialized state. Caller holds d.mu.
func (d *Dict) materializeLocked() error {
	if d.doc != nil {
		return nil
	}
	doc, err := d.decodeLocked()
	if err != nil {
		return err
	}
	d.doc, d.payload, d.keys = doc, nil, nil
	return nil
}

// compactLocked encodes the document, switching the container to compact
// state and snapshotting its key list. Caller holds d.mu (or owns d
// exclusively).
func (d *Dict) compactLocked() error {
	codec := CodecFor(d.mode)
	if codec == nil || d.doc == nil {
		panic("internal error: compact without a codec or document")
	}
	d.encodes++
	payload, err := codec.AppendEncoded(nil, d.doc)
	if err != nil {
		return err
	}
	d.payload = payload
	d.keys = odoc.Keys(d.doc)
	d.doc = nil
	return nil
}

// compactKeysLocked returns the cached top-level key list of a compact
// container, deriving it from the payload on first use.
func (d *Dict) compactKeysLocked() ([]string, error) {
	if d.keys == nil {
		keys, err := CodecFor(d.mode).DecodeKeys(d.payload)
		if err != nil {
			return nil, err
		}
		d.keys = keys
	}
	return d.keys, nil
}

// payloadRef returns the immutable payload bytes if the container is
// compact, nil otherwise. Safe to read after unlocking: payloads are
// replaced wholesale, never modified in place.
func (d *Dict) payloadRef() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc != nil {
		return nil
	}
	return d.payload
}

// docSnapshot returns a tree the caller may use without locking: a deep copy
// when materialized, a fresh decode when compact.
func (d *Dict) docSnapshot() (*odoc.Map, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc != nil {
		return odoc.Copy(d.doc), nil
	}
	return d.decodeLocked()
}
