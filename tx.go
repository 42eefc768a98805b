package fhirdict

import (
	"github.com/andreyvit/fhirdict/odoc"
)

// Tx is a handle on an open transaction scope of a Dict. While at least one
// scope is open the container stays materialized, so reads and writes work
// on the live document with no codec churn; the outermost Close re-encodes
// compressing modes exactly once. Scopes nest freely: each Begin pairs with
// exactly one Close.
//
// A Tx belongs to the flow of code that opened it and must not be shared
// between goroutines. Using a Tx after Close panics with *ScopeStateError.
// There is no rollback: mutations apply to the live document immediately.
type Tx struct {
	d    *Dict
	done bool
}

// Begin opens a transaction scope, decoding the payload if this is the first
// open scope on a compact container. The scope must be released with Close.
func (d *Dict) Begin() (*Tx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.materializeLocked(); err != nil {
		return nil, err
	}
	d.pins++
	return &Tx{d: d}, nil
}

// Transaction runs fn inside a scope and releases the scope on every path,
// including panics and errors. When fn succeeds, the outermost re-encode
// error (if any) is returned; when fn fails, its error is returned and the
// document keeps any mutations made before the failure.
func (d *Dict) Transaction(fn func(tx *Tx) error) error {
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer tx.discard()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Close()
}

// Close releases the scope. Closing the outermost scope of a compressing
// container re-encodes the document; if that fails, the error is returned
// and the container stays materialized until something encodes it again.
// A second Close on the same Tx panics with *ScopeStateError.
func (tx *Tx) Close() error {
	d := tx.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if tx.done {
		panic(&ScopeStateError{Op: "Close"})
	}
	tx.done = true
	if d.pins <= 0 || d.doc == nil {
		panic("internal error: unbalanced transaction scope")
	}
	d.pins--
	if d.pins == 0 && d.mode != Raw {
		return d.compactLocked()
	}
	return nil
}

// discard releases the scope if Close has not run, swallowing the re-encode
// error: it is the cleanup path of Transaction, where the primary error (or
// panic) already owns the outcome.
func (tx *Tx) discard() {
	if !tx.done {
		_ = tx.Close()
	}
}

func (tx *Tx) guard(op string) *Dict {
	if tx.done {
		panic(&ScopeStateError{Op: op})
	}
	return tx.d
}

// Get returns the live value stored under a top-level key. Unlike Dict.Get
// it does not copy: inside a scope the caller owns the document and may
// mutate nested values directly.
func (tx *Tx) Get(key string) (any, bool) {
	d := tx.guard("Get")
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Get(key)
}

// Set stores a normalized deep copy of value under a top-level key.
func (tx *Tx) Set(key string, value any) error {
	d := tx.guard("Set")
	norm, err := normalizeValue(value)
	if err != nil {
		return pathify(err, key)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc.Set(key, norm)
	return nil
}

// Delete removes a top-level key, reporting whether it was present.
func (tx *Tx) Delete(key string) bool {
	d := tx.guard("Delete")
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.doc.Delete(key)
	return ok
}

// Keys returns the top-level keys in document order.
func (tx *Tx) Keys() []string {
	d := tx.guard("Keys")
	d.mu.Lock()
	defer d.mu.Unlock()
	return odoc.Keys(d.doc)
}

// Has reports whether a top-level key is present.
func (tx *Tx) Has(key string) bool {
	d := tx.guard("Has")
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.doc.Get(key)
	return ok
}

// Len returns the number of top-level keys.
func (tx *Tx) Len() int {
	d := tx.guard("Len")
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Len()
}

// Doc returns the live document for direct traversal and mutation. It stays
// valid until the outermost scope closes. Values placed into it must stay
// within the document value domain, or the closing re-encode will fail.
func (tx *Tx) Doc() *odoc.Map {
	d := tx.guard("Doc")
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc
}
