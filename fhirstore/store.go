// Package fhirstore persists FHIR resources in a Bolt database.
//
// Each resource type gets its own bucket, keyed by resource id. Rows carry a
// one-byte format tag, a one-byte codec tag naming the storage mode the
// payload was written under, an xxhash64 checksum and the compressed payload.
// The per-row codec tag means a store opened under a new mode keeps reading
// rows written under the old one; rows migrate as they are rewritten.
//
// Reads stay lazy: Get verifies the checksum and hands back a compact
// resource whose payload is not decoded until the caller looks inside.
package fhirstore

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	"go.etcd.io/bbolt"

	"github.com/andreyvit/fhirdict"
)

// ErrNotFound is returned by Get for ids that have no stored resource.
var ErrNotFound = errors.New("fhirstore: resource not found")

type Store struct {
	bdb     *bbolt.DB
	mode    fhirdict.StorageMode
	logf    func(format string, args ...any)
	verbose bool
}

type Options struct {
	// Mode is the storage mode new rows are written under. It must resolve
	// to a compressing mode.
	Mode fhirdict.StorageMode

	Logf      func(format string, args ...any)
	Verbose   bool
	IsTesting bool
	MmapSize  int
}

func Open(path string, opt Options) (*Store, error) {
	mode := opt.Mode.Resolve()
	if fhirdict.CodecFor(mode) == nil {
		return nil, fmt.Errorf("fhirstore: %v is not a compressing storage mode", opt.Mode)
	}

	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("fhirstore: %w", err)
	}

	logf := opt.Logf
	if logf == nil {
		logf = func(format string, args ...any) {}
	}
	return &Store{
		bdb:     bdb,
		mode:    mode,
		logf:    logf,
		verbose: opt.Verbose,
	}, nil
}

// Mode returns the storage mode new rows are written under.
func (s *Store) Mode() fhirdict.StorageMode {
	return s.mode
}

// Bolt exposes the underlying Bolt database for maintenance tooling.
func (s *Store) Bolt() *bbolt.DB {
	return s.bdb
}

func (s *Store) Close() {
	err := s.bdb.Close()
	if err != nil {
		panic(fmt.Errorf("fhirstore: closing: %w", err))
	}
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
