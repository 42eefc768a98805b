package fhirdict

import (
	"fmt"
	"sync/atomic"
)

// StorageMode selects the at-rest representation of a Dict.
type StorageMode int32

const (
	// Default resolves to the process-wide default mode at construction time.
	Default StorageMode = iota

	// Raw keeps the document materialized at all times; no codec is involved.
	Raw

	// Compressed stores the document as order-preserving msgpack wrapped in zstd.
	Compressed

	// CompressedDictOfLists additionally transposes arrays of objects into a
	// columnar layout before msgpack + zstd. Best for documents dominated by
	// homogeneous lists, like FHIR bundles.
	CompressedDictOfLists
)

func (m StorageMode) String() string {
	switch m {
	case Default:
		return "default"
	case Raw:
		return "raw"
	case Compressed:
		return "compressed"
	case CompressedDictOfLists:
		return "compressed_dict_of_lists"
	default:
		return fmt.Sprintf("StorageMode(%d)", int32(m))
	}
}

func (m StorageMode) known() bool {
	return m >= Raw && m <= CompressedDictOfLists
}

// Resolve maps Default to the current process-wide default and returns any
// other mode unchanged.
func (m StorageMode) Resolve() StorageMode {
	if m == Default {
		return DefaultMode()
	}
	return m
}

// defaultMode holds the process-wide default; zero means "never set", which
// reads as Raw.
var defaultMode atomic.Int32

// DefaultMode returns the mode that Default resolves to. It starts as Raw.
func DefaultMode() StorageMode {
	m := StorageMode(defaultMode.Load())
	if m == Default {
		return Raw
	}
	return m
}

// SetDefaultMode changes the process-wide default used by Default. It panics
// on Default itself or an unknown mode. Containers created earlier keep the
// mode they resolved at construction.
func SetDefaultMode(m StorageMode) {
	if !m.known() {
		panic(fmt.Errorf("fhirdict: SetDefaultMode(%v): not a concrete storage mode", m))
	}
	defaultMode.Store(int32(m))
}

// CodecFor returns the codec backing a storage mode, nil for Raw and Default.
func CodecFor(m StorageMode) Codec {
	switch m {
	case Compressed:
		return compressedCodec
	case CompressedDictOfLists:
		return columnarCodec
	default:
		return nil
	}
}
