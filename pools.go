package fhirdict

import "sync"

// valueBytesPool holds scratch buffers for transient encode/decode work
// (fingerprinting, zstd staging). Payloads that outlive a call are never
// pooled; they must stay immutable.
var valueBytesPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, 65536)
	},
}
