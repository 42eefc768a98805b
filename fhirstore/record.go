package fhirstore

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/andreyvit/fhirdict"
)

const (
	recordFormatV1  = 1
	recordHeaderLen = 10
)

func appendRecord(dst []byte, mode fhirdict.StorageMode, payload []byte) []byte {
	dst = append(dst, recordFormatV1, byte(mode))
	dst = binary.BigEndian.AppendUint64(dst, xxhash.Sum64(payload))
	return append(dst, payload...)
}

// parseRecord validates the envelope and checksum. The returned payload
// aliases raw and is only valid while the Bolt transaction is open.
func parseRecord(raw []byte) ([]byte, fhirdict.StorageMode, error) {
	if len(raw) < recordHeaderLen {
		return nil, 0, corruptRecordf(raw, 0, "record too short")
	}
	if raw[0] != recordFormatV1 {
		return nil, 0, corruptRecordf(raw, 0, "unsupported record format %d", raw[0])
	}
	mode := fhirdict.StorageMode(raw[1])
	if fhirdict.CodecFor(mode) == nil {
		return nil, 0, corruptRecordf(raw, 1, "unknown record codec %d", raw[1])
	}
	payload := raw[recordHeaderLen:]
	if sum := xxhash.Sum64(payload); sum != binary.BigEndian.Uint64(raw[2:recordHeaderLen]) {
		return nil, 0, corruptRecordf(raw, 2, "checksum mismatch")
	}
	return payload, mode, nil
}

func corruptRecordf(raw []byte, off int, format string, args ...any) error {
	return &fhirdict.CorruptPayloadError{
		Payload: slices.Clone(raw),
		Off:     off,
		Msg:     fmt.Sprintf(format, args...),
	}
}
