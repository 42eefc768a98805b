package fhirdict

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRawPayload is returned when an operation needs an encoded payload but
// the storage mode is Raw, which has no codec.
var ErrRawPayload = errors.New("fhirdict: Raw storage mode has no encoded payload form")

// CorruptPayloadError reports a payload that cannot be decoded: truncated or
// garbage bytes, a bad checksum, or a malformed structure inside an otherwise
// readable envelope. The message includes a truncated hex dump of the data.
type CorruptPayloadError struct {
	Payload []byte
	Off     int
	Err     error
	Msg     string
}

func corruptErrf(payload []byte, off int, err error, format string, args ...any) error {
	return &CorruptPayloadError{payload, off, err, fmt.Sprintf(format, args...)}
}

func (e *CorruptPayloadError) Unwrap() error {
	return e.Err
}

func (e *CorruptPayloadError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Payload)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("corrupt payload: %s: %v: (%d) %x", e.Msg, e.Err, n, e.Payload)
		} else {
			return fmt.Sprintf("corrupt payload: %s: (%d) %x", e.Msg, n, e.Payload)
		}
	} else {
		p, s := e.Payload[:prefixLen], e.Payload[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("corrupt payload: %s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("corrupt payload: %s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// InvalidDocumentError reports input that cannot become a document: a value
// outside the document value domain, a malformed number token, or bad JSON.
// Path locates the offending value within the document, when known.
type InvalidDocumentError struct {
	Path string
	Msg  string
	Err  error
}

func invalidDocErrf(path string, err error, format string, args ...any) error {
	return &InvalidDocumentError{path, fmt.Sprintf(format, args...), err}
}

func (e *InvalidDocumentError) Unwrap() error {
	return e.Err
}

func (e *InvalidDocumentError) Error() string {
	var buf strings.Builder
	buf.WriteString("invalid document")
	if e.Path != "" {
		buf.WriteString(" at ")
		buf.WriteString(e.Path)
	}
	buf.WriteString(": ")
	buf.WriteString(e.Msg)
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// pathify prepends a path segment to an InvalidDocumentError bubbling up
// through nested containers, so the final Path reads root-first.
func pathify(err error, seg string) error {
	var e *InvalidDocumentError
	if errors.As(err, &e) {
		switch {
		case e.Path == "":
			e.Path = seg
		case strings.HasPrefix(e.Path, "["):
			e.Path = seg + e.Path
		default:
			e.Path = seg + "." + e.Path
		}
	}
	return err
}

// ScopeStateError reports misuse of a transaction scope handle, such as
// calling any method after Close. It is panicked, not returned: scope
// lifetime bugs are programmer errors.
type ScopeStateError struct {
	Op string
}

func (e *ScopeStateError) Error() string {
	return fmt.Sprintf("fhirdict: %s on a released transaction scope", e.Op)
}
