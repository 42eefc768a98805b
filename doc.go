/*
Package fhirdict implements compressed storage containers for FHIR resources
(and any other JSON-like documents): a Dict keeps a document either
materialized in memory or as a compact encoded payload, and moves between
the two forms on demand.

We implement:

1. Storage modes: raw (always materialized), compressed (msgpack + zstd),
and compressed dict-of-lists (columnar transposition of lists of objects,
then msgpack + zstd). A process-wide default applies when a mode is not
given explicitly.

2. Transaction scopes, pinning a container in materialized form across
nested sections of code, so that a batch of reads and writes costs at most
one decode on entry and one encode on the outermost exit.

3. Round-trip fidelity: key order and JSON number tokens survive
encode/decode byte for byte, including values like "1.50", "1e2" and
integers beyond 64 bits.

Documents are ordered maps from the odoc subpackage; values are nil, bool,
string, json.Number, []any and *odoc.Map. Construction deep-copies and
normalizes input, so containers never alias caller-owned data.

# Technical Details

**Payload encoding.**
Documents encode as msgpack: maps in insertion order with string keys,
arrays, strings, bools, nil, and numbers. A number whose token is the
canonical rendering of an int64, uint64 or float64 becomes a native msgpack
number; any other token travels as a msgpack bin value holding the literal
text. The document value domain has no raw byte strings, so the bin code
space is free for this.

**Columnar transposition.**
In dict-of-lists mode, an array whose elements are all objects encodes as a
msgpack map with integer keys (ordinary document maps only ever have string
keys, so the first key's type disambiguates):

1. 0: row count.
2. 1: key table (array of strings, union of row keys in first-seen order).
3. 2: per-row arrays of indexes into the key table, preserving each row's
own key order and which keys it carries.
4. 3: one ragged column per key table entry, holding the values of rows
that carry that key, in row order.

This dedupes repeated keys across homogeneous arrays (FHIR name, telecom,
entry, ...) ahead of zstd.

**Compression.**
The msgpack payload is wrapped in zstd (klauspost/compress) at the default
level. Payload bytes are immutable once built, so clones and equality
checks can share them.
*/
package fhirdict
