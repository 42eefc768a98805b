package fhirdict

import (
	"github.com/klauspost/compress/zstd"

	"github.com/andreyvit/fhirdict/odoc"
)

// Shared zstd state; EncodeAll/DecodeAll on these are safe for concurrent use.
var (
	zstdEnc = must(zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1)))
	zstdDec = must(zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(1<<30)))
)

// zstdCodec compresses the payload of an inner codec.
type zstdCodec struct {
	inner msgpackCodec
}

func (c zstdCodec) Name() string {
	return c.inner.Name() + "+zstd"
}

func (c zstdCodec) AppendEncoded(dst []byte, doc *odoc.Map) ([]byte, error) {
	buf := valueBytesPool.Get().([]byte)
	defer func() { valueBytesPool.Put(buf[:0]) }()
	var err error
	buf, err = c.inner.AppendEncoded(buf, doc)
	if err != nil {
		return nil, err
	}
	return zstdEnc.EncodeAll(buf, dst), nil
}

func (c zstdCodec) Decode(data []byte) (*odoc.Map, error) {
	buf := valueBytesPool.Get().([]byte)
	defer func() { valueBytesPool.Put(buf[:0]) }()
	var err error
	buf, err = zstdDec.DecodeAll(data, buf)
	if err != nil {
		return nil, corruptErrf(data, 0, err, "zstd")
	}
	return c.inner.Decode(buf)
}

func (c zstdCodec) DecodeKeys(data []byte) ([]string, error) {
	buf := valueBytesPool.Get().([]byte)
	defer func() { valueBytesPool.Put(buf[:0]) }()
	var err error
	buf, err = zstdDec.DecodeAll(data, buf)
	if err != nil {
		return nil, corruptErrf(data, 0, err, "zstd")
	}
	return c.inner.DecodeKeys(buf)
}
