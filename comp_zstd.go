//go:build zstd

package blkproc

import (
	"github.com/klauspost/compress/zstd"
)

// zstdCompressor is an optional Compressor built with the "zstd" build tag,
// mirroring the teacher package's zstd decompressor registration
// (comp_zstd.go) but implementing both directions since the block
// processor needs to compress, not just read existing archives.
type zstdCompressor struct {
	level zstd.EncoderLevel
}

func NewZstdCompressor(level zstd.EncoderLevel) Compressor {
	if level == 0 {
		level = zstd.SpeedDefault
	}
	return &zstdCompressor{level: level}
}

func (z *zstdCompressor) DeepCopy() Compressor {
	return &zstdCompressor{level: z.level}
}

func (z *zstdCompressor) Compress(in, out []byte) (int, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(z.level))
	if err != nil {
		return 0, err
	}
	defer enc.Close()
	compressed := enc.EncodeAll(in, nil)
	if len(compressed) >= len(in) || len(compressed) > len(out) {
		return 0, nil
	}
	return copy(out, compressed), nil
}

func (z *zstdCompressor) Decompress(in []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(in, nil)
}

func init() {
	RegisterCompressorFactory(ZSTD, func() Compressor { return NewZstdCompressor(zstd.SpeedDefault) })
}
