package blkproc

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// zlibCompressor is the default Compressor, backed by klauspost/compress's
// drop-in, faster reimplementation of zlib. Squashfs's "gzip" method is
// actually zlib framing (RFC 1950: a two-byte header plus an Adler-32
// trailer around raw DEFLATE data), matching the teacher package's own
// decompressGzip in comp.go, so this is the format-correct default, not
// merely a convenient one.
type zlibCompressor struct {
	level int
}

// NewGZipCompressor returns the zlib-framed "gzip" Compressor, the one
// NewCompressor builds for GZip (the Writer's default method). level follows compress/zlib level conventions
// (zlib.DefaultCompression if 0).
func NewGZipCompressor(level int) Compressor {
	if level == 0 {
		level = zlib.DefaultCompression
	}
	return &zlibCompressor{level: level}
}

func (z *zlibCompressor) DeepCopy() Compressor {
	return &zlibCompressor{level: z.level}
}

func (z *zlibCompressor) Compress(in, out []byte) (int, error) {
	var buf bytes.Buffer
	buf.Grow(len(in))
	w, err := zlib.NewWriterLevel(&buf, z.level)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(in); err != nil {
		w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	if buf.Len() >= len(in) || buf.Len() > len(out) {
		return 0, nil
	}
	return copy(out, buf.Bytes()), nil
}

func (z *zlibCompressor) Decompress(in []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
