//go:build xz

package blkproc

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz"
)

// xzCompressor is an optional Compressor built with the "xz" build tag,
// using the same github.com/ulikunitz/xz package the teacher package uses
// for read-side XZ decompression (comp_xz.go).
type xzCompressor struct {
	config xz.WriterConfig
}

func NewXZCompressor() Compressor {
	return &xzCompressor{}
}

func (x *xzCompressor) DeepCopy() Compressor {
	return &xzCompressor{config: x.config}
}

func (x *xzCompressor) Compress(in, out []byte) (int, error) {
	var buf bytes.Buffer
	w, err := x.config.NewWriter(&buf)
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

func (x *xzCompressor) Decompress(in []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func init() {
	RegisterCompressorFactory(XZ, func() Compressor { return NewXZCompressor() })
}
