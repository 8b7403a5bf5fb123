package blkproc

import (
	"encoding/binary"
	"io"
)

// tableReader decodes the compressed-chunk metadata table format written by
// writeMetadataTable. It is the read-side counterpart of that writer and
// is adapted directly from the teacher package's tableReader
// (tablereader.go), generalized to read from any io.ReaderAt instead of a
// Superblock so it can validate a fragment table in isolation.
type tableReader struct {
	r     io.ReaderAt
	comp  Compressor
	offt  int64
	buf   []byte
	order binary.ByteOrder
}

func newTableReader(r io.ReaderAt, comp Compressor, start int64) *tableReader {
	return &tableReader{r: r, comp: comp, offt: start, order: binary.LittleEndian}
}

func (t *tableReader) readBlock() error {
	hdr := make([]byte, 2)
	if _, err := t.r.ReadAt(hdr, t.offt); err != nil {
		return err
	}
	lenN := t.order.Uint16(hdr)
	uncompressed := lenN&0x8000 != 0
	lenN &= 0x7fff

	buf := make([]byte, int(lenN))
	if _, err := t.r.ReadAt(buf, t.offt+2); err != nil {
		return err
	}
	t.offt += 2 + int64(lenN)

	if uncompressed {
		t.buf = buf
		return nil
	}

	dec, err := t.comp.Decompress(buf)
	if err != nil {
		return err
	}
	t.buf = dec
	return nil
}

// Read implements io.Reader, transparently pulling and decoding further
// chunks as the caller consumes data.
func (t *tableReader) Read(p []byte) (int, error) {
	if t.buf == nil {
		if err := t.readBlock(); err != nil {
			return 0, err
		}
	}

	n := copy(p, t.buf)
	if n == len(t.buf) {
		t.buf = nil
	} else {
		t.buf = t.buf[n:]
	}
	return n, nil
}
