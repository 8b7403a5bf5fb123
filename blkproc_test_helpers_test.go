package blkproc_test

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/go-sqfs/blkproc"
)

// memDest is a growable in-memory BlockDest, standing in for an *os.File in
// tests the way the teacher package's mockReader stands in for one.
type memDest struct {
	mu   sync.Mutex
	data []byte
}

func (m *memDest) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := int(off) + len(p)
	if end > len(m.data) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[int(off):end], p)
	return len(p), nil
}

func (m *memDest) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(off) >= len(m.data) {
		return 0, io.EOF
	}
	n := copy(p, m.data[int(off):])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memDest) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

// errInjectCompressor wraps the default zlib ("gzip") Compressor and fails on the
// Nth call to Compress across every DeepCopy sharing its counter, letting a
// test pin down exactly which block in submission order sees the failure
// (spec §8 scenario 5). Sharing the counter across copies is a test-only
// liberty: it lets "the 7th block" mean the 7th block ever compressed,
// rather than the 7th compressed by whichever worker happens to get it.
type errInjectCompressor struct {
	calls  *int64
	failAt int64
	err    error
	inner  blkproc.Compressor
}

func newErrInjectCompressor(failAt int64, err error) *errInjectCompressor {
	var n int64
	return &errInjectCompressor{calls: &n, failAt: failAt, err: err, inner: blkproc.NewGZipCompressor(0)}
}

func (c *errInjectCompressor) DeepCopy() blkproc.Compressor {
	return &errInjectCompressor{calls: c.calls, failAt: c.failAt, err: c.err, inner: c.inner.DeepCopy()}
}

func (c *errInjectCompressor) Compress(in, out []byte) (int, error) {
	n := atomic.AddInt64(c.calls, 1)
	if n == c.failAt {
		return 0, c.err
	}
	return c.inner.Compress(in, out)
}

func (c *errInjectCompressor) Decompress(in []byte) ([]byte, error) {
	return c.inner.Decompress(in)
}

// allZero reports whether every byte of b is zero, used to confirm that
// test data fed through the ordinary Append path is all zero, as a cross
// check that Append still writes such data as a regular block rather than
// counting it as sparse the way AppendSparse does.
func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
