package blkproc

import (
	"bytes"
	"io"
	"sync"
)

// BlockWriter is the external collaborator that appends finished blocks to
// the output file and reports their physical location. The
// assembler is the only caller; it always calls from the front-end
// goroutine, but a BlockWriter implementation shared across multiple
// Processors (unusual, but not forbidden) must still be safe for
// concurrent use.
type BlockWriter interface {
	// Write appends buffer to the output, applying devblksz padding first
	// when flags has Align set, and returns the offset the payload itself
	// starts at plus the payload length written there (len(buffer)).
	// Alignment padding is not included in written; FileBlockWriter
	// reports it through BytesUsed.
	Write(buffer []byte, flags BlockFlags) (offset uint64, written uint32, err error)

	// LookupDedup returns the location of an existing identical block, if
	// one was already written with this exact (checksum, size,
	// compressed) key and payload.
	LookupDedup(checksum uint32, size int, compressed bool, payload []byte) (offset uint64, written uint32, ok bool, err error)
}

type dedupKey struct {
	checksum   uint32
	size       int
	compressed bool
}

type dedupEntry struct {
	offset  uint64
	written uint32
}

// FileBlockWriter is the reference BlockWriter implementation: it writes
// blocks to an io.WriterAt-and-io.ReaderAt pair (the shape of *os.File) and
// maintains an in-memory whole-block dedup index, confirming every
// candidate hit with a payload read-back before declaring a match, since
// checksum equality alone isn't enough to rule out a collision.
// Alignment padding uses devBlockSize, which callers on Linux can obtain
// from the target's actual device sector size via DeviceBlockSize
// (writer_linux.go).
type FileBlockWriter struct {
	mu sync.Mutex

	w   io.WriterAt
	r   io.ReaderAt
	off uint64

	devBlockSize uint32

	index map[dedupKey][]dedupEntry
}

// NewFileBlockWriter wraps rw (expected to support both io.WriterAt and
// io.ReaderAt — *os.File satisfies both) into a BlockWriter. devBlockSize
// is the alignment granularity used when a block carries the Align flag;
// pass 0 to disable alignment padding.
func NewFileBlockWriter(rw interface {
	io.WriterAt
	io.ReaderAt
}, devBlockSize uint32) *FileBlockWriter {
	return &FileBlockWriter{
		w:            rw,
		r:            rw,
		devBlockSize: devBlockSize,
		index:        make(map[dedupKey][]dedupEntry),
	}
}

func (f *FileBlockWriter) Write(buffer []byte, flags BlockFlags) (uint64, uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if flags.Has(Align) && f.devBlockSize > 0 {
		rem := f.off % uint64(f.devBlockSize)
		if rem != 0 {
			pad := uint64(f.devBlockSize) - rem
			f.off += pad
		}
	}

	offset := f.off
	if _, err := f.w.WriteAt(buffer, int64(offset)); err != nil {
		return 0, 0, newStatusError(StatusIO, err)
	}
	f.off += uint64(len(buffer))
	return offset, uint32(len(buffer)), nil
}

func (f *FileBlockWriter) LookupDedup(checksum uint32, size int, compressed bool, payload []byte) (uint64, uint32, bool, error) {
	f.mu.Lock()
	candidates := f.index[dedupKey{checksum, size, compressed}]
	f.mu.Unlock()

	for _, c := range candidates {
		buf := make([]byte, c.written)
		if _, err := f.r.ReadAt(buf, int64(c.offset)); err != nil {
			return 0, 0, false, newStatusError(StatusIO, err)
		}
		if bytes.Equal(buf, payload) {
			return c.offset, c.written, true, nil
		}
	}
	return 0, 0, false, nil
}

// Record registers a freshly written block in the dedup index so future
// identical blocks can be deduplicated against it. The assembler calls
// this after every data-block Write that was not a dedup hit; fragment
// blocks are not recorded.
func (f *FileBlockWriter) Record(checksum uint32, size int, compressed bool, offset uint64, written uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := dedupKey{checksum, size, compressed}
	f.index[key] = append(f.index[key], dedupEntry{offset: offset, written: written})
}

// BytesUsed returns the current write position, including any alignment
// padding applied so far.
func (f *FileBlockWriter) BytesUsed() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.off
}
