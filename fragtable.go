package blkproc

import (
	"encoding/binary"
	"io"
	"sync"
)

// FragmentTable is the external collaborator that records fragment entries
// and serializes the fragment table on close (spec §6). Per spec §3, a
// fragment entry is created (with a provisional, block-local offset) the
// moment a tail fragment is packed into the currently-open fragment block,
// and the inode's fragment location is set right away using the returned
// entry index — the entry's final absolute value is only filled in once
// the containing fragment block has actually been compressed and written
// (ResolveBlock), since only then are its on-disk offset and compressed
// flag known.
type FragmentTable interface {
	// AppendEntry registers a fragment whose bytes live at localOffset
	// within the fragment block currently being packed, with
	// uncompressed length size. Returns a stable entry index.
	AppendEntry(localOffset, size uint32) (entryIndex uint32)

	// ResolveBlock fixes up every entry in entries (previously returned
	// by AppendEntry for fragments packed into the same fragment block)
	// once that block has been written at blockOffset, optionally
	// compressed.
	ResolveBlock(entries []uint32, blockOffset uint64, compressed bool)

	// Count returns the number of entries appended so far.
	Count() int

	// Serialize compresses and writes the finished table to w at w's
	// current position, returning its encoded byte size.
	Serialize(w io.Writer, comp Compressor) (size uint32, err error)
}

type fragTableEntry struct {
	localOffset uint32
	size        uint32
	compressed  bool
	finalOffset uint64
}

// MemFragmentTable is the reference FragmentTable implementation: entries
// accumulate in memory and Serialize frames them through the same
// compressed metadata-table format the teacher package's tableReader
// decodes (see tablewriter.go).
type MemFragmentTable struct {
	mu      sync.Mutex
	entries []fragTableEntry
}

func NewMemFragmentTable() *MemFragmentTable {
	return &MemFragmentTable{}
}

func (t *MemFragmentTable) AppendEntry(localOffset, size uint32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := uint32(len(t.entries))
	t.entries = append(t.entries, fragTableEntry{localOffset: localOffset, size: size})
	return idx
}

func (t *MemFragmentTable) ResolveBlock(entries []uint32, blockOffset uint64, compressed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, idx := range entries {
		e := &t.entries[idx]
		e.finalOffset = blockOffset + uint64(e.localOffset)
		e.compressed = compressed
	}
}

func (t *MemFragmentTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// fragTableOnDiskEntry is the fixed-size binary encoding of one fragment
// table row: 8-byte absolute offset, 4-byte uncompressed size (top bit
// reused as the compressed flag, matching squashfs's own
// size-with-high-bit-as-flag convention used elsewhere in the format).
const fragTableOnDiskEntry = 12

func (t *MemFragmentTable) Serialize(w io.Writer, comp Compressor) (uint32, error) {
	t.mu.Lock()
	entries := make([]fragTableEntry, len(t.entries))
	copy(entries, t.entries)
	t.mu.Unlock()

	raw := make([]byte, len(entries)*fragTableOnDiskEntry)
	order := binary.LittleEndian
	for i, e := range entries {
		off := i * fragTableOnDiskEntry
		order.PutUint64(raw[off:off+8], e.finalOffset)
		size := e.size
		if e.compressed {
			size |= 0x80000000
		}
		order.PutUint32(raw[off+8:off+12], size)
	}

	_, written, err := writeMetadataTable(w, comp, raw)
	if err != nil {
		return 0, err
	}
	return uint32(written), nil
}
