package blkproc

import "sync"

// BlockRecord is one data-block location/size pair recorded against an
// inode, in strictly increasing block-index order (spec §3/§5).
type BlockRecord struct {
	CompressedSize uint32
	OnDiskOffset   uint64
	Sparse         bool
}

// fragLocationUnset mirrors the reference implementation's sentinel
// fragment location (_examples/original_source/.../frontend.c:
// sqfs_inode_set_frag_location(*inode, 0xFFFFFFFF, 0xFFFFFFFF)), used so a
// file that never produces a fragment still has a well-defined "no
// fragment" reference rather than a zero value that could be confused with
// a real block 0 / offset 0 fragment.
const fragLocationUnset = 0xFFFFFFFF

// FileInode is the opaque per-file metadata record the splitter allocates
// and the assembler updates (spec §3: "Inode (opaque)"). The block
// processor only ever touches it through the accessors below; anything
// else (permissions, directory linkage, ...) belongs to the caller's own
// archive-assembly layer, which is out of this module's scope.
type FileInode struct {
	mu sync.Mutex

	Type Type

	fileSize uint64

	blocks []BlockRecord

	fragBlockIndex uint32
	fragOffset     uint32
}

// NewFileInode allocates an inode for a regular file, with its fragment
// location set to the "no fragment" sentinel as the reference
// implementation does in sqfs_block_processor_begin_file.
func NewFileInode() *FileInode {
	return &FileInode{
		Type:           FileType,
		fragBlockIndex: fragLocationUnset,
		fragOffset:     fragLocationUnset,
	}
}

// GetFileSize returns the number of bytes appended to this file so far.
func (i *FileInode) GetFileSize() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.fileSize
}

// SetFileSize overwrites the recorded file size. The splitter calls this
// with the running total after every Append.
func (i *FileInode) SetFileSize(n uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.fileSize = n
}

// SetFragLocation records which fragment block (and offset within it) the
// file's tail fragment landed in, or is re-pointed to after dedup.
func (i *FileInode) SetFragLocation(blockIndex, offset uint32) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.fragBlockIndex = blockIndex
	i.fragOffset = offset
}

// FragLocation returns the fragment block index and in-block offset, or
// (fragLocationUnset, fragLocationUnset) if the file has no fragment.
func (i *FileInode) FragLocation() (blockIndex, offset uint32) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.fragBlockIndex, i.fragOffset
}

// SetBlockRecord records the on-disk location of the block at the given
// index, growing the slice as needed. The assembler calls this exactly
// once per data or sparse block, in increasing index order (spec §5).
func (i *FileInode) SetBlockRecord(index uint32, rec BlockRecord) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for uint32(len(i.blocks)) <= index {
		i.blocks = append(i.blocks, BlockRecord{})
	}
	i.blocks[index] = rec
}

// BlockRecords returns a copy of the recorded per-block locations, in
// index order.
func (i *FileInode) BlockRecords() []BlockRecord {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]BlockRecord, len(i.blocks))
	copy(out, i.blocks)
	return out
}
