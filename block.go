package blkproc

// Block is a unit of uncompressed-then-maybe-compressed file data, up to
// maxBlockSize bytes, as it travels from the splitter through a worker to
// the assembler. It is always owned by exactly one of: the processor's
// free list, the work queue, or the completion list, which is why a
// single intrusive next pointer is enough to link it into any of the
// three.
type Block struct {
	next *Block

	data []byte // len(data) == maxBlockSize; data[:size] is the valid payload
	size int

	flags    BlockFlags
	checksum uint32

	inode *FileInode
	index uint32

	sequenceNumber uint64

	// err is the block stage's outcome. A non-nil err means the assembler
	// must not hand this block to the writer or fragment table at all —
	// the processor-wide status is latched separately, but a failed block
	// still flows through the completion list in sequence order so
	// later-submitted blocks can't jump ahead of it, and is then dropped
	// rather than written.
	err error
}

// getNewBlock pops the free list head or allocates a fresh block. Must be
// called with p.mu held; the pool is protected by the processor mutex.
func (p *Processor) getNewBlock() *Block {
	if b := p.freeList; b != nil {
		p.freeList = b.next
		b.next = nil
		b.size = 0
		b.flags = 0
		b.checksum = 0
		b.inode = nil
		b.index = 0
		b.sequenceNumber = 0
		b.err = nil
		return b
	}
	return &Block{data: make([]byte, p.maxBlockSize)}
}

// recycle pushes b back onto the free list. Must be called with p.mu held.
func (p *Processor) recycle(b *Block) {
	b.next = p.freeList
	b.inode = nil
	p.freeList = b
}
