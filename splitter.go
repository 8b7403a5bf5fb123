package blkproc

// splitter.go is the front-end: it turns a caller's
// BeginFile/Append/AppendSparse/EndFile calls into a stream of
// fixed-size Blocks dispatched in strictly increasing sequence order.
// Like the assembler, it only ever runs on the single front-end goroutine
// a Processor is built for — neither side needs its own lock for its own
// state, only for the queue/completion-list state they share.

// BeginFile starts a new file, returning the FileInode the caller should
// retain and later hand to its own archive-assembly layer. flags may only
// contain user-settable bits; anything else is
// ErrUnsupported. Calling BeginFile while a file is already open is
// ErrSequence.
func (p *Processor) BeginFile(flags BlockFlags) (*FileInode, error) {
	if flags&^userSettableFlags != 0 {
		return nil, ErrUnsupported
	}
	if p.fileOpen {
		return nil, ErrSequence
	}

	if p.noFragments {
		flags |= DontFragment
	}

	p.curInode = NewFileInode()
	p.fileOpen = true
	p.blkFlags = flags
	p.blkIndex = 0
	p.blkCurrent = nil
	return p.curInode, nil
}

// newCurrentBlock allocates p.blkCurrent if absent, stamping the flags it
// will carry to the worker stage.
func (p *Processor) newCurrentBlock() {
	p.mu.Lock()
	b := p.getNewBlock()
	p.mu.Unlock()

	b.inode = p.curInode
	b.index = p.blkIndex
	b.flags = p.blkFlags & userSettableFlags
	if p.blkIndex == 0 {
		b.flags |= FirstBlock
	}
	p.blkCurrent = b
}

// dispatchBlock assigns the next sequence number and hands b to the
// dispatcher, short-circuiting if the pipeline has already latched an
// error (spec §7: once status is non-nil, new work is rejected rather
// than silently queued behind a pipeline that will never drain it
// cleanly).
func (p *Processor) dispatchBlock(b *Block) error {
	p.mu.Lock()
	if p.status != nil {
		err := p.status
		p.recycle(b)
		p.mu.Unlock()
		return err
	}
	b.sequenceNumber = p.nextSeq
	p.nextSeq++
	p.mu.Unlock()

	p.dispatch.submit(b)
	return nil
}

// Append feeds data into the current file, splitting it into maxBlockSize
// data blocks as it fills and dispatching each full one immediately.
// Append is ErrSequence outside a BeginFile/EndFile span.
func (p *Processor) Append(data []byte) (int, error) {
	if !p.fileOpen {
		return 0, ErrSequence
	}

	total := 0
	for len(data) > 0 {
		if p.blkCurrent == nil {
			p.newCurrentBlock()
		}

		room := p.maxBlockSize - p.blkCurrent.size
		n := len(data)
		if n > room {
			n = room
		}
		copy(p.blkCurrent.data[p.blkCurrent.size:], data[:n])
		p.blkCurrent.size += n
		data = data[n:]
		total += n

		if p.blkCurrent.size == p.maxBlockSize {
			full := p.blkCurrent
			p.blkCurrent = nil
			p.blkIndex++
			if err := p.dispatchBlock(full); err != nil {
				return total, err
			}
		}
	}

	p.curInode.SetFileSize(p.curInode.GetFileSize() + uint64(total))
	p.mu.Lock()
	p.stats.InputBytesRead += uint64(total)
	p.mu.Unlock()

	return total, p.drainAvailable()
}

// AppendSparse records n bytes of hole without backing data, splitting
// across maxBlockSize-sized sparse blocks exactly as Append does for real
// data (spec §4.E). Any partially filled regular block already open is
// flushed first, since a block cannot mix sparse and real content.
func (p *Processor) AppendSparse(n int) (int, error) {
	if !p.fileOpen {
		return 0, ErrSequence
	}
	if p.blkCurrent != nil {
		full := p.blkCurrent
		p.blkCurrent = nil
		p.blkIndex++
		if err := p.dispatchBlock(full); err != nil {
			return 0, err
		}
	}

	total := 0
	for n > 0 {
		p.mu.Lock()
		b := p.getNewBlock()
		p.mu.Unlock()

		take := p.maxBlockSize
		if take > n {
			take = n
		}
		b.inode = p.curInode
		b.index = p.blkIndex
		b.size = take
		b.flags = (p.blkFlags & userSettableFlags) | IsSparse
		if p.blkIndex == 0 {
			b.flags |= FirstBlock
		}

		p.blkIndex++
		n -= take
		total += take
		if err := p.dispatchBlock(b); err != nil {
			return total, err
		}
	}

	p.curInode.SetFileSize(p.curInode.GetFileSize() + uint64(total))
	p.mu.Lock()
	p.stats.InputBytesRead += uint64(total)
	p.mu.Unlock()

	return total, p.drainAvailable()
}

// emitSentinel dispatches a zero-size LastBlock marker, used when the
// file's true final block was already dispatched as a data block or
// handed off to become a fragment (spec §9's resolution of the sentinel
// Open Question, grounded on
// _examples/original_source/lib/sqfs/block_processor/frontend.c's
// end_file: a sentinel is only needed once at least one real block has
// already been emitted for this file).
func (p *Processor) emitSentinel() error {
	p.mu.Lock()
	b := p.getNewBlock()
	p.mu.Unlock()

	b.inode = p.curInode
	b.index = p.blkIndex
	b.size = 0
	b.flags = LastBlock
	return p.dispatchBlock(b)
}

// EndFile closes the file started by BeginFile, deciding whether any
// trailing partial block becomes a tail fragment or is written as a
// final, possibly short, data block (spec §4.E):
//
//   - if DontFragment is set on the file, the trailing partial block (if
//     any) is stamped LastBlock and dispatched as a regular data block;
//   - otherwise a non-full trailing block becomes a fragment, and if the
//     file had already emitted at least one prior data block, a zero-size
//     sentinel LastBlock marker follows it so the assembler side can tell
//     the file is finished without inspecting fragment state.
//
// EndFile is ErrSequence outside a BeginFile span.
func (p *Processor) EndFile() (*FileInode, error) {
	if !p.fileOpen {
		return nil, ErrSequence
	}
	inode := p.curInode
	emittedAny := p.blkIndex > 0

	var err error
	switch {
	case p.blkCurrent != nil && p.blkCurrent.Has(DontFragment):
		last := p.blkCurrent
		p.blkCurrent = nil
		last.flags |= LastBlock
		err = p.dispatchBlock(last)

	case p.blkCurrent != nil:
		last := p.blkCurrent
		p.blkCurrent = nil
		last.flags |= IsFragment
		err = p.dispatchBlock(last)
		if err == nil && emittedAny {
			err = p.emitSentinel()
		}

	case emittedAny:
		err = p.emitSentinel()
	}

	p.fileOpen = false
	p.curInode = nil

	if err != nil {
		return inode, err
	}
	if err := p.drainAvailable(); err != nil {
		return inode, err
	}
	return inode, nil
}

// Has reports whether b carries every bit of what. Block exposes this
// directly so splitter logic above reads naturally without reaching into
// the struct's flags field.
func (b *Block) Has(what BlockFlags) bool {
	return b.flags.Has(what)
}
