package blkproc

import "bytes"

// fragCandidate (declared in processor.go alongside the rest of the
// assembler-owned state) keeps the entry index and offset a fragment was
// packed at, so a dedup hit can set an inode's fragment location without
// having to consult the table again.

// dedupRecorder is implemented by BlockWriters that want future identical
// blocks deduplicated against ones they've already written (spec §4.F.1).
// It is optional: a BlockWriter that never returns LookupDedup hits simply
// doesn't need it.
type dedupRecorder interface {
	Record(checksum uint32, size int, compressed bool, offset uint64, written uint32)
}

// drainAvailable hands every completed block whose sequence number is
// next in line to the assembler, without blocking once the completion
// list runs dry (spec §4.B/§4.F: the front-end goroutine drains
// opportunistically between Append calls so the backlog stays bounded).
func (p *Processor) drainAvailable() error {
	for {
		p.mu.Lock()
		b := p.completeTake()
		p.mu.Unlock()
		if b == nil {
			return p.currentStatus()
		}
		p.assemble(b)
	}
}

// drainAll blocks until every submitted block (through the last one
// assigned a sequence number) has been assembled (spec §4.G's Finish
// semantics: "no block submitted before Finish is called may still be
// in flight once it returns"), or until it can prove no further
// completion will ever arrive: once status is latched, dequeue (queue.go)
// refuses to hand out any block still sitting in the queue, so those
// abandoned blocks' sequence numbers will never be filed. Waiting for
// nextDoneSeq to reach nextSeq in that case would hang forever; inFlight
// (only blocks a worker has already dequeued and is actively processing)
// reaching zero is the signal that every completion that can still
// arrive has arrived.
func (p *Processor) drainAll() error {
	for {
		p.mu.Lock()
		for (p.completedHead == nil || p.completedHead.sequenceNumber != p.nextDoneSeq) &&
			p.nextDoneSeq < p.nextSeq && (p.status == nil || p.inFlight > 0) {
			p.drainCond.Wait()
		}
		b := p.completeTake()
		abandoned := b == nil && p.nextDoneSeq < p.nextSeq && p.status != nil && p.inFlight == 0
		done := p.nextDoneSeq >= p.nextSeq || abandoned
		p.mu.Unlock()
		if b != nil {
			p.assemble(b)
		}
		if done && b == nil {
			return p.currentStatus()
		}
	}
}

func (p *Processor) currentStatus() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// assemble is the back-end described by spec §4.F: it never runs
// concurrently with itself or with the splitter, since both only ever
// execute on the single front-end goroutine.
func (p *Processor) assemble(b *Block) {
	defer func() {
		p.mu.Lock()
		p.recycle(b)
		p.mu.Unlock()
	}()

	if b.err != nil {
		// The block stage failed (spec §7): the processor-wide status is
		// already latched, but this specific block is never handed to the
		// writer or fragment table, matching "no block beyond the failing
		// sequence number is written" (spec §8 scenario 5).
		return
	}

	if b.flags.Has(IsFragment) {
		p.assembleFragment(b)
		return
	}

	if b.size == 0 {
		// Zero-size LastBlock sentinel: its only purpose was to flow
		// through the pipeline in order behind the file's real last block,
		// so a caller watching inode block counts can tell the file is
		// finished. It has nothing to record.
		return
	}

	if b.flags.Has(IsSparse) {
		p.stats.SparseBlockCount++
		b.inode.SetBlockRecord(b.index, BlockRecord{Sparse: true})
		return
	}

	payload := b.data[:b.size]
	compressed := b.flags.Has(IsCompressed)

	if offset, written, ok, err := p.writer.LookupDedup(b.checksum, len(payload), compressed, payload); err == nil && ok {
		b.inode.SetBlockRecord(b.index, BlockRecord{CompressedSize: written, OnDiskOffset: offset, Sparse: false})
		return
	} else if err != nil {
		p.mu.Lock()
		p.latch(err)
		p.mu.Unlock()
		return
	}

	offset, written, err := p.writer.Write(payload, b.flags)
	if err != nil {
		p.mu.Lock()
		p.latch(err)
		p.mu.Unlock()
		return
	}
	p.stats.DataBlockCount++
	if rec, ok := p.writer.(dedupRecorder); ok {
		rec.Record(b.checksum, len(payload), compressed, offset, written)
	}
	b.inode.SetBlockRecord(b.index, BlockRecord{CompressedSize: written, OnDiskOffset: offset, Sparse: false})
}

// assembleFragment packs one tail fragment into the currently-open
// fragment block, deduplicating against every fragment packed so far
// (spec §4.F.2: "fragment dedup spans the whole run, not just the
// current block").
func (p *Processor) assembleFragment(b *Block) {
	p.stats.TotalFragCount++
	payload := b.data[:b.size]

	key := fragKey{checksum: b.checksum, size: b.size}
	for _, cand := range p.fragIndex[key] {
		if bytes.Equal(cand.payload, payload) {
			b.inode.SetFragLocation(cand.entryIndex, cand.localOffset)
			return
		}
	}

	if p.fragFill+b.size > p.maxBlockSize {
		p.flushFragBlock()
	}

	localOffset := uint32(p.fragFill)
	copy(p.fragBlock[p.fragFill:], payload)
	p.fragFill += b.size

	entryIndex := p.fragTable.AppendEntry(localOffset, uint32(b.size))
	b.inode.SetFragLocation(entryIndex, localOffset)

	saved := make([]byte, b.size)
	copy(saved, payload)
	p.fragIndex[key] = append(p.fragIndex[key], fragCandidate{entryIndex: entryIndex, localOffset: localOffset, payload: saved})
	p.fragPending = append(p.fragPending, entryIndex)
	p.stats.ActualFragCount++
}

// flushFragBlock compresses and writes out whatever has accumulated in
// the open fragment block, then resolves every fragment table entry
// packed into it to its final on-disk location (spec §4.F.2). A no-op if
// nothing is pending.
func (p *Processor) flushFragBlock() {
	if p.fragFill == 0 {
		return
	}

	payload := p.fragBlock[:p.fragFill]
	flags := BlockFlags(IsFragment)
	n, err := p.fragCodec.Compress(payload, p.fragScratch)
	if err != nil {
		p.mu.Lock()
		p.latch(newStatusError(StatusCompressor, err))
		p.mu.Unlock()
		p.fragFill = 0
		p.fragPending = p.fragPending[:0]
		return
	}
	if n > 0 {
		payload = p.fragScratch[:n]
		flags |= IsCompressed
	}

	offset, _, err := p.writer.Write(payload, flags)
	if err != nil {
		p.mu.Lock()
		p.latch(err)
		p.mu.Unlock()
	} else {
		p.fragTable.ResolveBlock(p.fragPending, offset, flags.Has(IsCompressed))
		p.stats.FragBlockCount++
	}

	p.fragFill = 0
	p.fragPending = p.fragPending[:0]
}
