package blkproc

// enqueue appends b to the tail of the work queue and wakes one waiting
// worker. Must be called with p.mu held (spec §4.B).
func (p *Processor) enqueue(b *Block) {
	b.next = nil
	if p.queueTail != nil {
		p.queueTail.next = b
	} else {
		p.queueHead = b
	}
	p.queueTail = b
	p.backlog++
	p.hasWork.Signal()
}

// dequeue pops the work queue head, blocking until work is available or
// the processor is shutting down. Must be called with p.mu held; returns
// nil when shuttingDown and the queue has drained (the worker's cue to
// exit) or once an error has been latched (spec §4.C step 1 / §7:
// "subsequent workers [wake and] exit their wait" rather than draining the
// rest of the backlog; grounded on
// _examples/original_source/lib/sqfs/blk_proc/common.c's
// block_processor_next_work_item, which checks proc->status before
// popping).
func (p *Processor) dequeue() *Block {
	for p.queueHead == nil && !p.shuttingDown && p.status == nil {
		p.hasWork.Wait()
	}
	if p.status != nil {
		return nil
	}
	b := p.queueHead
	if b == nil {
		return nil
	}
	p.queueHead = b.next
	if p.queueHead == nil {
		p.queueTail = nil
	}
	b.next = nil
	p.inFlight++
	return b
}

// admit blocks until the backlog has room for one more block, then
// accounts for it. Must be called with p.mu held; spec §4.B/§5's backpressure
// gate preventing the splitter from outrunning the assembler by more than
// maxBacklog blocks.
func (p *Processor) admit() {
	for p.backlog >= p.maxBacklog && !p.shuttingDown {
		p.notFull.Wait()
	}
}

// release accounts for one block leaving the backlog (handed to the
// assembler) and wakes one waiting producer. Must be called with p.mu
// held.
func (p *Processor) release() {
	p.backlog--
	p.notFull.Signal()
}

// completeInsert inserts a finished block into the sorted-by-sequenceNumber
// completion list. Must be called with p.mu held (spec §4.B: "the
// completion list is kept in enqueue order so the assembler can always
// drain its head once it matches nextDoneSeq").
func (p *Processor) completeInsert(b *Block) {
	if p.completedHead == nil || b.sequenceNumber < p.completedHead.sequenceNumber {
		b.next = p.completedHead
		p.completedHead = b
		return
	}
	cur := p.completedHead
	for cur.next != nil && cur.next.sequenceNumber < b.sequenceNumber {
		cur = cur.next
	}
	b.next = cur.next
	cur.next = b
}

// completeTake pops the completion list head iff it is the next expected
// sequence number, returning nil otherwise (out-of-order blocks remain
// queued until their turn). Must be called with p.mu held.
func (p *Processor) completeTake() *Block {
	b := p.completedHead
	if b == nil || b.sequenceNumber != p.nextDoneSeq {
		return nil
	}
	p.completedHead = b.next
	b.next = nil
	p.nextDoneSeq++
	return b
}
