package blkproc

// parallelDispatcher and serialDispatcher both implement the dispatcher
// contract rather than folding the serial path into the parallel one
// behind a branch: the two have different enough locking and ordering
// properties (the serial path never touches the queue, backlog, or
// worker wait/wake machinery at all) to earn separate types instead of
// an if numWorkers > 1 check sprinkled through one implementation.

// parallelDispatcher fans work out across numWorkers goroutines, each
// with its own deep-copied Compressor and scratch buffer so concurrent
// Compress calls never share mutable codec state (spec §4.C).
type parallelDispatcher struct {
	p *Processor
}

func newParallelDispatcher(p *Processor) *parallelDispatcher {
	d := &parallelDispatcher{p: p}
	for i := 0; i < p.numWorkers; i++ {
		codec := p.compressor.DeepCopy()
		scratch := make([]byte, p.maxBlockSize)
		p.wg.Add(1)
		go d.workerLoop(codec, scratch)
	}
	return d
}

func (d *parallelDispatcher) workerLoop(codec Compressor, scratch []byte) {
	p := d.p
	defer p.wg.Done()
	for {
		p.mu.Lock()
		b := p.dequeue()
		p.mu.Unlock()
		if b == nil {
			return
		}

		b.err = processBlock(b, codec, scratch)

		p.mu.Lock()
		p.latch(b.err)
		p.completeInsert(b)
		p.release()
		p.inFlight--
		p.drainCond.Broadcast()
		p.mu.Unlock()
	}
}

func (d *parallelDispatcher) submit(b *Block) {
	p := d.p
	p.mu.Lock()
	p.admit()
	p.enqueue(b)
	p.mu.Unlock()
}

func (d *parallelDispatcher) shutdown() {
	p := d.p
	p.mu.Lock()
	p.shuttingDown = true
	p.hasWork.Broadcast()
	p.notFull.Broadcast()
	p.drainCond.Broadcast()
	p.mu.Unlock()
}

// serialDispatcher runs the CPU-bound stage inline on the caller's
// goroutine when the processor was configured with 0 or 1 workers (spec
// §4.C/§5: "a degenerate single-worker configuration must behave
// identically to the multi-worker one, just without concurrency").
type serialDispatcher struct {
	p       *Processor
	codec   Compressor
	scratch []byte
}

func newSerialDispatcher(p *Processor) *serialDispatcher {
	return &serialDispatcher{
		p:       p,
		codec:   p.compressor.DeepCopy(),
		scratch: make([]byte, p.maxBlockSize),
	}
}

func (d *serialDispatcher) submit(b *Block) {
	b.err = processBlock(b, d.codec, d.scratch)

	p := d.p
	p.mu.Lock()
	p.latch(b.err)
	p.completeInsert(b)
	p.drainCond.Broadcast()
	p.mu.Unlock()
}

func (d *serialDispatcher) shutdown() {
	p := d.p
	p.mu.Lock()
	p.shuttingDown = true
	p.drainCond.Broadcast()
	p.mu.Unlock()
}
