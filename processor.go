// Package blkproc implements the concurrent data-path core of a SquashFS
// writer: it partitions file byte streams into fixed-size data blocks and
// tail-end fragments, compresses and deduplicates them across a worker
// pool, and hands the results to an injected block writer and fragment
// table in strict enqueue order.
package blkproc

import "sync"

// Config configures a new Processor (spec §4.G's create operation).
type Config struct {
	// MaxBlockSize is B_max: the fixed capacity of every data block.
	MaxBlockSize int

	// Compressor is deep-copied once per worker (and once more for the
	// assembler's fragment-block compression). Required.
	Compressor Compressor

	// NumWorkers selects the dispatch backend: 0 or 1 run synchronously
	// on the caller's goroutine (spec §4.C/§5); >1 spawns that many
	// worker goroutines, each with its own deep-copied Compressor and
	// scratch buffer.
	NumWorkers int

	// MaxBacklog bounds how many blocks may be admitted to the pipeline
	// ahead of the assembler (spec §4.B, §5).
	MaxBacklog int

	// Writer receives finished blocks. Required.
	Writer BlockWriter

	// FragTable records fragment entries. Required.
	FragTable FragmentTable

	// NoFragments forces every file's trailing partial block to be written
	// as a regular data block instead of packed as a fragment, overriding
	// BeginFile's own flags.
	NoFragments bool
}

// Processor is the block processor described by spec §§3-5. Exported
// methods are safe to call only from a single producer goroutine at a
// time (spec §3 invariant: "the processor is single-producer w.r.t. file
// framing"); internally it coordinates a worker pool of arbitrary size.
type Processor struct {
	maxBlockSize int
	maxBacklog   int
	numWorkers   int

	compressor  Compressor
	writer      BlockWriter
	fragTable   FragmentTable
	noFragments bool

	mu        sync.Mutex
	hasWork   sync.Cond
	notFull   sync.Cond
	drainCond sync.Cond

	freeList *Block

	queueHead, queueTail *Block
	backlog              int
	nextSeq              uint64
	status               error

	// inFlight counts blocks a worker has dequeued but not yet filed a
	// completion for. Once status is latched, any block still sitting in
	// the queue is abandoned (dequeue refuses to hand out more work), so
	// drainAll needs this to know when no further completions can
	// possibly still arrive rather than waiting forever for an abandoned
	// sequence number.
	inFlight int

	completedHead *Block
	nextDoneSeq   uint64

	shuttingDown bool
	wg           sync.WaitGroup

	dispatch dispatcher

	// Assembler-owned state; touched only from the front-end goroutine.
	fragBlock   []byte
	fragFill    int
	fragPending []uint32 // entry indices contained in the open fragment block
	fragIndex   map[fragKey][]fragCandidate
	fragCodec   Compressor
	fragScratch []byte

	stats Stats

	// Splitter-owned state; touched only from the front-end goroutine.
	curInode    *FileInode
	fileOpen    bool
	blkFlags    BlockFlags
	blkIndex    uint32
	blkCurrent  *Block
}

type fragKey struct {
	checksum uint32
	size     int
}

type fragCandidate struct {
	entryIndex uint32
	localOffset uint32
	payload    []byte // retained copy so dedup can confirm without re-reading disk
}

// dispatcher is the capability the parallel worker pool and the
// single-goroutine fallback both implement, so neither folds the other's
// logic in via a runtime guard (spec §9 design note).
type dispatcher interface {
	submit(b *Block)
	shutdown()
}

// Create builds a new Processor (spec §4.G). It returns an error if the
// configuration is incomplete; the reference implementation's "or NULL on
// allocation failure" is represented as a Go error since Go allocation
// failure is not something callers recover from.
func Create(cfg Config) (*Processor, error) {
	if cfg.Compressor == nil || cfg.Writer == nil || cfg.FragTable == nil {
		return nil, newStatusError(StatusAlloc, nil)
	}
	if cfg.MaxBlockSize <= 0 {
		return nil, newStatusError(StatusAlloc, nil)
	}
	if cfg.MaxBacklog <= 0 {
		cfg.MaxBacklog = 1
	}

	p := &Processor{
		maxBlockSize: cfg.MaxBlockSize,
		maxBacklog:   cfg.MaxBacklog,
		numWorkers:   cfg.NumWorkers,
		compressor:   cfg.Compressor,
		writer:       cfg.Writer,
		fragTable:    cfg.FragTable,
		noFragments:  cfg.NoFragments,
		fragIndex:    make(map[fragKey][]fragCandidate),
		fragCodec:    cfg.Compressor.DeepCopy(),
		fragScratch:  make([]byte, cfg.MaxBlockSize),
		fragBlock:    make([]byte, cfg.MaxBlockSize),
	}
	p.hasWork.L = &p.mu
	p.notFull.L = &p.mu
	p.drainCond.L = &p.mu

	if p.numWorkers > 1 {
		p.dispatch = newParallelDispatcher(p)
	} else {
		p.dispatch = newSerialDispatcher(p)
	}

	return p, nil
}

// Destroy releases the processor, joining any worker goroutines. Safe to
// call after Finish; does not itself wait for in-flight work, callers
// should call Finish first.
func (p *Processor) Destroy() {
	p.mu.Lock()
	p.shuttingDown = true
	p.mu.Unlock()
	p.dispatch.shutdown()
	p.wg.Wait()
}

// latch records the first non-nil async error (spec §7: "the first
// asynchronous error wins; later ones are dropped"). Must be called with
// p.mu held.
func (p *Processor) latch(err error) {
	if err != nil && p.status == nil {
		p.status = err
	}
}
