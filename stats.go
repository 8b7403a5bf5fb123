package blkproc

// Stats holds the monotonic counters the assembler maintains (spec §3/§8).
// It is single-writer (the assembler, which always runs on the front-end
// goroutine) and single-reader (GetStats), so no synchronization beyond the
// processor mutex that GetStats takes to observe a consistent snapshot is
// required (spec §9's design note on global mutable statistics).
type Stats struct {
	InputBytesRead   uint64
	DataBlockCount   uint64
	FragBlockCount   uint64
	SparseBlockCount uint64
	TotalFragCount   uint64
	ActualFragCount  uint64
}

// GetStats returns a snapshot of the current statistics. Per spec §9 this
// is only meaningful once the processor is quiescent (e.g. after Finish).
func (p *Processor) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
