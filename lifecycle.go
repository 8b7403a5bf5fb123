package blkproc

import "io"

// Finish flushes the pipeline: blocks until every block submitted so far
// has been assembled, finalizes any partially filled fragment block, and
// returns the first latched error, if any. Finish does not join worker
// goroutines; callers that are done with the processor for good should
// call Destroy afterwards.
func (p *Processor) Finish() error {
	if err := p.drainAll(); err != nil {
		return err
	}
	p.flushFragBlock()
	return p.currentStatus()
}

// WriteFragmentTable serializes the accumulated fragment table to w, which
// the caller has positioned at start within its own output stream, and
// records the resulting placement in super. If no fragment was ever
// packed, it instead marks super as fragment-free using the all-ones
// sentinel rather than pointing at an empty table, matching
// squashfs-tools' own on-disk convention.
func (p *Processor) WriteFragmentTable(w io.Writer, start uint64, super *SuperblockFields) error {
	count := p.fragTable.Count()
	if count == 0 {
		super.NoFragments = true
		super.AlwaysFragments = false
		super.FragTableStart = noFragTableSentinel
		super.FragmentEntryCount = 0
		return nil
	}

	if _, err := p.fragTable.Serialize(w, p.fragCodec); err != nil {
		return err
	}
	super.NoFragments = false
	super.AlwaysFragments = true
	super.FragTableStart = start
	super.FragmentEntryCount = uint32(count)
	return nil
}
