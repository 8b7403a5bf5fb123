package blkproc

import "hash/crc32"

// processBlock runs the CPU-bound stage of the pipeline: CRC32 checksum
// over the uncompressed payload, then compression attempt.
// scratch is a per-worker (or per-serial-caller) reusable buffer at least
// maxBlockSize long; codec is that same owner's deep-copied Compressor.
// It never touches shared processor state, so it needs no lock — that is
// the entire reason the pipeline can fan this stage out across workers.
func processBlock(b *Block, codec Compressor, scratch []byte) error {
	payload := b.data[:b.size]

	if b.size == 0 {
		// Zero-size LastBlock sentinel: checksum is 0, never compressed.
		// Checked before IsSparse below since a sentinel carries neither
		// IsSparse nor any payload to checksum.
		b.checksum = 0
		return nil
	}
	b.checksum = crc32.ChecksumIEEE(payload)

	if b.flags.Has(IsSparse) {
		return nil
	}
	if b.flags.Has(DontCompress) {
		return nil
	}
	if b.flags.Has(IsFragment) {
		// Fragments are packed several-to-a-block; the block as a whole is
		// compressed once, at flush time, not per fragment.
		return nil
	}

	n, err := codec.Compress(payload, scratch)
	if err != nil {
		return newStatusError(StatusCompressor, err)
	}
	if n <= 0 {
		// Incompressible, or compression would not have shrunk it: stored
		// verbatim, matching the on-disk convention of leaving
		// IS_COMPRESSED unset.
		return nil
	}

	copy(b.data[:n], scratch[:n])
	b.size = n
	b.flags |= IsCompressed
	return nil
}
