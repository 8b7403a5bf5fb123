package blkproc

import (
	"encoding/binary"
	"io"
)

// metadataBlockSize is the chunk size used when splitting a metadata table
// (fragment table, inode table, ...) into the compressed blocks squashfs
// stores them in. It matches the on-disk constant used throughout
// squashfs-tools and the teacher package's metadata reader.
const metadataBlockSize = 8192

// writeMetadataTable splits data into metadataBlockSize chunks, compresses
// each with comp, and writes each chunk to w framed as
// (2-byte length-with-compressed-flag, payload), mirroring the format the
// teacher package's tableReader.readBlock decodes. It returns, per chunk,
// the chunk's start offset relative to the caller's write position when
// the call began (the caller is expected to track file offsets), plus the
// total number of bytes written; these are not individual fragment/inode
// locations, merely the chunk boundaries, which is all a generic table
// writer needs to expose.
func writeMetadataTable(w io.Writer, comp Compressor, data []byte) (chunkStarts []int64, written int64, err error) {
	order := binary.LittleEndian
	var offset int64

	for len(data) > 0 {
		n := len(data)
		if n > metadataBlockSize {
			n = metadataBlockSize
		}
		chunk := data[:n]
		data = data[n:]

		scratch := make([]byte, n)
		clen, cerr := comp.Compress(chunk, scratch)
		if cerr != nil {
			return nil, 0, newStatusError(StatusCompressor, cerr)
		}

		hdr := make([]byte, 2)
		var payload []byte
		if clen == 0 {
			// incompressible: store raw with the top bit set
			order.PutUint16(hdr, uint16(len(chunk))|0x8000)
			payload = chunk
		} else {
			order.PutUint16(hdr, uint16(clen))
			payload = scratch[:clen]
		}

		chunkStarts = append(chunkStarts, offset)
		if _, err := w.Write(hdr); err != nil {
			return nil, 0, newStatusError(StatusIO, err)
		}
		if _, err := w.Write(payload); err != nil {
			return nil, 0, newStatusError(StatusIO, err)
		}
		offset += int64(len(hdr) + len(payload))
	}

	return chunkStarts, offset, nil
}
