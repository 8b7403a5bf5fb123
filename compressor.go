package blkproc

import "fmt"

// CompressionMethod identifies which codec a Compressor implements, using
// the same numbering squashfs itself uses on disk (teacher's comp.go
// SquashComp constants).
type CompressionMethod uint16

const (
	GZip CompressionMethod = 1
	LZMA CompressionMethod = 2
	LZO  CompressionMethod = 3
	XZ   CompressionMethod = 4
	LZ4  CompressionMethod = 5
	ZSTD CompressionMethod = 6
)

func (m CompressionMethod) String() string {
	switch m {
	case GZip:
		return "GZip"
	case LZMA:
		return "LZMA"
	case LZO:
		return "LZO"
	case XZ:
		return "XZ"
	case LZ4:
		return "LZ4"
	case ZSTD:
		return "ZSTD"
	}
	return fmt.Sprintf("CompressionMethod(%d)", m)
}

var compressorFactories = map[CompressionMethod]func() Compressor{
	GZip: func() Compressor { return NewGZipCompressor(0) },
}

// RegisterCompressorFactory registers a constructor for a CompressionMethod.
// Build-tag-gated files (comp_zstd.go, comp_xz.go) use this to add codecs
// that pull in extra dependencies only when requested, the same pattern
// the teacher package uses for RegisterDecompressor.
func RegisterCompressorFactory(method CompressionMethod, factory func() Compressor) {
	compressorFactories[method] = factory
}

// NewCompressor returns a fresh Compressor for the given method, or an
// error if no factory is registered (e.g. built without the matching
// build tag).
func NewCompressor(method CompressionMethod) (Compressor, error) {
	f, ok := compressorFactories[method]
	if !ok {
		return nil, fmt.Errorf("blkproc: no compressor registered for %s (missing build tag?)", method)
	}
	return f(), nil
}

// Compressor is the codec capability the block processor is built around
// (spec §6). Each worker owns its own DeepCopy of the Compressor supplied
// to the processor so that concurrent Compress calls never share mutable
// codec state.
type Compressor interface {
	// DeepCopy returns an independent instance that shares configuration
	// but no mutable state with the receiver, safe to use from a single
	// other goroutine concurrently with the receiver and any other copy.
	DeepCopy() Compressor

	// Compress compresses in into out, returning the number of bytes
	// written to out. A return of 0 means the data was incompressible and
	// the caller must keep the uncompressed original; a non-nil error
	// means the codec failed outright. Compress must never return n that
	// is not smaller than len(in): callers take any positive n as the
	// compressed length and do not check it against len(in).
	Compress(in, out []byte) (n int, err error)

	// Decompress reverses Compress. Used by the metadata table reader
	// (tableReader).
	Decompress(in []byte) ([]byte, error)
}
