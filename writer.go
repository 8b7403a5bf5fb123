package blkproc

import (
	"io"
	"io/fs"
	"time"
)

// BlockDest is what a Writer needs from its output: somewhere to append
// data/fragment blocks and the fragment table, and to read them back for
// whole-block dedup confirmation (spec §4.F.1). *os.File satisfies this.
type BlockDest interface {
	io.WriterAt
	io.ReaderAt
}

// Writer is a thin, fs.WalkDir-compatible front end over a Processor: it
// turns regular-file bytes into packed blocks and leaves directory-tree,
// inode-table, and super-block serialization as an explicit stub (spec.md's
// Non-goals: "does not define the on-disk super-block layout"; SPEC_FULL.md's
// integration-surface section). It builds the filesystem's inode metadata
// in memory and streams block data to dest as Add is called, the same
// division of labor as the teacher package's Writer.
type Writer struct {
	proc      *Processor
	blockW    *FileBlockWriter
	fragTable FragmentTable
	dest      BlockDest

	blockSize  uint32
	method     CompressionMethod
	numWorkers int
	maxBacklog int
	devBlkSize uint32
	modTime    int32
	sourceFS   fs.FS

	rootInode  *WriterInode
	inodes     []*WriterInode
	inodeCount uint32
}

// WriterInode represents an inode being built in memory (metadata only;
// regular-file content has already been streamed through the Processor by
// the time Add returns).
type WriterInode struct {
	path     string
	name     string
	ino      uint32
	parent   *WriterInode
	children []*WriterInode

	mode       fs.FileMode
	squashMode uint32 // on-disk unix mode bits, via ModeToUnix
	size       uint64
	modTime    int64
	fileType   Type

	fileInode *FileInode // set for regular files; carries block/fragment locations

	linkTarget string

	entries []*WriterInode
}

// WriterOption configures a Writer.
type WriterOption func(*Writer) error

// WithBlockSize sets B_max, the processor's fixed data block capacity
// (default: 131072).
func WithBlockSize(size uint32) WriterOption {
	return func(w *Writer) error {
		w.blockSize = size
		return nil
	}
}

// WithCompression selects the codec Create deep-copies per worker (default:
// GZip, matching squashfs-tools' own default).
func WithCompression(method CompressionMethod) WriterOption {
	return func(w *Writer) error {
		w.method = method
		return nil
	}
}

// WithModTime sets the filesystem modification time recorded for entries
// that otherwise have none (default: current time).
func WithModTime(t time.Time) WriterOption {
	return func(w *Writer) error {
		w.modTime = int32(t.Unix())
		return nil
	}
}

// WithWorkers sets the processor's worker count (default: 1, the
// synchronous dispatcher).
func WithWorkers(n int) WriterOption {
	return func(w *Writer) error {
		w.numWorkers = n
		return nil
	}
}

// WithMaxBacklog sets the processor's admitted-but-unassembled block cap
// (default: 16).
func WithMaxBacklog(n int) WriterOption {
	return func(w *Writer) error {
		w.maxBacklog = n
		return nil
	}
}

// WithDeviceBlockSize sets the alignment granularity the block writer pads
// to when a block carries the Align flag (default: 0, no padding).
func WithDeviceBlockSize(n uint32) WriterOption {
	return func(w *Writer) error {
		w.devBlkSize = n
		return nil
	}
}

// NewWriter creates a Writer that packs block data into dest.
func NewWriter(dest BlockDest, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		dest:       dest,
		blockSize:  131072,
		method:     GZip,
		numWorkers: 1,
		maxBacklog: 16,
		modTime:    int32(time.Now().Unix()),
	}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}

	comp, err := NewCompressor(w.method)
	if err != nil {
		return nil, err
	}

	w.blockW = NewFileBlockWriter(dest, w.devBlkSize)
	w.fragTable = NewMemFragmentTable()

	proc, err := Create(Config{
		MaxBlockSize: int(w.blockSize),
		Compressor:   comp,
		NumWorkers:   w.numWorkers,
		MaxBacklog:   w.maxBacklog,
		Writer:       w.blockW,
		FragTable:    w.fragTable,
	})
	if err != nil {
		return nil, err
	}
	w.proc = proc

	w.rootInode = &WriterInode{
		ino:      1,
		mode:     fs.ModeDir | 0755,
		modTime:  int64(w.modTime),
		fileType: DirType,
		entries:  make([]*WriterInode, 0),
	}
	w.inodes = []*WriterInode{w.rootInode}
	w.inodeCount = 1

	return w, nil
}

// SetSourceFS supplies the filesystem Add reads regular-file content from.
// Without it, Add records metadata only (useful for tests that only care
// about the directory-tree bookkeeping, mirroring the teacher package's
// Add, which never read file content either).
func (w *Writer) SetSourceFS(fsys fs.FS) {
	w.sourceFS = fsys
}

// Add adds a file, directory, or symlink to the filesystem being built.
// This method is compatible with fs.WalkDirFunc, allowing it to be used
// directly with fs.WalkDir:
//
//	err := fs.WalkDir(srcFS, ".", w.Add)
//
// Regular-file bytes are streamed through the Processor immediately, so
// memory use stays bounded by the processor's backlog rather than by the
// total size of the tree being packed.
func (w *Writer) Add(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}
	if path == "." || path == "" {
		return nil
	}

	info, err := d.Info()
	if err != nil {
		return err
	}

	w.inodeCount++
	wi := &WriterInode{
		path:       path,
		name:       info.Name(),
		ino:        w.inodeCount,
		mode:       info.Mode(),
		squashMode: ModeToUnix(info.Mode()),
		size:       uint64(info.Size()),
		modTime:    info.ModTime().Unix(),
	}

	switch {
	case info.Mode().IsDir():
		wi.fileType = DirType
		wi.entries = make([]*WriterInode, 0)
	case info.Mode().IsRegular():
		wi.fileType = FileType
		if w.sourceFS != nil {
			f, ferr := w.sourceFS.Open(path)
			if ferr != nil {
				return ferr
			}
			fi, perr := w.packFile(f)
			cerr := f.Close()
			if perr != nil {
				return perr
			}
			if cerr != nil {
				return cerr
			}
			wi.fileInode = fi
			wi.size = fi.GetFileSize()
		}
	case info.Mode()&fs.ModeSymlink != 0:
		wi.fileType = SymlinkType
		// TODO: symlink target extraction needs a readlink-capable source;
		// the plain fs.FS interface Add is handed doesn't expose one.
	case info.Mode()&fs.ModeNamedPipe != 0:
		wi.fileType = FifoType
	case info.Mode()&fs.ModeSocket != 0:
		wi.fileType = SocketType
	case info.Mode()&fs.ModeCharDevice != 0:
		wi.fileType = CharDevType
	case info.Mode()&fs.ModeDevice != 0:
		wi.fileType = BlockDevType
	default:
		// recorded as metadata only, same as the teacher package's Add.
		wi.fileType = FileType
	}

	w.inodes = append(w.inodes, wi)
	return nil
}

// UnixMode returns the on-disk squashfs unix mode word for wi, as computed
// by ModeToUnix from the fs.FileMode Add recorded. Exported through
// Writer.Inodes so a caller's own inode-table serialization (out of this
// module's scope) has the bits it needs without recomputing them.
func (wi *WriterInode) UnixMode() uint32 {
	return wi.squashMode
}

// FileMode decodes wi's on-disk squashfs unix mode word back into an
// fs.FileMode, the inverse of UnixMode. Useful for a caller that has read
// squashMode back out of a serialized inode table and wants the same
// fs.FileMode Add originally saw.
func (wi *WriterInode) FileMode() fs.FileMode {
	return UnixToMode(wi.squashMode)
}

// Path returns the slash-separated path Add was called with for wi.
func (wi *WriterInode) Path() string {
	return wi.path
}

// Type returns the squashfs inode type Add determined for wi.
func (wi *WriterInode) Type() Type {
	return wi.fileType
}

// Inodes returns every inode Add has recorded so far, in the order
// they were added, for a caller's own inode-table/directory-tree
// serialization.
func (w *Writer) Inodes() []*WriterInode {
	return w.inodes
}

// packFile streams r's content through the processor as one file, start to
// end, and returns the inode the splitter allocated for it.
func (w *Writer) packFile(r io.Reader) (*FileInode, error) {
	inode, err := w.proc.BeginFile(0)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 64*1024)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := w.proc.Append(buf[:n]); werr != nil {
				return nil, werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, rerr
		}
	}

	if _, err := w.proc.EndFile(); err != nil {
		return nil, err
	}
	return inode, nil
}

// Stats proxies the processor's accumulated statistics (spec §4.G).
func (w *Writer) Stats() Stats {
	return w.proc.GetStats()
}

// Finalize flushes the block processor and writes the fragment table
// immediately following the last block already written to dest, returning
// its on-disk placement. Directory-tree, inode-table, and super-block
// serialization are out of this package's scope (spec.md's Non-goals) and
// are left to the caller's own archive-assembly layer — the same boundary
// the teacher package's Finalize stubbed out with TODOs, just drawn one
// layer lower since this module's job stops at the block/fragment data
// path, not the whole archive.
func (w *Writer) Finalize() (SuperblockFields, error) {
	if err := w.proc.Finish(); err != nil {
		return SuperblockFields{}, err
	}

	start := w.blockW.BytesUsed()
	fw := &offsetWriterAt{w: w.dest, off: start}

	var super SuperblockFields
	if err := w.proc.WriteFragmentTable(fw, start, &super); err != nil {
		return SuperblockFields{}, err
	}
	return super, nil
}

// Destroy releases the underlying processor, joining any worker goroutines.
// Call after Finalize.
func (w *Writer) Destroy() {
	w.proc.Destroy()
}

// offsetWriterAt adapts an io.WriterAt plus a running offset into a plain
// io.Writer, so FragmentTable.Serialize can frame the table as a sequence
// of appends without knowing about absolute file positions.
type offsetWriterAt struct {
	w   io.WriterAt
	off uint64
}

func (o *offsetWriterAt) Write(p []byte) (int, error) {
	n, err := o.w.WriteAt(p, int64(o.off))
	o.off += uint64(n)
	return n, err
}
