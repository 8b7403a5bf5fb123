package blkproc_test

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/go-sqfs/blkproc"
)

func TestWriterWalkDirPacksTree(t *testing.T) {
	src := fstest.MapFS{
		"a.txt":        {Data: []byte("hello world")},
		"dir/b.txt":    {Data: make([]byte, 9000)},
		"dir/sub/c.go": {Data: []byte("package sub\n")},
	}

	dest := &memDest{}
	w, err := blkproc.NewWriter(dest, blkproc.WithBlockSize(4096))
	if err != nil {
		t.Fatalf("NewWriter: %s", err)
	}
	defer w.Destroy()

	w.SetSourceFS(src)
	if err := fs.WalkDir(src, ".", w.Add); err != nil {
		t.Fatalf("WalkDir: %s", err)
	}

	if _, err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %s", err)
	}

	stats := w.Stats()
	if stats.DataBlockCount == 0 {
		t.Errorf("expected at least one data block from dir/b.txt, got 0")
	}
	if stats.TotalFragCount != 3 {
		t.Errorf("total_frag_count = %d, want 3 (one trailing fragment per regular file)", stats.TotalFragCount)
	}
}

func TestWriterWithoutSourceFSRecordsMetadataOnly(t *testing.T) {
	src := fstest.MapFS{
		"f.bin": {Data: []byte("content that would normally be packed")},
	}

	dest := &memDest{}
	w, err := blkproc.NewWriter(dest)
	if err != nil {
		t.Fatalf("NewWriter: %s", err)
	}
	defer w.Destroy()

	if err := fs.WalkDir(src, ".", w.Add); err != nil {
		t.Fatalf("WalkDir: %s", err)
	}
	if _, err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %s", err)
	}

	stats := w.Stats()
	if stats.DataBlockCount != 0 || stats.TotalFragCount != 0 {
		t.Errorf("expected no blocks without a source FS to read from, got %+v", stats)
	}
}

func TestWriterInodesExposeUnixMode(t *testing.T) {
	src := fstest.MapFS{
		"a.txt":    {Data: []byte("hello"), Mode: 0644},
		"dir/b.go": {Data: []byte("package b\n"), Mode: 0600},
	}

	dest := &memDest{}
	w, err := blkproc.NewWriter(dest)
	if err != nil {
		t.Fatalf("NewWriter: %s", err)
	}
	defer w.Destroy()

	w.SetSourceFS(src)
	if err := fs.WalkDir(src, ".", w.Add); err != nil {
		t.Fatalf("WalkDir: %s", err)
	}
	if _, err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %s", err)
	}

	byPath := make(map[string]*blkproc.WriterInode)
	for _, wi := range w.Inodes() {
		byPath[wi.Path()] = wi
	}

	got, ok := byPath["a.txt"]
	if !ok {
		t.Fatalf("a.txt not recorded among Inodes()")
	}
	if want := blkproc.ModeToUnix(fs.FileMode(0644)); got.UnixMode() != want {
		t.Errorf("a.txt UnixMode() = %#o, want %#o", got.UnixMode(), want)
	}

	gotB, ok := byPath["dir/b.go"]
	if !ok {
		t.Fatalf("dir/b.go not recorded among Inodes()")
	}
	if want := blkproc.ModeToUnix(fs.FileMode(0600)); gotB.UnixMode() != want {
		t.Errorf("dir/b.go UnixMode() = %#o, want %#o", gotB.UnixMode(), want)
	}

	if got, want := got.FileMode().Perm(), fs.FileMode(0644).Perm(); got != want {
		t.Errorf("a.txt FileMode().Perm() = %#o, want %#o", got, want)
	}
	if gotB.FileMode()&fs.ModeType != 0 {
		t.Errorf("dir/b.go FileMode() = %v, want a regular file (no type bits)", gotB.FileMode())
	}
}

func TestWriterInodeTypeDispatch(t *testing.T) {
	src := fstest.MapFS{
		"dir":          {Mode: fs.ModeDir | 0755},
		"dir/file.txt": {Data: []byte("hi"), Mode: 0644},
		"link":         {Data: []byte("dir/file.txt"), Mode: fs.ModeSymlink | 0777},
		"blk":          {Mode: fs.ModeDevice | 0660},
		"chr":          {Mode: fs.ModeDevice | fs.ModeCharDevice | 0660},
		"fifo":         {Mode: fs.ModeNamedPipe | 0600},
		"sock":         {Mode: fs.ModeSocket | 0600},
	}

	dest := &memDest{}
	w, err := blkproc.NewWriter(dest)
	if err != nil {
		t.Fatalf("NewWriter: %s", err)
	}
	defer w.Destroy()

	if err := fs.WalkDir(src, ".", w.Add); err != nil {
		t.Fatalf("WalkDir: %s", err)
	}
	if _, err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %s", err)
	}

	byPath := make(map[string]*blkproc.WriterInode)
	for _, wi := range w.Inodes() {
		byPath[wi.Path()] = wi
	}

	cases := []struct {
		path     string
		want     blkproc.Type
		isDir    bool
		isSymlnk bool
	}{
		{"dir", blkproc.DirType, true, false},
		{"dir/file.txt", blkproc.FileType, false, false},
		{"link", blkproc.SymlinkType, false, true},
		{"blk", blkproc.BlockDevType, false, false},
		{"chr", blkproc.CharDevType, false, false},
		{"fifo", blkproc.FifoType, false, false},
		{"sock", blkproc.SocketType, false, false},
	}
	for _, c := range cases {
		wi, ok := byPath[c.path]
		if !ok {
			t.Fatalf("%s not recorded among Inodes()", c.path)
		}
		if wi.Type() != c.want {
			t.Errorf("%s Type() = %v, want %v", c.path, wi.Type(), c.want)
		}
		if wi.Type().IsDir() != c.isDir {
			t.Errorf("%s IsDir() = %v, want %v", c.path, wi.Type().IsDir(), c.isDir)
		}
		if wi.Type().IsSymlink() != c.isSymlnk {
			t.Errorf("%s IsSymlink() = %v, want %v", c.path, wi.Type().IsSymlink(), c.isSymlnk)
		}
		if got := wi.Type().Mode(); got != c.want.Mode() {
			t.Errorf("%s Mode() = %v, want %v", c.path, got, c.want.Mode())
		}
	}
}

func TestWriterFinalizeReportsFragmentTablePlacement(t *testing.T) {
	src := fstest.MapFS{
		"x.txt": {Data: []byte("short tail fragment")},
	}

	dest := &memDest{}
	w, err := blkproc.NewWriter(dest, blkproc.WithBlockSize(4096))
	if err != nil {
		t.Fatalf("NewWriter: %s", err)
	}
	defer w.Destroy()

	w.SetSourceFS(src)
	if err := fs.WalkDir(src, ".", w.Add); err != nil {
		t.Fatalf("WalkDir: %s", err)
	}

	super, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %s", err)
	}
	if super.NoFragments {
		t.Errorf("expected a fragment table since x.txt's whole content is a tail fragment")
	}
	if super.FragmentEntryCount != 1 {
		t.Errorf("fragment entry count = %d, want 1", super.FragmentEntryCount)
	}
}
