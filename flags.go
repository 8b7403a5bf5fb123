package blkproc

import "strings"

// BlockFlags are the per-block flag bits described in spec §3/§6. A subset
// is user-settable via BeginFile; the rest are stamped internally by the
// splitter, worker stage, or assembler.
type BlockFlags uint32

const (
	// User-settable via BeginFile.
	DontCompress BlockFlags = 1 << iota
	DontFragment
	Align

	// Internal only.
	FirstBlock
	LastBlock
	IsFragment
	IsCompressed
	IsSparse
)

// userSettableFlags is the mask BeginFile validates incoming flags against
// (spec §4.E: "fails with UNSUPPORTED if flags contain bits outside the
// user-settable mask").
const userSettableFlags = DontCompress | DontFragment | Align

func (f BlockFlags) String() string {
	var parts []string
	add := func(bit BlockFlags, name string) {
		if f&bit != 0 {
			parts = append(parts, name)
		}
	}
	add(DontCompress, "DONT_COMPRESS")
	add(DontFragment, "DONT_FRAGMENT")
	add(Align, "ALIGN")
	add(FirstBlock, "FIRST_BLOCK")
	add(LastBlock, "LAST_BLOCK")
	add(IsFragment, "IS_FRAGMENT")
	add(IsCompressed, "IS_COMPRESSED")
	add(IsSparse, "IS_SPARSE")
	return strings.Join(parts, "|")
}

// Has reports whether all bits of what are set in f.
func (f BlockFlags) Has(what BlockFlags) bool {
	return f&what == what
}
