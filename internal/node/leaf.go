package node

import (
	"github.com/tuannm99/bptreeidx/internal/bx"
	"github.com/tuannm99/bptreeidx/internal/ixtypes"
	"github.com/tuannm99/bptreeidx/internal/keydomain"
	"github.com/tuannm99/bptreeidx/internal/storagepage"
)

// Leaf is a typed view over a page buffer holding a leaf node: k,
// keyArray[LMAX], ridArray[LMAX], rightSibPageNo (spec §3).
type Leaf[K any] struct {
	page  *storagepage.Page
	codec keydomain.Codec[K]
	lmax  int
}

// AsLeaf wraps an existing page as a leaf view.
func AsLeaf[K any](page *storagepage.Page, codec keydomain.Codec[K], lmax int) *Leaf[K] {
	return &Leaf[K]{page: page, codec: codec, lmax: lmax}
}

// InitLeaf zeroes page, producing an empty (k=0) leaf with no right sibling.
func InitLeaf[K any](page *storagepage.Page, codec keydomain.Codec[K], lmax int) *Leaf[K] {
	page.Reset(page.PageID())
	return &Leaf[K]{page: page, codec: codec, lmax: lmax}
}

func (l *Leaf[K]) keyOffset(i int) int {
	return leafHeaderSize + i*l.codec.Size()
}

func (l *Leaf[K]) ridOffset(i int) int {
	return leafHeaderSize + l.lmax*l.codec.Size() + i*ridSize
}

// NumKeys returns k.
func (l *Leaf[K]) NumKeys() int { return int(bx.U16At(l.page.Buf, 0)) }

func (l *Leaf[K]) setNumKeys(k int) { bx.PutU16At(l.page.Buf, 0, uint16(k)) }

// RightSibPageNo returns the next leaf in key order, or 0 at the rightmost leaf.
func (l *Leaf[K]) RightSibPageNo() uint32 { return bx.U32At(l.page.Buf, 2) }

// SetRightSibPageNo sets the next-leaf pointer.
func (l *Leaf[K]) SetRightSibPageNo(pageID uint32) { bx.PutU32At(l.page.Buf, 2, pageID) }

// KeyAt returns keyArray[i].
func (l *Leaf[K]) KeyAt(i int) K { return l.codec.Decode(l.page.Buf[l.keyOffset(i):]) }

func (l *Leaf[K]) setKeyAt(i int, key K) { l.codec.Encode(l.page.Buf[l.keyOffset(i):], key) }

// RIDAt returns ridArray[i].
func (l *Leaf[K]) RIDAt(i int) ixtypes.RID { return decodeRID(l.page.Buf[l.ridOffset(i):]) }

func (l *Leaf[K]) setRIDAt(i int, rid ixtypes.RID) { encodeRID(l.page.Buf[l.ridOffset(i):], rid) }

// Insert performs the in-leaf insertion rule (spec §4.3): locate the
// largest i with keyArray[i] <= v, shift pairs in [i+1..k) right by one,
// write (v, rid) at i+1, increment k. Caller must ensure NumKeys() < LMAX.
func (l *Leaf[K]) Insert(v K, rid ixtypes.RID) {
	k := l.NumKeys()
	i := -1
	for j := 0; j < k; j++ {
		if l.codec.Compare(l.KeyAt(j), v) <= 0 {
			i = j
		}
	}
	for j := k - 1; j > i; j-- {
		l.setKeyAt(j+1, l.KeyAt(j))
		l.setRIDAt(j+1, l.RIDAt(j))
	}
	l.setKeyAt(i+1, v)
	l.setRIDAt(i+1, rid)
	l.setNumKeys(k + 1)
}

// SetSingle writes a single (key, rid) entry, used to initialize the very
// first right leaf created against the empty-sentinel root.
func (l *Leaf[K]) SetSingle(key K, rid ixtypes.RID) {
	l.setNumKeys(1)
	l.setKeyAt(0, key)
	l.setRIDAt(0, rid)
}

// SplitInto moves the upper half of this leaf's entries into right,
// splices right into the sibling chain, and returns the promoted
// separator key — a COPY of the last key remaining in the left leaf
// (spec §4.3's leaf-split case).
func (l *Leaf[K]) SplitInto(right *Leaf[K]) K {
	maxN := l.lmax
	leftK := (maxN + 1) / 2
	rightK := maxN / 2

	for i := 0; i < rightK; i++ {
		right.setKeyAt(i, l.KeyAt(leftK+i))
		right.setRIDAt(i, l.RIDAt(leftK+i))
	}
	right.setNumKeys(rightK)

	l.setNumKeys(leftK)

	right.SetRightSibPageNo(l.RightSibPageNo())
	l.SetRightSibPageNo(right.page.PageID())

	return l.KeyAt(leftK - 1)
}
