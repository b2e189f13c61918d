package node

import (
	"github.com/tuannm99/bptreeidx/internal/bx"
	"github.com/tuannm99/bptreeidx/internal/keydomain"
	"github.com/tuannm99/bptreeidx/internal/storagepage"
)

// NonLeaf is a typed view over a page buffer holding a non-leaf (internal)
// node: level, k, keyArray[NLMAX], pageNoArray[NLMAX+1] (spec §3).
type NonLeaf[K any] struct {
	page  *storagepage.Page
	codec keydomain.Codec[K]
	nlmax int
}

// AsNonLeaf wraps an existing page as a non-leaf view. It does not
// initialize the page; use InitNonLeaf for a freshly allocated page.
func AsNonLeaf[K any](page *storagepage.Page, codec keydomain.Codec[K], nlmax int) *NonLeaf[K] {
	return &NonLeaf[K]{page: page, codec: codec, nlmax: nlmax}
}

// InitNonLeaf zeroes page and sets its level, producing an empty (k=0)
// non-leaf node.
func InitNonLeaf[K any](page *storagepage.Page, codec keydomain.Codec[K], nlmax int, level int) *NonLeaf[K] {
	page.Reset(page.PageID())
	n := &NonLeaf[K]{page: page, codec: codec, nlmax: nlmax}
	n.SetLevel(level)
	return n
}

func (n *NonLeaf[K]) keyOffset(i int) int {
	return nonLeafHeaderSize + i*n.codec.Size()
}

func (n *NonLeaf[K]) childOffset(i int) int {
	return nonLeafHeaderSize + n.nlmax*n.codec.Size() + i*4
}

// Level returns the node's level; level==1 iff every child is a leaf.
func (n *NonLeaf[K]) Level() int { return int(bx.U16At(n.page.Buf, 0)) }

// SetLevel sets the node's level.
func (n *NonLeaf[K]) SetLevel(level int) { bx.PutU16At(n.page.Buf, 0, uint16(level)) }

// NumKeys returns k, the number of keys currently stored.
func (n *NonLeaf[K]) NumKeys() int { return int(bx.U16At(n.page.Buf, 2)) }

func (n *NonLeaf[K]) setNumKeys(k int) { bx.PutU16At(n.page.Buf, 2, uint16(k)) }

// KeyAt returns keyArray[i].
func (n *NonLeaf[K]) KeyAt(i int) K {
	return n.codec.Decode(n.page.Buf[n.keyOffset(i):])
}

// ChildAt returns pageNoArray[i].
func (n *NonLeaf[K]) ChildAt(i int) uint32 {
	return bx.U32At(n.page.Buf, n.childOffset(i))
}

func (n *NonLeaf[K]) setChildAt(i int, pageID uint32) {
	bx.PutU32At(n.page.Buf, n.childOffset(i), pageID)
}

func (n *NonLeaf[K]) setKeyAt(i int, key K) {
	n.codec.Encode(n.page.Buf[n.keyOffset(i):], key)
}

// FindChildStrict returns the smallest pos in [0..k] such that
// v < keyArray[pos], or k if no such key exists — the descent rule used by
// insertEntry and splitChild (spec §4.3: ties on the separator go right).
func (n *NonLeaf[K]) FindChildStrict(v K) int {
	k := n.NumKeys()
	for i := 0; i < k; i++ {
		if n.codec.Compare(v, n.KeyAt(i)) < 0 {
			return i
		}
	}
	return k
}

// FindChildAtLeast returns the smallest pos in [0..k] such that
// v <= keyArray[pos], or k if none — the descent rule used by startScan's
// lower-bound traversal (spec §4.4).
func (n *NonLeaf[K]) FindChildAtLeast(v K) int {
	k := n.NumKeys()
	for i := 0; i < k; i++ {
		if n.codec.Compare(v, n.KeyAt(i)) <= 0 {
			return i
		}
	}
	return k
}

// SetRoot1 writes a brand-new root with one key and two children (spec
// §4.3 step 2: the empty-sentinel root promotes directly to a one-key
// root over two freshly allocated leaves).
func (n *NonLeaf[K]) SetRoot1(key K, left, right uint32) {
	n.setNumKeys(1)
	n.setKeyAt(0, key)
	n.setChildAt(0, left)
	n.setChildAt(1, right)
}

// InsertSeparator inserts (key, rightChild) at slot c+1, shifting
// keyArray[c..k) and pageNoArray[c+1..k] right by one, exactly as
// splitChild's final step describes (spec §4.3).
func (n *NonLeaf[K]) InsertSeparator(c int, key K, rightChild uint32) {
	k := n.NumKeys()
	for i := k; i > c; i-- {
		bx.PutU32At(n.page.Buf, n.childOffset(i+1), bx.U32At(n.page.Buf, n.childOffset(i)))
	}
	for i := k - 1; i >= c; i-- {
		n.setKeyAt(i+1, n.KeyAt(i))
	}
	n.setChildAt(c+1, rightChild)
	n.setKeyAt(c, key)
	n.setNumKeys(k + 1)
}

// SetRootOneChild rebuilds this node as an empty (k=0) root whose single
// child (slot 0) is oldRoot — the first step of growing the tree by one
// level before splitChild runs on slot 0 (spec §4.3 step 3).
func (n *NonLeaf[K]) SetRootOneChild(level int, oldRoot uint32) {
	n.page.Reset(n.page.PageID())
	n.SetLevel(level)
	n.setNumKeys(0)
	n.setChildAt(0, oldRoot)
}

// SplitInto moves the upper half of this node's keys/children into right
// and truncates this node, per spec §4.3's internal-node split case.
// Returns the promoted separator key: P_L.keyArray[(MAX-1)/2].
func (n *NonLeaf[K]) SplitInto(right *NonLeaf[K]) K {
	maxN := n.nlmax
	splitAt := (maxN + 1) / 2 // first index moved to the right half
	leftK := (maxN - 1) / 2
	rightK := maxN / 2

	for i := 0; i < rightK; i++ {
		right.setKeyAt(i, n.KeyAt(splitAt+i))
	}
	for i := 0; i <= rightK; i++ {
		right.setChildAt(i, n.ChildAt(splitAt+i))
	}
	right.setNumKeys(rightK)
	right.SetLevel(n.Level())

	sep := n.KeyAt(leftK)
	n.setNumKeys(leftK)
	return sep
}
