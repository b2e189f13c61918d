// Package node is the Node Codec (spec §4.1): typed, in-place views over a
// raw page buffer for the two node kinds (internal, leaf), generic over the
// three key domains. Nodes are fixed-layout byte images — no slotted
// indirection — matching spec §3's keyArray/pageNoArray/ridArray fields
// directly. The typed-view style (a struct wrapping *storagepage.Page and
// exposing typed accessors) is carried over from the teacher's
// internal/btree.{LeafNode,InternalNode}, which wrap storage.Page the same
// way; the fixed-array layout itself replaces the teacher's slotted-page
// layout, which doesn't fit this spec's NLMAX/LMAX array model.
package node

import (
	"github.com/tuannm99/bptreeidx/internal/bx"
	"github.com/tuannm99/bptreeidx/internal/ixtypes"
)

// ridSize is the encoded size of an ixtypes.RID: page number + slot,
// 4 bytes each.
const ridSize = 8

// nonLeafHeaderSize is level (uint16) + k (uint16).
const nonLeafHeaderSize = 4

// leafHeaderSize is k (uint16) + rightSibPageNo (uint32).
const leafHeaderSize = 6

// MaxNonLeafEntries returns NLMAX for a given key size and page size: the
// largest n such that header + n*keySize + (n+1)*4 <= pageSize.
func MaxNonLeafEntries(pageSize, keySize int) int {
	return (pageSize - nonLeafHeaderSize - 4) / (keySize + 4)
}

// MaxLeafEntries returns LMAX for a given key size and page size: the
// largest n such that header + n*keySize + n*ridSize <= pageSize.
func MaxLeafEntries(pageSize, keySize int) int {
	return (pageSize - leafHeaderSize) / (keySize + ridSize)
}

func encodeRID(dst []byte, r ixtypes.RID) {
	bx.PutU32(dst[0:4], r.PageNo)
	bx.PutU32(dst[4:8], r.Slot)
}

func decodeRID(src []byte) ixtypes.RID {
	return ixtypes.RID{PageNo: bx.U32(src[0:4]), Slot: bx.U32(src[4:8])}
}
