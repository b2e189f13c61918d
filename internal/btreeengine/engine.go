// Package btreeengine is the Tree Engine (spec §4.3): search descent,
// preemptive node splitting and insertion, orchestrating the node codec
// and page handles against the buffer manager. It never stores an entry
// outside of a single completed insertEntry call, and never leaves a page
// pinned across calls (I5).
package btreeengine

import (
	"log/slog"

	"github.com/tuannm99/bptreeidx/internal/ixtypes"
	"github.com/tuannm99/bptreeidx/internal/keydomain"
	"github.com/tuannm99/bptreeidx/internal/node"
	"github.com/tuannm99/bptreeidx/internal/pagehandle"
	"github.com/tuannm99/bptreeidx/internal/storagepage"
)

// Engine is the Tree Engine, generic over one key domain's codec.
type Engine[K any] struct {
	bm    pagehandle.Manager
	codec keydomain.Codec[K]
	nlmax int
	lmax  int
}

// New builds an Engine for the given buffer manager and key codec, sizing
// NLMAX/LMAX from the codec's encoded key size and the fixed page size.
func New[K any](bm pagehandle.Manager, codec keydomain.Codec[K]) *Engine[K] {
	return &Engine[K]{
		bm:    bm,
		codec: codec,
		nlmax: node.MaxNonLeafEntries(storagepage.PageSize, codec.Size()),
		lmax:  node.MaxLeafEntries(storagepage.PageSize, codec.Size()),
	}
}

// NLMAX is the internal-node fan-out for this engine's key domain.
func (e *Engine[K]) NLMAX() int { return e.nlmax }

// LMAX is the leaf fan-out for this engine's key domain.
func (e *Engine[K]) LMAX() int { return e.lmax }

// InsertEntry adds exactly one (key, rid) entry, preemptively splitting
// full nodes on the way down so every insertion needs a single top-down
// pass (spec §4.3). It returns the index's root page id, which changes
// only when the root itself was full and split.
func (e *Engine[K]) InsertEntry(root uint32, key K, rid ixtypes.RID) (uint32, error) {
	rh, err := pagehandle.Read(e.bm, root)
	if err != nil {
		return 0, err
	}
	rn := node.AsNonLeaf[K](rh.Page(), e.codec, e.nlmax)

	if rn.NumKeys() == 0 {
		return e.initializeFirstInsert(rh, rn, key, rid)
	}

	if rn.NumKeys() == e.nlmax {
		newRootID, nrh, nrn, err := e.growRoot(root, rh, rn)
		if err != nil {
			_ = rh.Release()
			return 0, err
		}
		root, rh, rn = newRootID, nrh, nrn
	}

	if err := e.descendInsert(rh, rn, key, rid); err != nil {
		return 0, err
	}
	return root, nil
}

// initializeFirstInsert implements spec §4.3 step 2: the root is the
// empty sentinel (k==0, no leaves allocated yet). Two leaves are created,
// L0 empty and L1 holding the single entry, and the root becomes a
// one-key, two-child, level-1 node.
func (e *Engine[K]) initializeFirstInsert(rh *pagehandle.Handle, rn *node.NonLeaf[K], key K, rid ixtypes.RID) (uint32, error) {
	l0h, err := pagehandle.Alloc(e.bm)
	if err != nil {
		_ = rh.Release()
		return 0, err
	}
	l0 := node.InitLeaf[K](l0h.Page(), e.codec, e.lmax)

	l1h, err := pagehandle.Alloc(e.bm)
	if err != nil {
		_ = l0h.Release()
		_ = rh.Release()
		return 0, err
	}
	l1 := node.InitLeaf[K](l1h.Page(), e.codec, e.lmax)
	l1.SetSingle(key, rid)
	l0.SetRightSibPageNo(l1h.PageID())

	rn.SetLevel(1)
	rn.SetRoot1(key, l0h.PageID(), l1h.PageID())

	l0h.MarkDirty()
	l1h.MarkDirty()
	rh.MarkDirty()

	slog.Debug("btreeengine.initializeFirstInsert",
		"root", rh.PageID(), "left", l0h.PageID(), "right", l1h.PageID())

	return rh.PageID(), releaseAll(l0h, l1h, rh)
}

// growRoot implements spec §4.3 step 3: the root is full, so a new root
// N' is allocated one level above with the old root as its sole child,
// then splitChild runs on that child. The old root's handle (rh/rn) is
// released here once the split is written; the caller descends from the
// returned new root handle.
func (e *Engine[K]) growRoot(oldRoot uint32, rh *pagehandle.Handle, rn *node.NonLeaf[K]) (uint32, *pagehandle.Handle, *node.NonLeaf[K], error) {
	nrh, err := pagehandle.Alloc(e.bm)
	if err != nil {
		return 0, nil, nil, err
	}
	nrn := node.InitNonLeaf[K](nrh.Page(), e.codec, e.nlmax, rn.Level()+1)
	nrn.SetRootOneChild(rn.Level()+1, oldRoot)

	righth, err := pagehandle.Alloc(e.bm)
	if err != nil {
		_ = nrh.Release()
		return 0, nil, nil, err
	}
	rightNode := node.InitNonLeaf[K](righth.Page(), e.codec, e.nlmax, rn.Level())

	sep := rn.SplitInto(rightNode)
	nrn.InsertSeparator(0, sep, righth.PageID())

	rh.MarkDirty()
	righth.MarkDirty()
	nrh.MarkDirty()

	slog.Debug("btreeengine.growRoot", "oldRoot", oldRoot, "newRoot", nrh.PageID(), "rightSibling", righth.PageID())

	if err := releaseAll(rh, righth); err != nil {
		_ = nrh.Release()
		return 0, nil, nil, err
	}
	return nrh.PageID(), nrh, nrn, nil
}

// descendInsert walks from a known-non-full node nh/nn down to a leaf,
// preemptively splitting any full child it is about to enter, and
// performs the in-leaf insertion at the bottom (spec §4.3's descent rule).
func (e *Engine[K]) descendInsert(nh *pagehandle.Handle, nn *node.NonLeaf[K], key K, rid ixtypes.RID) error {
	for {
		pos := nn.FindChildStrict(key)
		childID := nn.ChildAt(pos)

		if nn.Level() == 1 {
			return e.descendIntoLeaf(nh, nn, pos, childID, key, rid)
		}

		ch, err := pagehandle.Read(e.bm, childID)
		if err != nil {
			_ = nh.Release()
			return err
		}
		cn := node.AsNonLeaf[K](ch.Page(), e.codec, e.nlmax)

		if cn.NumKeys() == e.nlmax {
			righth, err := pagehandle.Alloc(e.bm)
			if err != nil {
				_ = ch.Release()
				_ = nh.Release()
				return err
			}
			rightNode := node.InitNonLeaf[K](righth.Page(), e.codec, e.nlmax, cn.Level())
			sep := cn.SplitInto(rightNode)
			nn.InsertSeparator(pos, sep, righth.PageID())
			ch.MarkDirty()
			righth.MarkDirty()
			nh.MarkDirty()

			if e.codec.Compare(key, sep) > 0 {
				if err := ch.Release(); err != nil {
					_ = righth.Release()
					_ = nh.Release()
					return err
				}
				ch, cn = righth, node.AsNonLeaf[K](righth.Page(), e.codec, e.nlmax)
			} else if err := righth.Release(); err != nil {
				_ = ch.Release()
				_ = nh.Release()
				return err
			}
		}

		if err := nh.Release(); err != nil {
			_ = ch.Release()
			return err
		}
		nh, nn = ch, cn
	}
}

// descendIntoLeaf handles the level-1 case: childID names a leaf. It is
// split first if full, then the entry is written into whichever half the
// key belongs to.
func (e *Engine[K]) descendIntoLeaf(nh *pagehandle.Handle, nn *node.NonLeaf[K], pos int, childID uint32, key K, rid ixtypes.RID) error {
	lh, err := pagehandle.Read(e.bm, childID)
	if err != nil {
		_ = nh.Release()
		return err
	}
	leaf := node.AsLeaf[K](lh.Page(), e.codec, e.lmax)

	if leaf.NumKeys() == e.lmax {
		righth, err := pagehandle.Alloc(e.bm)
		if err != nil {
			_ = lh.Release()
			_ = nh.Release()
			return err
		}
		rightLeaf := node.InitLeaf[K](righth.Page(), e.codec, e.lmax)
		sep := leaf.SplitInto(rightLeaf)
		nn.InsertSeparator(pos, sep, righth.PageID())
		lh.MarkDirty()
		righth.MarkDirty()
		nh.MarkDirty()

		// Leaf level: a key equal to the separator descends right (btree.cpp:412).
		if e.codec.Compare(key, sep) >= 0 {
			if err := lh.Release(); err != nil {
				_ = righth.Release()
				_ = nh.Release()
				return err
			}
			lh, leaf = righth, node.AsLeaf[K](righth.Page(), e.codec, e.lmax)
		} else if err := righth.Release(); err != nil {
			_ = lh.Release()
			_ = nh.Release()
			return err
		}
	}

	leaf.Insert(key, rid)
	lh.MarkDirty()

	errLeaf := lh.Release()
	errParent := nh.Release()
	if errLeaf != nil {
		return errLeaf
	}
	return errParent
}

func releaseAll(handles ...*pagehandle.Handle) error {
	var first error
	for _, h := range handles {
		if err := h.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
