// Package scancursor is the Scan Cursor (spec §4.4): a bounded range-scan
// state machine over the same node codec and page handles the tree engine
// uses, holding at most one pinned leaf at any point between scanNext
// calls.
package scancursor

import (
	"github.com/tuannm99/bptreeidx/internal/ixtypes"
	"github.com/tuannm99/bptreeidx/internal/keydomain"
	"github.com/tuannm99/bptreeidx/internal/node"
	"github.com/tuannm99/bptreeidx/internal/pagehandle"
)

type scanState uint8

const (
	idle scanState = iota
	executing
)

// Cursor is the Scan Cursor, generic over one key domain's codec.
type Cursor[K any] struct {
	bm    pagehandle.Manager
	codec keydomain.Codec[K]
	nlmax int
	lmax  int

	state scanState
	lowOp, highOp   ixtypes.Operator
	lowVal, highVal K

	leaf      *pagehandle.Handle
	nextEntry int
}

// New builds an idle Cursor over bm for the given codec and node capacities.
func New[K any](bm pagehandle.Manager, codec keydomain.Codec[K], nlmax, lmax int) *Cursor[K] {
	return &Cursor[K]{bm: bm, codec: codec, nlmax: nlmax, lmax: lmax}
}

// IsExecuting reports whether the cursor currently holds a scan open.
func (c *Cursor[K]) IsExecuting() bool { return c.state == executing }

// StartScan validates the opcodes and range, descends from root to the
// leaf containing the lower bound, and positions the cursor for scanNext.
// If a scan is already executing it is implicitly ended first (spec §9
// open question: a second startScan without an intervening endScan
// releases the prior leaf rather than leaking it).
func (c *Cursor[K]) StartScan(root uint32, lowVal K, lowOp ixtypes.Operator, highVal K, highOp ixtypes.Operator) error {
	if lowOp != ixtypes.GT && lowOp != ixtypes.GTE {
		return ixtypes.ErrBadOpcodes
	}
	if highOp != ixtypes.LT && highOp != ixtypes.LTE {
		return ixtypes.ErrBadOpcodes
	}
	if c.codec.Compare(lowVal, highVal) > 0 {
		return ixtypes.ErrBadScanRange
	}

	if c.state == executing {
		if err := c.EndScan(); err != nil {
			return err
		}
	}

	lh, err := c.descendToLeaf(root, lowVal)
	if err != nil {
		return err
	}

	c.lowVal, c.lowOp = lowVal, lowOp
	c.highVal, c.highOp = highVal, highOp
	c.leaf = lh
	c.nextEntry = 0
	c.state = executing
	return nil
}

// descendToLeaf mirrors insertEntry's descent but follows the lower-bound
// rule at every internal node (spec §4.4): smallest pos with
// lowVal <= keyArray[pos], else k.
func (c *Cursor[K]) descendToLeaf(root uint32, lowVal K) (*pagehandle.Handle, error) {
	nh, err := pagehandle.Read(c.bm, root)
	if err != nil {
		return nil, err
	}
	nn := node.AsNonLeaf[K](nh.Page(), c.codec, c.nlmax)

	for nn.Level() != 1 {
		pos := nn.FindChildAtLeast(lowVal)
		childID := nn.ChildAt(pos)
		ch, err := pagehandle.Read(c.bm, childID)
		if err != nil {
			_ = nh.Release()
			return nil, err
		}
		if err := nh.Release(); err != nil {
			_ = ch.Release()
			return nil, err
		}
		nh = ch
		nn = node.AsNonLeaf[K](nh.Page(), c.codec, c.nlmax)
	}

	pos := nn.FindChildAtLeast(lowVal)
	leafID := nn.ChildAt(pos)
	lh, err := pagehandle.Read(c.bm, leafID)
	if err != nil {
		_ = nh.Release()
		return nil, err
	}
	if err := nh.Release(); err != nil {
		_ = lh.Release()
		return nil, err
	}
	return lh, nil
}

// ScanNext writes the next qualifying rid into out, in ascending key order.
// It fails with ErrIndexScanCompleted once a key violates the upper bound
// or the leaf chain runs out, and with ErrScanNotInitialized if no scan is
// executing.
func (c *Cursor[K]) ScanNext(out *ixtypes.RID) error {
	if c.state != executing {
		return ixtypes.ErrScanNotInitialized
	}

	for {
		leaf := node.AsLeaf[K](c.leaf.Page(), c.codec, c.lmax)

		if c.nextEntry >= leaf.NumKeys() {
			next := leaf.RightSibPageNo()
			if err := c.leaf.Release(); err != nil {
				c.leaf = nil
				c.state = idle
				return err
			}
			if next == 0 {
				c.leaf = nil
				c.state = idle
				return ixtypes.ErrIndexScanCompleted
			}
			lh, err := pagehandle.Read(c.bm, next)
			if err != nil {
				c.leaf = nil
				c.state = idle
				return err
			}
			c.leaf = lh
			c.nextEntry = 0
			continue
		}

		key := leaf.KeyAt(c.nextEntry)

		if !c.satisfiesLow(key) {
			c.nextEntry++
			continue
		}

		if !c.satisfiesHigh(key) {
			if err := c.leaf.Release(); err != nil {
				c.leaf = nil
				c.state = idle
				return err
			}
			c.leaf = nil
			c.state = idle
			return ixtypes.ErrIndexScanCompleted
		}

		*out = leaf.RIDAt(c.nextEntry)
		c.nextEntry++
		return nil
	}
}

// EndScan releases the cursor's pinned leaf and returns to Idle. It is
// always safe to call: a scan already ended by ScanCompleted, or no scan
// ever started, both return cleanly (spec P7).
func (c *Cursor[K]) EndScan() error {
	if c.state != executing {
		return nil
	}
	var err error
	if c.leaf != nil {
		err = c.leaf.Release()
		c.leaf = nil
	}
	c.state = idle
	return err
}

func (c *Cursor[K]) satisfiesLow(key K) bool {
	cmp := c.codec.Compare(key, c.lowVal)
	if c.lowOp == ixtypes.GT {
		return cmp > 0
	}
	return cmp >= 0
}

func (c *Cursor[K]) satisfiesHigh(key K) bool {
	cmp := c.codec.Compare(key, c.highVal)
	if c.highOp == ixtypes.LT {
		return cmp < 0
	}
	return cmp <= 0
}
