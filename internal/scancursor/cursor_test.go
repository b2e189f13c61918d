package scancursor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/bptreeidx/internal/btreeengine"
	"github.com/tuannm99/bptreeidx/internal/bufmgr"
	"github.com/tuannm99/bptreeidx/internal/ixtypes"
	"github.com/tuannm99/bptreeidx/internal/keydomain"
	"github.com/tuannm99/bptreeidx/internal/node"
	"github.com/tuannm99/bptreeidx/internal/pagehandle"
	"github.com/tuannm99/bptreeidx/internal/pagestore"
)

func newScanFixture(t *testing.T, keys []int32) (*bufmgr.Pool, uint32, int, int) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.idx")
	f, err := pagestore.Open(path, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	pool := bufmgr.NewPool(f, 64)
	codec := keydomain.Int32Codec{}
	e := btreeengine.New[int32](pool, codec)

	rh, err := pagehandle.Alloc(pool)
	require.NoError(t, err)
	node.InitNonLeaf[int32](rh.Page(), codec, e.NLMAX(), 0)
	rh.MarkDirty()
	root := rh.PageID()
	require.NoError(t, rh.Release())

	for i, k := range keys {
		newRoot, err := e.InsertEntry(root, k, ixtypes.RID{PageNo: 1, Slot: uint32(i + 1)})
		require.NoError(t, err)
		root = newRoot
	}

	return pool, root, e.NLMAX(), e.LMAX()
}

func drain(t *testing.T, c *Cursor[int32]) []ixtypes.RID {
	t.Helper()
	var out []ixtypes.RID
	for {
		var rid ixtypes.RID
		err := c.ScanNext(&rid)
		if err == ixtypes.ErrIndexScanCompleted {
			break
		}
		require.NoError(t, err)
		out = append(out, rid)
	}
	return out
}

func TestCursor_S1_MiddleRangeAscendingOrder(t *testing.T) {
	pool, root, nlmax, lmax := newScanFixture(t, []int32{5, 3, 8, 1, 9, 2, 7, 4, 6})
	c := New[int32](pool, keydomain.Int32Codec{}, nlmax, lmax)

	require.NoError(t, c.StartScan(root, 3, ixtypes.GTE, 7, ixtypes.LTE))
	rids := drain(t, c)
	require.NoError(t, c.EndScan())

	wantSlots := []uint32{2, 8, 1, 9, 7} // rids for keys 3,4,5,6,7 by insertion slot
	require.Len(t, rids, 5)
	for i, r := range rids {
		require.Equal(t, wantSlots[i], r.Slot)
	}
	require.Zero(t, pool.PinCount())
}

func TestCursor_S2_AscendingBuildOpenRange(t *testing.T) {
	keys := make([]int32, 1000)
	for i := range keys {
		keys[i] = int32(i + 1)
	}
	pool, root, nlmax, lmax := newScanFixture(t, keys)
	c := New[int32](pool, keydomain.Int32Codec{}, nlmax, lmax)

	require.NoError(t, c.StartScan(root, 500, ixtypes.GT, 505, ixtypes.LT))
	rids := drain(t, c)
	require.NoError(t, c.EndScan())

	require.Len(t, rids, 4)
	for i, r := range rids {
		require.Equal(t, uint32(501+i), r.Slot)
	}
	require.Zero(t, pool.PinCount())
}

func TestCursor_S5_EmptyOpenInterval(t *testing.T) {
	pool, root, nlmax, lmax := newScanFixture(t, []int32{1, 5, 10, 15, 20})
	c := New[int32](pool, keydomain.Int32Codec{}, nlmax, lmax)

	require.NoError(t, c.StartScan(root, 10, ixtypes.GT, 10, ixtypes.LT))
	rids := drain(t, c)
	require.NoError(t, c.EndScan())

	require.Empty(t, rids)
	require.Zero(t, pool.PinCount())
}

func TestCursor_S6_BadOpcodesAndBadRange(t *testing.T) {
	pool, root, nlmax, lmax := newScanFixture(t, []int32{1, 2, 3})
	c := New[int32](pool, keydomain.Int32Codec{}, nlmax, lmax)

	err := c.StartScan(root, 1, ixtypes.LT, 10, ixtypes.LT)
	require.ErrorIs(t, err, ixtypes.ErrBadOpcodes)

	err = c.StartScan(root, 10, ixtypes.GTE, 5, ixtypes.LTE)
	require.ErrorIs(t, err, ixtypes.ErrBadScanRange)

	require.Zero(t, pool.PinCount())
}

func TestCursor_ScanNextBeforeStartScanFails(t *testing.T) {
	pool, _, nlmax, lmax := newScanFixture(t, []int32{1})
	c := New[int32](pool, keydomain.Int32Codec{}, nlmax, lmax)

	var rid ixtypes.RID
	err := c.ScanNext(&rid)
	require.ErrorIs(t, err, ixtypes.ErrScanNotInitialized)
}

func TestCursor_EndScanAfterCompletionIsIdempotent(t *testing.T) {
	pool, root, nlmax, lmax := newScanFixture(t, []int32{1, 2, 3})
	c := New[int32](pool, keydomain.Int32Codec{}, nlmax, lmax)

	require.NoError(t, c.StartScan(root, 0, ixtypes.GTE, 100, ixtypes.LTE))
	drain(t, c) // runs to ErrIndexScanCompleted, which already transitions to Idle

	require.NoError(t, c.EndScan())
	require.NoError(t, c.EndScan())
	require.Zero(t, pool.PinCount())
}

func TestCursor_SecondStartScanReleasesPriorLeaf(t *testing.T) {
	pool, root, nlmax, lmax := newScanFixture(t, []int32{1, 2, 3, 4, 5})
	c := New[int32](pool, keydomain.Int32Codec{}, nlmax, lmax)

	require.NoError(t, c.StartScan(root, 1, ixtypes.GTE, 5, ixtypes.LTE))
	var rid ixtypes.RID
	require.NoError(t, c.ScanNext(&rid))

	require.NoError(t, c.StartScan(root, 2, ixtypes.GTE, 3, ixtypes.LTE))
	rids := drain(t, c)
	require.NoError(t, c.EndScan())

	require.Len(t, rids, 2)
	require.Zero(t, pool.PinCount())
}
