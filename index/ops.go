package index

import (
	"github.com/tuannm99/bptreeidx/internal/btreeengine"
	"github.com/tuannm99/bptreeidx/internal/ixtypes"
	"github.com/tuannm99/bptreeidx/internal/keydomain"
	"github.com/tuannm99/bptreeidx/internal/node"
	"github.com/tuannm99/bptreeidx/internal/pagehandle"
	"github.com/tuannm99/bptreeidx/internal/scancursor"
	"github.com/tuannm99/bptreeidx/internal/storagepage"
)

// coreOps is the non-generic seam between the public, runtime-typed Index
// API and the generic Tree Engine / Scan Cursor. attrType selects one of
// three concrete typedOps[K] instantiations at construction time; public
// calls that take keys do their any->K type assertions here, once per
// argument per call, never one per key comparison (spec §9's "avoid
// runtime dispatch per comparison").
type coreOps interface {
	initEmptyRoot(page *storagepage.Page)
	insertEntry(root uint32, key any, rid ixtypes.RID) (uint32, error)
	startScan(root uint32, lowVal any, lowOp ixtypes.Operator, highVal any, highOp ixtypes.Operator) error
	scanNext(out *ixtypes.RID) error
	endScan() error
	isExecuting() bool
	decodeKey(record []byte, attrByteOffset int) any
}

type typedOps[K any] struct {
	engine *btreeengine.Engine[K]
	cursor *scancursor.Cursor[K]
	codec  keydomain.Codec[K]
	nlmax  int
}

func newTypedOps[K any](bm pagehandle.Manager, codec keydomain.Codec[K]) *typedOps[K] {
	engine := btreeengine.New[K](bm, codec)
	cursor := scancursor.New[K](bm, codec, engine.NLMAX(), engine.LMAX())
	return &typedOps[K]{engine: engine, cursor: cursor, codec: codec, nlmax: engine.NLMAX()}
}

// newOps selects the concrete key-domain adapter for attrType.
func newOps(attrType ixtypes.Datatype, bm pagehandle.Manager) (coreOps, error) {
	switch attrType {
	case ixtypes.Integer:
		return newTypedOps[int32](bm, keydomain.Int32Codec{}), nil
	case ixtypes.Double:
		return newTypedOps[float64](bm, keydomain.Float64Codec{}), nil
	case ixtypes.String:
		return newTypedOps[keydomain.StringKey](bm, keydomain.String10Codec{}), nil
	default:
		return nil, ixtypes.ErrBadIndexInfo
	}
}

func (t *typedOps[K]) initEmptyRoot(page *storagepage.Page) {
	node.InitNonLeaf[K](page, t.codec, t.nlmax, 1)
}

func (t *typedOps[K]) insertEntry(root uint32, key any, rid ixtypes.RID) (uint32, error) {
	k, ok := key.(K)
	if !ok {
		return 0, ixtypes.ErrBadIndexInfo
	}
	return t.engine.InsertEntry(root, k, rid)
}

func (t *typedOps[K]) startScan(root uint32, lowVal any, lowOp ixtypes.Operator, highVal any, highOp ixtypes.Operator) error {
	lv, ok := lowVal.(K)
	if !ok {
		return ixtypes.ErrBadIndexInfo
	}
	hv, ok := highVal.(K)
	if !ok {
		return ixtypes.ErrBadIndexInfo
	}
	return t.cursor.StartScan(root, lv, lowOp, hv, highOp)
}

func (t *typedOps[K]) scanNext(out *ixtypes.RID) error { return t.cursor.ScanNext(out) }

func (t *typedOps[K]) endScan() error { return t.cursor.EndScan() }

func (t *typedOps[K]) isExecuting() bool { return t.cursor.IsExecuting() }

func (t *typedOps[K]) decodeKey(record []byte, attrByteOffset int) any {
	return t.codec.Decode(record[attrByteOffset:])
}
