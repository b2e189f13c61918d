package node

import (
	"errors"

	"github.com/tuannm99/bptreeidx/internal/bx"
	"github.com/tuannm99/bptreeidx/internal/ixtypes"
	"github.com/tuannm99/bptreeidx/internal/storagepage"
)

// ErrRelationNameTooLong is returned when a relation name does not fit the
// fixed meta-page field.
var ErrRelationNameTooLong = errors.New("node: relation name exceeds meta page field width")

// MetaRelationNameSize is the fixed width of the null-terminated relation
// name field stored in the meta page (spec §3).
const MetaRelationNameSize = 48

const (
	metaOffRelationName   = 0
	metaOffAttrByteOffset = MetaRelationNameSize
	metaOffAttrType       = metaOffAttrByteOffset + 4
	metaOffRootPageNo     = metaOffAttrType + 1
)

// Meta is a typed view over the index's meta page: relationName,
// attrByteOffset, attrType, rootPageNo.
type Meta struct {
	page *storagepage.Page
}

// AsMeta wraps an existing page as a meta-page view.
func AsMeta(page *storagepage.Page) *Meta { return &Meta{page: page} }

// Init writes a freshly created meta page's fixed fields.
func (m *Meta) Init(relationName string, attrByteOffset int, attrType ixtypes.Datatype, rootPageNo uint32) error {
	m.page.Reset(m.page.PageID())
	if err := m.SetRelationName(relationName); err != nil {
		return err
	}
	m.SetAttrByteOffset(attrByteOffset)
	m.SetAttrType(attrType)
	m.SetRootPageNo(rootPageNo)
	return nil
}

// RelationName returns the null-terminated relation name.
func (m *Meta) RelationName() string {
	raw := m.page.Buf[metaOffRelationName : metaOffRelationName+MetaRelationNameSize]
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	return string(raw[:n])
}

// SetRelationName writes name, null-padded, into the fixed-width field.
func (m *Meta) SetRelationName(name string) error {
	if len(name) >= MetaRelationNameSize {
		return ErrRelationNameTooLong
	}
	dst := m.page.Buf[metaOffRelationName : metaOffRelationName+MetaRelationNameSize]
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, name)
	return nil
}

// AttrByteOffset returns the offset into each source record where the key lives.
func (m *Meta) AttrByteOffset() int {
	return int(int32(bx.U32At(m.page.Buf, metaOffAttrByteOffset)))
}

// SetAttrByteOffset sets the source-record key offset.
func (m *Meta) SetAttrByteOffset(off int) {
	bx.PutU32At(m.page.Buf, metaOffAttrByteOffset, uint32(int32(off)))
}

// AttrType returns the key domain.
func (m *Meta) AttrType() ixtypes.Datatype {
	return ixtypes.Datatype(m.page.Buf[metaOffAttrType])
}

// SetAttrType sets the key domain.
func (m *Meta) SetAttrType(t ixtypes.Datatype) { m.page.Buf[metaOffAttrType] = byte(t) }

// RootPageNo returns the current root page id.
func (m *Meta) RootPageNo() uint32 { return bx.U32At(m.page.Buf, metaOffRootPageNo) }

// SetRootPageNo sets the current root page id.
func (m *Meta) SetRootPageNo(pageID uint32) { bx.PutU32At(m.page.Buf, metaOffRootPageNo, pageID) }
