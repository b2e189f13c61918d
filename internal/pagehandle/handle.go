// Package pagehandle provides the scoped page acquisition the rest of the
// tree is built on: a Handle pairs a page id with its pinned frame and
// guarantees exactly one release on every exit path, including error
// paths, per spec §4.2 and §9's pin-discipline design note.
package pagehandle

import "github.com/tuannm99/bptreeidx/internal/storagepage"

// Manager is the subset of the buffer manager a Handle needs. bufmgr.Pool
// satisfies it structurally.
type Manager interface {
	ReadPage(pageID uint32) (*storagepage.Page, error)
	AllocPage() (uint32, *storagepage.Page, error)
	UnpinPage(pageID uint32, dirty bool) error
}

// Handle is a scoped, single-release acquisition of a pinned frame.
type Handle struct {
	bm       Manager
	id       uint32
	page     *storagepage.Page
	dirty    bool
	released bool
}

// Read pins and wraps an existing page.
func Read(bm Manager, pageID uint32) (*Handle, error) {
	page, err := bm.ReadPage(pageID)
	if err != nil {
		return nil, err
	}
	return &Handle{bm: bm, id: pageID, page: page}, nil
}

// Alloc pins and wraps a freshly allocated page.
func Alloc(bm Manager) (*Handle, error) {
	id, page, err := bm.AllocPage()
	if err != nil {
		return nil, err
	}
	return &Handle{bm: bm, id: id, page: page}, nil
}

// PageID returns the id of the held page.
func (h *Handle) PageID() uint32 { return h.id }

// Page returns the underlying page image.
func (h *Handle) Page() *storagepage.Page { return h.page }

// MarkDirty records that this acquisition mutated the page's byte image;
// the dirty bit is passed to unPinPage on Release.
func (h *Handle) MarkDirty() { h.dirty = true }

// Release unpins the page exactly once; subsequent calls are no-ops, which
// keeps defer/early-return combinations safe.
func (h *Handle) Release() error {
	if h.released {
		return nil
	}
	h.released = true
	return h.bm.UnpinPage(h.id, h.dirty)
}
