// Package storagepage defines the fixed-size byte block the rest of the
// index is built on top of. It intentionally carries no knowledge of what
// is stored inside the buffer — the node codec (package node) owns that.
package storagepage

// PageSize is the size of a single page, matching the teacher's 8 KiB
// default block size (internal/storage.PageSize in novasql).
const PageSize = 8192

// NullPageID is the null sentinel; no real page is ever assigned id 0.
const NullPageID uint32 = 0

// Page is a fixed-size, zero-copy byte buffer plus the page id it was
// loaded under. All multi-byte scalars stored in Buf are little-endian
// whatever the host byte order, so a file reads the same on any
// architecture.
type Page struct {
	id  uint32
	Buf []byte
}

// New allocates a freshly zeroed page for id.
func New(id uint32) *Page {
	p := &Page{id: id, Buf: make([]byte, PageSize)}
	return p
}

// Load wraps an existing byte buffer (e.g. just read from disk) as the
// page image for id, without clearing its content.
func Load(id uint32, buf []byte) *Page {
	return &Page{id: id, Buf: buf}
}

// PageID returns the id this frame currently holds.
func (p *Page) PageID() uint32 { return p.id }

// Reset zeroes the buffer and reassigns it to id. A freshly zeroed page is
// a valid empty node (k=0, all entries zero) per the node codec contract.
func (p *Page) Reset(id uint32) {
	for i := range p.Buf {
		p.Buf[i] = 0
	}
	p.id = id
}

// IsZero reports whether every byte of the page is zero.
func (p *Page) IsZero() bool {
	for _, b := range p.Buf {
		if b != 0 {
			return false
		}
	}
	return true
}
