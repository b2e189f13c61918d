// Package bufmgr is the page-granular buffer manager the B+-tree core is
// built against: pin/unpin, allocation, dirty marking and flush, backed by
// a CLOCK-replacement frame pool. Adapted from the teacher's
// internal/bufferpool.Pool, which is bound to a single storage.FileSet; this
// version is bound to a single pagestore.File, matching this module's
// one-file-per-index persisted layout.
package bufmgr

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/tuannm99/bptreeidx/internal/pagestore"
	"github.com/tuannm99/bptreeidx/internal/storagepage"
)

// ErrNoFreeFrame is returned when every frame is pinned and none can be
// evicted to satisfy a new ReadPage/AllocPage request.
var ErrNoFreeFrame = errors.New("bufmgr: no free frame available (all pinned)")

// DefaultCapacity is used when a non-positive capacity is requested.
// A pool this size comfortably covers the O(tree height)+1 pinned pages a
// single insert needs (spec §5).
const DefaultCapacity = 16

// Manager is the contract the tree engine, scan cursor and index lifecycle
// consume. It mirrors spec §6's BufMgr: readPage/allocPage pin, unPinPage
// releases and tolerates being called on an already-unpinned page.
type Manager interface {
	ReadPage(pageID uint32) (*storagepage.Page, error)
	AllocPage() (uint32, *storagepage.Page, error)
	UnpinPage(pageID uint32, dirty bool) error
	FlushFile() error
	PinCount() int
}

type frame struct {
	page  *storagepage.Page
	dirty bool
	pin   int32

	// ref is the CLOCK reference bit: set whenever the frame is touched,
	// cleared when the hand passes over it and gives it a second chance.
	ref bool
}

// Pool is a fixed-capacity buffer pool bound to a single pagestore.File,
// using CLOCK replacement when full. A frame is evictable exactly when its
// slot is occupied (frames[idx] != nil) and unpinned (pin == 0); the hand
// sweeps the frame slice looking for such a slot with ref == false.
type Pool struct {
	file *pagestore.File

	mu        sync.Mutex
	frames    []*frame
	pageTable map[uint32]int
	capacity  int
	hand      int
}

var _ Manager = (*Pool)(nil)

// NewPool creates a buffer pool of the given capacity (frames) over file.
func NewPool(file *pagestore.File, capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{
		file:      file,
		frames:    make([]*frame, capacity),
		pageTable: make(map[uint32]int),
		capacity:  capacity,
	}
}

// ReadPage pins and returns the page for pageID, loading it from disk on a
// cache miss and evicting a CLOCK victim if the pool is full.
func (p *Pool) ReadPage(pageID uint32) (*storagepage.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.pageTable[pageID]; ok {
		f := p.frames[idx]
		f.pin++
		f.ref = true
		slog.Debug("bufmgr.ReadPage.hit", "pageID", pageID, "pin", f.pin)
		return f.page, nil
	}

	page, err := p.loadFromDisk(pageID)
	if err != nil {
		return nil, err
	}

	idx, err := p.placeLocked(pageID, page)
	if err != nil {
		return nil, err
	}
	slog.Debug("bufmgr.ReadPage.miss", "pageID", pageID, "frame", idx)
	return page, nil
}

// AllocPage extends the backing file by one page, pins and returns it.
func (p *Pool) AllocPage() (uint32, *storagepage.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pageID, err := p.file.AllocatePage()
	if err != nil {
		return 0, nil, err
	}
	page := storagepage.New(pageID)

	idx, err := p.placeLocked(pageID, page)
	if err != nil {
		return 0, nil, err
	}
	slog.Debug("bufmgr.AllocPage", "pageID", pageID, "frame", idx)
	return pageID, page, nil
}

// placeLocked inserts page into a free or evicted frame slot and pins it
// at count 1. Caller must hold p.mu.
func (p *Pool) placeLocked(pageID uint32, page *storagepage.Page) (int, error) {
	freeIdx := -1
	for i, f := range p.frames {
		if f == nil {
			freeIdx = i
			break
		}
	}

	if freeIdx == -1 {
		victimIdx, ok := p.evictLocked()
		if !ok {
			return -1, ErrNoFreeFrame
		}
		victim := p.frames[victimIdx]
		if victim.dirty {
			if err := p.file.WritePage(victim.page.PageID(), victim.page.Buf); err != nil {
				return -1, err
			}
		}
		delete(p.pageTable, victim.page.PageID())
		freeIdx = victimIdx
	}

	p.frames[freeIdx] = &frame{page: page, pin: 1, ref: true}
	p.pageTable[pageID] = freeIdx
	return freeIdx, nil
}

// evictLocked sweeps the CLOCK hand over the frame slice looking for an
// occupied, unpinned slot with ref == false, clearing ref on any slot it
// passes over with ref == true (the second chance). Caller must hold p.mu.
func (p *Pool) evictLocked() (int, bool) {
	n := len(p.frames)
	if n == 0 {
		return -1, false
	}
	for range 2 * n {
		idx := p.hand
		p.hand = (p.hand + 1) % n
		f := p.frames[idx]
		if f == nil || f.pin != 0 {
			continue
		}
		if !f.ref {
			return idx, true
		}
		f.ref = false
	}
	return -1, false
}

func (p *Pool) loadFromDisk(pageID uint32) (*storagepage.Page, error) {
	buf := make([]byte, storagepage.PageSize)
	if err := p.file.ReadPage(pageID, buf); err != nil {
		return nil, err
	}
	return storagepage.Load(pageID, buf), nil
}

// UnpinPage decreases the pin count of pageID and marks it dirty if
// requested. Unpinning a page this pool does not know about (already
// unpinned, or never pinned) is tolerated and returns nil, matching the
// endScan contract that tolerates NotPinned/NotFound.
func (p *Pool) UnpinPage(pageID uint32, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageTable[pageID]
	if !ok {
		return nil
	}
	f := p.frames[idx]
	if dirty {
		f.dirty = true
	}
	if f.pin > 0 {
		f.pin--
	}
	return nil
}

// FlushFile writes every dirty frame back to disk through the page store.
func (p *Pool) FlushFile() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range p.frames {
		if f == nil || !f.dirty {
			continue
		}
		if err := p.file.WritePage(f.page.PageID(), f.page.Buf); err != nil {
			return err
		}
		f.dirty = false
	}
	return nil
}

// PinCount returns the total pin count held across all frames — used by
// tests to assert the pin-balance invariant (I5 / P6).
func (p *Pool) PinCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, f := range p.frames {
		if f != nil {
			total += int(f.pin)
		}
	}
	return total
}
