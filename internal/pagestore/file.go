// Package pagestore is the append-only blob-file abstraction the buffer
// manager reads and writes pages through. It is one of the external
// collaborators the core only touches via a narrow interface (spec §6);
// this package supplies the reference, on-disk implementation so the
// module is runnable and testable end to end, grounded on the teacher's
// internal/storage.StorageManager / LocalFileSet (segment-at-an-offset
// read/write), simplified here to a single file per index instead of the
// teacher's 1 GiB segment rotation — a secondary index file never
// approaches that size.
package pagestore

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tuannm99/bptreeidx/internal/storagepage"
)

// ErrShortPage is returned when a read or write could not move exactly one
// page's worth of bytes.
var ErrShortPage = errors.New("pagestore: short page read or write")

// File is a single stable-page-id blob file. Page ids are 1-based; page 1
// is reserved by convention for the index's meta page (see index package).
type File struct {
	path string
	f    *os.File
}

// Exists reports whether a file already exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Open opens path for read/write, creating it if createIfAbsent is true and
// it does not yet exist.
func Open(path string, createIfAbsent bool) (*File, error) {
	flags := os.O_RDWR
	if createIfAbsent {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{path: path, f: f}, nil
}

// GetFirstPageNo returns the page id of the first page of the file — the
// meta page, by this module's convention.
func (file *File) GetFirstPageNo() uint32 { return 1 }

// PageCount returns how many whole pages currently exist in the file.
func (file *File) PageCount() (uint32, error) {
	info, err := file.f.Stat()
	if err != nil {
		return 0, err
	}
	return uint32(info.Size() / storagepage.PageSize), nil
}

// ReadPage reads exactly one page into dst, zero-filling any bytes beyond
// the current end of file so a never-written page reads as all zero.
func (file *File) ReadPage(pageID uint32, dst []byte) error {
	if len(dst) != storagepage.PageSize {
		return fmt.Errorf("pagestore: dst must be %d bytes", storagepage.PageSize)
	}
	off := int64(pageID-1) * storagepage.PageSize
	n, err := file.f.ReadAt(dst, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// WritePage writes exactly one page's worth of bytes at pageID's offset,
// extending the file as needed.
func (file *File) WritePage(pageID uint32, src []byte) error {
	if len(src) != storagepage.PageSize {
		return fmt.Errorf("pagestore: src must be %d bytes", storagepage.PageSize)
	}
	off := int64(pageID-1) * storagepage.PageSize
	n, err := file.f.WriteAt(src, off)
	if err != nil {
		return err
	}
	if n != storagepage.PageSize {
		return ErrShortPage
	}
	return nil
}

// AllocatePage extends the file by one all-zero page and returns its id;
// callers should always Reset() the in-memory Page before using it.
func (file *File) AllocatePage() (uint32, error) {
	count, err := file.PageCount()
	if err != nil {
		return 0, err
	}
	newID := count + 1
	zero := make([]byte, storagepage.PageSize)
	if err := file.WritePage(newID, zero); err != nil {
		return 0, err
	}
	return newID, nil
}

// Close releases the underlying OS file handle.
func (file *File) Close() error {
	return file.f.Close()
}
