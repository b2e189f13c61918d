// Package relation is the reference Scanner implementation the Index
// Lifecycle drives during bulk build (spec §6 treats the relation scanner
// as an external collaborator; this package ships one so the lifecycle has
// something concrete to build against). It is adapted from the teacher's
// heap.Table slotting idiom (internal/heap/table.go's TID) but simplified
// to a flat, read-only, fixed-width record file — no buffer manager or
// in-place mutation of its own.
package relation

import (
	"errors"
	"io"
	"os"

	"github.com/tuannm99/bptreeidx/internal/ixtypes"
	"github.com/tuannm99/bptreeidx/internal/storagepage"
)

// ErrRecordSizeNotPositive is returned when a relation is opened with a
// non-positive fixed record width.
var ErrRecordSizeNotPositive = errors.New("relation: record size must be positive")

// Scanner is the external relation-scanner collaborator (spec §6):
// ScanNext yields the next record's locator until it raises
// ixtypes.ErrEndOfFile; GetRecord then returns that record's bytes.
type Scanner interface {
	ScanNext() (ixtypes.RID, error)
	GetRecord() ([]byte, error)
}

// FileScan is a Scanner over a flat file of fixed-width records, packed
// recordsPerPage to a synthetic page so record locators look like the
// page/slot RIDs the index expects.
type FileScan struct {
	f              *os.File
	recordSize     int
	recordsPerPage int
	recordCount    int
	cursor         int
	current        int
}

// OpenFileScan opens path as a flat relation file of fixed-width records.
func OpenFileScan(path string, recordSize int) (*FileScan, error) {
	if recordSize <= 0 {
		return nil, ErrRecordSizeNotPositive
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	recordsPerPage := storagepage.PageSize / recordSize
	if recordsPerPage < 1 {
		recordsPerPage = 1
	}

	return &FileScan{
		f:              f,
		recordSize:     recordSize,
		recordsPerPage: recordsPerPage,
		recordCount:    int(info.Size()) / recordSize,
		current:        -1,
	}, nil
}

// ScanNext returns the next record's synthetic (page, slot) locator and
// advances the scanner's current-record pointer, or fails with
// ixtypes.ErrEndOfFile once every record has been visited.
func (fs *FileScan) ScanNext() (ixtypes.RID, error) {
	if fs.cursor >= fs.recordCount {
		return ixtypes.RID{}, ixtypes.ErrEndOfFile
	}
	idx := fs.cursor
	fs.cursor++
	fs.current = idx
	return ixtypes.RID{
		PageNo: uint32(idx/fs.recordsPerPage) + 1,
		Slot:   uint32(idx%fs.recordsPerPage) + 1,
	}, nil
}

// GetRecord reads the fixed-width bytes of the record most recently
// returned by ScanNext.
func (fs *FileScan) GetRecord() ([]byte, error) {
	if fs.current < 0 {
		return nil, ixtypes.ErrScanNotInitialized
	}
	buf := make([]byte, fs.recordSize)
	off := int64(fs.current) * int64(fs.recordSize)
	if _, err := fs.f.ReadAt(buf, off); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

// Close releases the underlying file handle.
func (fs *FileScan) Close() error { return fs.f.Close() }

// ExtractKey slices the keySize bytes at attrByteOffset out of record.
func ExtractKey(record []byte, attrByteOffset, keySize int) []byte {
	return record[attrByteOffset : attrByteOffset+keySize]
}
