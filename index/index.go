// Package index is the Index Lifecycle (spec §4.5): derives the index's
// file name, opens-or-creates its single blob file, manages the meta page,
// drives bulk build from an injected relation scanner, and exposes
// insertEntry/startScan/scanNext/endScan to the caller. It is the only
// package in this module that resolves a runtime Datatype to a concrete
// generic key-domain instantiation (see ops.go).
package index

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/tuannm99/bptreeidx/internal/bufmgr"
	"github.com/tuannm99/bptreeidx/internal/ixtypes"
	"github.com/tuannm99/bptreeidx/internal/node"
	"github.com/tuannm99/bptreeidx/internal/pagehandle"
	"github.com/tuannm99/bptreeidx/internal/pagestore"
	"github.com/tuannm99/bptreeidx/internal/relation"
)

// metaPageID is the fixed page id of the meta page — always the first
// page of the index's blob file (spec §6's persisted layout).
const metaPageID = 1

// Config names the index instance: which relation, which attribute, and
// where its file lives.
type Config struct {
	Dir            string
	RelationName   string
	AttrByteOffset int
	AttrType       ixtypes.Datatype
	// BufCapacity is the buffer pool frame count; DefaultCapacity is used
	// when zero.
	BufCapacity int
}

// FileName derives the index's deterministic file name (spec §4.5).
func (c Config) FileName() string {
	return fmt.Sprintf("%s.%d", c.RelationName, c.AttrByteOffset)
}

// Index is the public, runtime-typed B+-tree secondary index.
type Index struct {
	cfg  Config
	file *pagestore.File
	pool *bufmgr.Pool
	ops  coreOps
	root uint32

	closed atomic.Bool
}

// Open opens cfg's index file if it exists, recovering the root from its
// meta page, or creates it and bulk-builds from scanner if it does not.
// scanner may be nil to create an empty index with no bulk build.
func Open(cfg Config, scanner relation.Scanner) (*Index, error) {
	path := filepath.Join(cfg.Dir, cfg.FileName())
	isNew := !pagestore.Exists(path)

	f, err := pagestore.Open(path, true)
	if err != nil {
		return nil, err
	}

	pool := bufmgr.NewPool(f, cfg.BufCapacity)
	ix := &Index{cfg: cfg, file: f, pool: pool}

	if isNew {
		if err := ix.create(scanner); err != nil {
			_ = f.Close()
			return nil, err
		}
		slog.Debug("index.Open created", "file", path, "attrType", cfg.AttrType)
	} else {
		if err := ix.recover(); err != nil {
			_ = f.Close()
			return nil, err
		}
		slog.Debug("index.Open recovered", "file", path, "root", ix.root)
	}

	return ix, nil
}

// create allocates the meta and root pages, then bulk-builds from scanner
// (spec §4.5's Create path).
func (ix *Index) create(scanner relation.Scanner) error {
	mh, err := pagehandle.Alloc(ix.pool)
	if err != nil {
		return err
	}
	if mh.PageID() != metaPageID {
		_ = mh.Release()
		return fmt.Errorf("index: expected meta page id %d, got %d", metaPageID, mh.PageID())
	}

	rh, err := pagehandle.Alloc(ix.pool)
	if err != nil {
		_ = mh.Release()
		return err
	}

	ops, err := newOps(ix.cfg.AttrType, ix.pool)
	if err != nil {
		_ = rh.Release()
		_ = mh.Release()
		return err
	}
	ix.ops = ops

	ops.initEmptyRoot(rh.Page())
	rh.MarkDirty()
	root := rh.PageID()
	if err := rh.Release(); err != nil {
		_ = mh.Release()
		return err
	}
	ix.root = root

	m := node.AsMeta(mh.Page())
	if err := m.Init(ix.cfg.RelationName, ix.cfg.AttrByteOffset, ix.cfg.AttrType, root); err != nil {
		_ = mh.Release()
		return err
	}
	mh.MarkDirty()
	if err := mh.Release(); err != nil {
		return err
	}

	if scanner == nil {
		return nil
	}
	if err := ix.bulkBuild(scanner); err != nil {
		return err
	}
	return ix.syncRootToMeta()
}

// bulkBuild drives insertEntry from scanner until it raises EndOfFile
// (spec §4.5).
func (ix *Index) bulkBuild(scanner relation.Scanner) error {
	for {
		rid, err := scanner.ScanNext()
		if errors.Is(err, ixtypes.ErrEndOfFile) {
			return nil
		}
		if err != nil {
			return err
		}

		record, err := scanner.GetRecord()
		if err != nil {
			return err
		}
		key := ix.ops.decodeKey(record, ix.cfg.AttrByteOffset)

		newRoot, err := ix.ops.insertEntry(ix.root, key, rid)
		if err != nil {
			return err
		}
		ix.root = newRoot
	}
}

// recover reads the meta page and checks it against cfg (spec §4.5's Open
// path).
func (ix *Index) recover() error {
	mh, err := pagehandle.Read(ix.pool, metaPageID)
	if err != nil {
		return err
	}
	m := node.AsMeta(mh.Page())

	if m.RelationName() != ix.cfg.RelationName ||
		m.AttrByteOffset() != ix.cfg.AttrByteOffset ||
		m.AttrType() != ix.cfg.AttrType {
		_ = mh.Release()
		return ixtypes.ErrBadIndexInfo
	}
	root := m.RootPageNo()
	if err := mh.Release(); err != nil {
		return err
	}

	ops, err := newOps(ix.cfg.AttrType, ix.pool)
	if err != nil {
		return err
	}
	ix.ops = ops
	ix.root = root
	return nil
}

// syncRootToMeta persists the current root page id to the meta page. It
// is called after every InsertEntry and once at the end of a bulk build,
// so a reopen always recovers the latest root (spec P2), without holding
// the meta page pinned between public calls (spec I5).
func (ix *Index) syncRootToMeta() error {
	mh, err := pagehandle.Read(ix.pool, metaPageID)
	if err != nil {
		return err
	}
	m := node.AsMeta(mh.Page())
	m.SetRootPageNo(ix.root)
	mh.MarkDirty()
	return mh.Release()
}

func (ix *Index) ensureOpen() error {
	if ix.closed.Load() {
		return ixtypes.ErrIndexClosed
	}
	return nil
}

// InsertEntry adds one (key, rid) entry. key's dynamic type must match the
// index's configured attrType.
func (ix *Index) InsertEntry(key any, rid ixtypes.RID) error {
	if err := ix.ensureOpen(); err != nil {
		return err
	}
	newRoot, err := ix.ops.insertEntry(ix.root, key, rid)
	if err != nil {
		return err
	}
	ix.root = newRoot
	return ix.syncRootToMeta()
}

// StartScan begins a bounded range scan (spec §4.4).
func (ix *Index) StartScan(lowVal any, lowOp ixtypes.Operator, highVal any, highOp ixtypes.Operator) error {
	if err := ix.ensureOpen(); err != nil {
		return err
	}
	return ix.ops.startScan(ix.root, lowVal, lowOp, highVal, highOp)
}

// ScanNext writes the next qualifying rid into out.
func (ix *Index) ScanNext(out *ixtypes.RID) error {
	if err := ix.ensureOpen(); err != nil {
		return err
	}
	return ix.ops.scanNext(out)
}

// EndScan releases the current scan's pinned leaf.
func (ix *Index) EndScan() error {
	if err := ix.ensureOpen(); err != nil {
		return err
	}
	return ix.ops.endScan()
}

// Close flushes all dirty pages and releases the file handle. Flush
// failures are logged, not propagated, matching the destructor-must-not-
// throw rule in spec §4.5; the file-close error, if any, is returned.
// Calling Close more than once is a no-op.
func (ix *Index) Close() error {
	if !ix.closed.CompareAndSwap(false, true) {
		return nil
	}
	if ix.ops != nil && ix.ops.isExecuting() {
		if err := ix.ops.endScan(); err != nil {
			slog.Warn("index: endScan during close failed", "err", err)
		}
	}
	if err := ix.pool.FlushFile(); err != nil {
		slog.Warn("index: flush during close failed", "err", err)
	}
	return ix.file.Close()
}
