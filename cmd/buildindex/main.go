// Command buildindex builds (or opens) a B+-tree secondary index over one
// attribute of a fixed-width relation file, then runs one range query
// against it and prints the matching record ids. Adapted from the
// teacher's cmd/server/main.go: flag-based config path, viper-loaded YAML,
// log.Fatalf on startup failure.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/tuannm99/bptreeidx/index"
	"github.com/tuannm99/bptreeidx/internal"
	"github.com/tuannm99/bptreeidx/internal/ixtypes"
	"github.com/tuannm99/bptreeidx/internal/relation"
)

func main() {
	var cfgPath string
	var lowVal, highVal int64
	flag.StringVar(&cfgPath, "config", "buildindex.yaml", "path to buildindex yaml config")
	flag.Int64Var(&lowVal, "low", 0, "inclusive lower scan bound (integer attrType only)")
	flag.Int64Var(&highVal, "high", 0, "inclusive upper scan bound (integer attrType only)")
	flag.Parse()

	cfg, err := internal.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Index.Dir, 0o755); err != nil {
		log.Fatalf("create index dir: %v", err)
	}

	attrType, err := parseAttrType(cfg.Index.AttrType)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	scanner, err := relation.OpenFileScan(cfg.Relation.File, cfg.Relation.RecordSize)
	if err != nil {
		log.Fatalf("open relation: %v", err)
	}
	defer scanner.Close()

	ix, err := index.Open(index.Config{
		Dir:            cfg.Index.Dir,
		RelationName:   cfg.Relation.Name,
		AttrByteOffset: cfg.Index.AttrByteOffset,
		AttrType:       attrType,
		BufCapacity:    cfg.Index.BufCapacity,
	}, scanner)
	if err != nil {
		log.Fatalf("open index: %v", err)
	}
	defer ix.Close()

	if err := ix.StartScan(int32(lowVal), ixtypes.GTE, int32(highVal), ixtypes.LTE); err != nil {
		log.Fatalf("start scan: %v", err)
	}
	defer ix.EndScan()

	for {
		var rid ixtypes.RID
		err := ix.ScanNext(&rid)
		if err == ixtypes.ErrIndexScanCompleted {
			break
		}
		if err != nil {
			log.Fatalf("scan next: %v", err)
		}
		log.Printf("rid: page=%d slot=%d", rid.PageNo, rid.Slot)
	}
}

func parseAttrType(s string) (ixtypes.Datatype, error) {
	switch s {
	case "INTEGER", "integer", "int":
		return ixtypes.Integer, nil
	case "DOUBLE", "double", "float", "float64":
		return ixtypes.Double, nil
	case "STRING", "string":
		return ixtypes.String, nil
	default:
		return 0, ixtypes.ErrBadIndexInfo
	}
}
