package index

import (
	"encoding/binary"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/bptreeidx/internal/ixtypes"
	"github.com/tuannm99/bptreeidx/internal/keydomain"
	"github.com/tuannm99/bptreeidx/internal/relation"
)

func recordWithInt32(key int32) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(key))
	return buf
}

func recordWithFloat64(key float64) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(key))
	return buf
}

func recordWithStringKey(key string) []byte {
	buf := make([]byte, 16)
	copy(buf[0:10], key)
	return buf
}

func buildFixture(t *testing.T, dir, relName string, keys []int32) *Index {
	t.Helper()
	records := make([][]byte, len(keys))
	for i, k := range keys {
		records[i] = recordWithInt32(k)
	}
	return buildFixtureFromRecords(t, dir, relName, ixtypes.Integer, records)
}

func buildFixtureFromRecords(t *testing.T, dir, relName string, attrType ixtypes.Datatype, records [][]byte) *Index {
	t.Helper()
	relPath := filepath.Join(dir, relName+".tbl")
	require.NoError(t, relation.WriteRecords(relPath, 16, records))

	scanner, err := relation.OpenFileScan(relPath, 16)
	require.NoError(t, err)
	defer scanner.Close()

	ix, err := Open(Config{
		Dir:            dir,
		RelationName:   relName,
		AttrByteOffset: 0,
		AttrType:       attrType,
	}, scanner)
	require.NoError(t, err)
	return ix
}

func drainScan(t *testing.T, ix *Index) []ixtypes.RID {
	t.Helper()
	var out []ixtypes.RID
	for {
		var rid ixtypes.RID
		err := ix.ScanNext(&rid)
		if err == ixtypes.ErrIndexScanCompleted {
			break
		}
		require.NoError(t, err)
		out = append(out, rid)
	}
	return out
}

func TestIndex_S1_BulkBuildThenMiddleRangeScan(t *testing.T) {
	dir := t.TempDir()
	ix := buildFixture(t, dir, "students", []int32{5, 3, 8, 1, 9, 2, 7, 4, 6})
	defer ix.Close()

	require.NoError(t, ix.StartScan(int32(3), ixtypes.GTE, int32(7), ixtypes.LTE))
	rids := drainScan(t, ix)
	require.NoError(t, ix.EndScan())

	require.Len(t, rids, 5)
}

func TestIndex_RoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ix := buildFixture(t, dir, "widgets", []int32{10, 20, 30})

	require.NoError(t, ix.StartScan(int32(0), ixtypes.GTE, int32(100), ixtypes.LTE))
	before := drainScan(t, ix)
	require.NoError(t, ix.EndScan())
	require.NoError(t, ix.Close())

	reopened, err := Open(Config{
		Dir:            dir,
		RelationName:   "widgets",
		AttrByteOffset: 0,
		AttrType:       ixtypes.Integer,
	}, nil)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.StartScan(int32(0), ixtypes.GTE, int32(100), ixtypes.LTE))
	after := drainScan(t, reopened)
	require.NoError(t, reopened.EndScan())

	require.Equal(t, before, after)
}

func TestIndex_PointInsertAfterOpen(t *testing.T) {
	dir := t.TempDir()
	ix := buildFixture(t, dir, "orders", []int32{1, 2, 3})
	defer ix.Close()

	require.NoError(t, ix.InsertEntry(int32(99), ixtypes.RID{PageNo: 5, Slot: 1}))

	require.NoError(t, ix.StartScan(int32(0), ixtypes.GTE, int32(1000), ixtypes.LTE))
	rids := drainScan(t, ix)
	require.NoError(t, ix.EndScan())

	require.Len(t, rids, 4)
}

func TestIndex_S3_DuplicatesBothReturned(t *testing.T) {
	dir := t.TempDir()
	values := make([]int32, 0, 2000)
	for i := 1; i <= 1000; i++ {
		values = append(values, int32(i), int32(i))
	}
	rand.New(rand.NewSource(1)).Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })

	ix := buildFixture(t, dir, "dup", values)
	defer ix.Close()

	require.NoError(t, ix.StartScan(int32(100), ixtypes.GTE, int32(100), ixtypes.LTE))
	rids := drainScan(t, ix)
	require.NoError(t, ix.EndScan())

	require.Len(t, rids, 2)
}

func TestIndex_S6_BadOpcodesAndBadScanRange(t *testing.T) {
	dir := t.TempDir()
	ix := buildFixture(t, dir, "bad", []int32{1, 2, 3})
	defer ix.Close()

	err := ix.StartScan(int32(1), ixtypes.LT, int32(10), ixtypes.LT)
	require.ErrorIs(t, err, ixtypes.ErrBadOpcodes)

	err = ix.StartScan(int32(10), ixtypes.GTE, int32(5), ixtypes.LTE)
	require.ErrorIs(t, err, ixtypes.ErrBadScanRange)
}

func TestIndex_BadIndexInfoOnAttrMismatch(t *testing.T) {
	dir := t.TempDir()
	ix := buildFixture(t, dir, "mismatch", []int32{1, 2, 3})
	require.NoError(t, ix.Close())

	_, err := Open(Config{
		Dir:            dir,
		RelationName:   "mismatch",
		AttrByteOffset: 0,
		AttrType:       ixtypes.Double,
	}, nil)
	require.ErrorIs(t, err, ixtypes.ErrBadIndexInfo)
}

func TestIndex_OperationsFailAfterClose(t *testing.T) {
	dir := t.TempDir()
	ix := buildFixture(t, dir, "closed", []int32{1})
	require.NoError(t, ix.Close())
	require.NoError(t, ix.Close()) // idempotent

	err := ix.InsertEntry(int32(2), ixtypes.RID{PageNo: 1, Slot: 1})
	require.ErrorIs(t, err, ixtypes.ErrIndexClosed)
}

func TestIndex_ManyRandomInsertsFullRangeScan(t *testing.T) {
	dir := t.TempDir()
	n := 20000
	values := make([]int32, n)
	for i := range values {
		values[i] = int32(i)
	}
	rand.New(rand.NewSource(7)).Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })

	ix := buildFixture(t, dir, "big", values)
	defer ix.Close()

	require.NoError(t, ix.StartScan(int32(0), ixtypes.GTE, int32(n), ixtypes.LT))
	rids := drainScan(t, ix)
	require.NoError(t, ix.EndScan())

	require.Len(t, rids, n)
}

func TestIndex_DoubleDomainBulkBuildThenRangeScan(t *testing.T) {
	dir := t.TempDir()
	keys := []float64{5.5, 3.1, 8.25, 1.0, 9.9, 2.2, 7.7, 4.4, 6.6}
	records := make([][]byte, len(keys))
	for i, k := range keys {
		records[i] = recordWithFloat64(k)
	}
	ix := buildFixtureFromRecords(t, dir, "doubles", ixtypes.Double, records)
	defer ix.Close()

	require.NoError(t, ix.StartScan(float64(3.0), ixtypes.GTE, float64(8.0), ixtypes.LTE))
	rids := drainScan(t, ix)
	require.NoError(t, ix.EndScan())

	// In [3.0, 8.0]: 5.5, 3.1, 7.7, 4.4, 6.6 (8.25 and 1.0 fall outside).
	require.Len(t, rids, 5)
}

func TestIndex_StringDomainBulkBuildThenRangeScan(t *testing.T) {
	dir := t.TempDir()
	keys := []string{"mango", "apple", "pear", "kiwi", "fig", "date", "lime", "plum", "acai"}
	records := make([][]byte, len(keys))
	for i, k := range keys {
		records[i] = recordWithStringKey(k)
	}
	ix := buildFixtureFromRecords(t, dir, "strings", ixtypes.String, records)
	defer ix.Close()

	var low, high keydomain.StringKey
	copy(low[:], "date")
	copy(high[:], "mango")
	require.NoError(t, ix.StartScan(low, ixtypes.GTE, high, ixtypes.LTE))
	rids := drainScan(t, ix)
	require.NoError(t, ix.EndScan())

	// Lexicographically in [date, mango]: date, fig, kiwi, lime, mango.
	require.Len(t, rids, 5)
}
