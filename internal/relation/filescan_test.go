package relation

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/bptreeidx/internal/ixtypes"
)

func recordWithKey(key int32) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(key))
	return buf
}

func TestFileScan_YieldsRecordsThenEndOfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.tbl")
	records := [][]byte{recordWithKey(10), recordWithKey(20), recordWithKey(30)}
	require.NoError(t, WriteRecords(path, 16, records))

	fs, err := OpenFileScan(path, 16)
	require.NoError(t, err)
	defer fs.Close()

	var gotKeys []int32
	for {
		rid, err := fs.ScanNext()
		if err == ixtypes.ErrEndOfFile {
			break
		}
		require.NoError(t, err)
		require.NotZero(t, rid.PageNo)

		rec, err := fs.GetRecord()
		require.NoError(t, err)
		gotKeys = append(gotKeys, int32(binary.LittleEndian.Uint32(ExtractKey(rec, 0, 4))))
	}

	require.Equal(t, []int32{10, 20, 30}, gotKeys)
}

func TestFileScan_GetRecordBeforeScanNextFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tbl")
	require.NoError(t, WriteRecords(path, 16, nil))

	fs, err := OpenFileScan(path, 16)
	require.NoError(t, err)
	defer fs.Close()

	_, err = fs.GetRecord()
	require.ErrorIs(t, err, ixtypes.ErrScanNotInitialized)
}
