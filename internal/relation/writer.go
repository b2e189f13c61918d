package relation

import "os"

// WriteRecords creates path and writes records back-to-back, each expected
// to be exactly recordSize bytes. This is test/tooling scaffolding around
// the Scanner reference implementation, not part of the core's contract.
func WriteRecords(path string, recordSize int, records [][]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, r := range records {
		if len(r) != recordSize {
			r = padOrTrim(r, recordSize)
		}
		if _, err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func padOrTrim(r []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, r)
	return out
}
