package bx

import "testing"

func TestRoundTrip(t *testing.T) {
	buf := make([]byte, 8)

	PutU16At(buf, 0, 0xBEEF)
	if got := U16At(buf, 0); got != 0xBEEF {
		t.Fatalf("U16At round-trip: got %x", got)
	}

	PutU32At(buf, 2, 0xDEADBEEF)
	if got := U32At(buf, 2); got != 0xDEADBEEF {
		t.Fatalf("U32At round-trip: got %x", got)
	}

	PutU64At(buf, 0, 0x0123456789ABCDEF)
	if got := U64At(buf, 0); got != 0x0123456789ABCDEF {
		t.Fatalf("U64At round-trip: got %x", got)
	}
}
