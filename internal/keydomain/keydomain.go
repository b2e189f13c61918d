// Package keydomain supplies the per-key-domain capability the tree is
// built generically over (spec §9: "polymorphism over key domain"): each
// domain is a concrete Codec instantiation (compare, copy/encode, decode)
// rather than a boxed interface compared at runtime per key.
package keydomain

import (
	"bytes"
	"math"

	"github.com/tuannm99/bptreeidx/internal/bx"
	"github.com/tuannm99/bptreeidx/internal/ixtypes"
)

// StringKey is the fixed 10-byte string key domain. Comparison is
// lexicographic over all 10 bytes; callers must zero/space-pad shorter
// inputs themselves (spec §3, §9).
type StringKey [10]byte

// Codec is the per-domain capability: size in bytes, ordering and the
// in-page wire encoding.
type Codec[K any] interface {
	Size() int
	Compare(a, b K) int
	Encode(dst []byte, k K)
	Decode(src []byte) K
	Domain() ixtypes.Datatype
}

type Int32Codec struct{}

func (Int32Codec) Size() int { return 4 }
func (Int32Codec) Compare(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func (Int32Codec) Encode(dst []byte, k int32) { bx.PutU32(dst, uint32(k)) }
func (Int32Codec) Decode(src []byte) int32    { return int32(bx.U32(src)) }
func (Int32Codec) Domain() ixtypes.Datatype   { return ixtypes.Integer }

type Float64Codec struct{}

func (Float64Codec) Size() int { return 8 }
func (Float64Codec) Compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func (Float64Codec) Encode(dst []byte, k float64) { bx.PutU64(dst, math.Float64bits(k)) }
func (Float64Codec) Decode(src []byte) float64    { return math.Float64frombits(bx.U64(src)) }
func (Float64Codec) Domain() ixtypes.Datatype     { return ixtypes.Double }

type String10Codec struct{}

func (String10Codec) Size() int { return 10 }
func (String10Codec) Compare(a, b StringKey) int {
	return bytes.Compare(a[:], b[:])
}
func (String10Codec) Encode(dst []byte, k StringKey) { copy(dst, k[:]) }
func (String10Codec) Decode(src []byte) StringKey {
	var k StringKey
	copy(k[:], src[:10])
	return k
}
func (String10Codec) Domain() ixtypes.Datatype { return ixtypes.String }
