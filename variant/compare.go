package variant

import (
	"encoding/binary"
	"math"

	scanengine "github.com/trainerkit/scan-engine"
	"github.com/trainerkit/scan-engine/errors"
)

// Flags is a bitset of the comparator relations satisfied simultaneously
// by one (variant, buffer) pair. Numerics can set any bit; strings only
// Equals/NotEqual; a structure sets the bits that every field sets.
// Returning a set rather than a boolean
// lets one pass over a buffer answer every comparator a subsequent
// iterative-scan step may need.
type Flags uint8

const (
	FlagEquals Flags = 1 << iota
	FlagGreaterThan
	FlagLessThan
	FlagGreaterThanOrEqual
	FlagLessThanOrEqual
	FlagNotEqual
)

// FlagsAll has every comparator bit set; a placeholder matches it.
const FlagsAll = FlagEquals | FlagGreaterThan | FlagLessThan |
	FlagGreaterThanOrEqual | FlagLessThanOrEqual | FlagNotEqual

// FlagsNone is the empty set: no relation holds.
const FlagsNone Flags = 0

type comparatorFunc func(v *Variant, buf []byte, littleEndian bool) Flags

// searchContext binds the comparator family (and the owning target's byte
// order, for callers that want it) after PrepareForSearch.
type searchContext struct {
	littleEndian bool
	compare      comparatorFunc
}

// PrepareForSearch caches a search context derived from the owning target.
// CompareTo and SearchForMatchesInChunk may only be called afterwards.
func (v *Variant) PrepareForSearch(t scanengine.Target) error {
	if v.kind == KindNull {
		return errors.NullVariant(errors.PhaseScan)
	}
	v.ctx = &searchContext{
		littleEndian: t.IsLittleEndian(),
		compare:      comparatorFor(v.kind),
	}
	return nil
}

// IsPrepared reports whether a search context is bound.
func (v Variant) IsPrepared() bool { return v.ctx != nil }

// CompareTo compares the variant against raw target bytes under the given
// byte order and returns every relation that holds. Calling it on an
// unprepared variant yields the empty set.
func (v *Variant) CompareTo(buf []byte, littleEndian bool) Flags {
	if v.ctx == nil {
		return FlagsNone
	}
	return v.ctx.compare(v, buf, littleEndian)
}

func comparatorFor(k Kind) comparatorFunc {
	switch k {
	case KindNumeric:
		return compareNumericToBuffer
	case KindRange:
		return compareRangeToBuffer
	case KindPlaceholder:
		return comparePlaceholderToBuffer
	case KindStruct:
		return compareStructToBuffer
	case KindASCIIString:
		return compareASCIIToBuffer
	case KindWideString:
		return compareWideToBuffer
	}
	return func(*Variant, []byte, bool) Flags { return FlagsNone }
}

// compareBuffer dispatches without a prepared context; structure children
// route through here.
func compareBuffer(v *Variant, buf []byte, littleEndian bool) Flags {
	return comparatorFor(v.kind)(v, buf, littleEndian)
}

func compareNumericToBuffer(v *Variant, buf []byte, littleEndian bool) Flags {
	if len(buf) < v.size {
		return FlagsNone
	}
	bufBits := decodeBits(buf[:v.size], littleEndian)
	return orderingFlags(bufBits, v.bits, v.num)
}

func compareRangeToBuffer(v *Variant, buf []byte, littleEndian bool) Flags {
	if len(buf) < v.size {
		return FlagsNone
	}
	// A range has no single ordering point: Equals iff min <= buf <= max,
	// NotEqual otherwise, never any ordering bit.
	bufBits := decodeBits(buf[:v.size], littleEndian)
	min, max := v.children[0].bits, v.children[1].bits
	if compareBits(bufBits, min, v.num) >= 0 && compareBits(bufBits, max, v.num) <= 0 {
		return FlagEquals
	}
	return FlagNotEqual
}

func comparePlaceholderToBuffer(v *Variant, buf []byte, littleEndian bool) Flags {
	if len(buf) < v.size {
		return FlagsNone
	}
	// A placeholder has no value yet, so it cannot reject any candidate.
	return FlagsAll
}

func compareStructToBuffer(v *Variant, buf []byte, littleEndian bool) Flags {
	if len(buf) < v.size {
		return FlagsNone
	}
	// Children walk packed sub-buffers; only relations satisfied by every
	// field hold for the tuple.
	flags := FlagsAll
	off := 0
	for i := range v.children {
		child := &v.children[i]
		flags &= compareBuffer(child, buf[off:off+child.size], littleEndian)
		if flags == FlagsNone {
			return FlagsNone
		}
		off += child.size
	}
	return flags
}

func compareASCIIToBuffer(v *Variant, buf []byte, littleEndian bool) Flags {
	if len(buf) < v.size {
		return FlagsNone
	}
	for i, b := range v.ascii {
		if buf[i] != b {
			return FlagNotEqual
		}
	}
	return FlagEquals
}

func compareWideToBuffer(v *Variant, buf []byte, littleEndian bool) Flags {
	if len(buf) < v.size {
		return FlagsNone
	}
	for i, elem := range v.wide {
		var got uint16
		if littleEndian {
			got = binary.LittleEndian.Uint16(buf[2*i:])
		} else {
			got = binary.BigEndian.Uint16(buf[2*i:])
		}
		if got != elem {
			return FlagNotEqual
		}
	}
	return FlagEquals
}

// decodeBits loads a 1, 2, 4, or 8 byte scalar into the low bits of a
// uint64 under the given byte order.
func decodeBits(buf []byte, littleEndian bool) uint64 {
	switch len(buf) {
	case 1:
		return uint64(buf[0])
	case 2:
		if littleEndian {
			return uint64(binary.LittleEndian.Uint16(buf))
		}
		return uint64(binary.BigEndian.Uint16(buf))
	case 4:
		if littleEndian {
			return uint64(binary.LittleEndian.Uint32(buf))
		}
		return uint64(binary.BigEndian.Uint32(buf))
	case 8:
		if littleEndian {
			return binary.LittleEndian.Uint64(buf)
		}
		return binary.BigEndian.Uint64(buf)
	}
	return 0
}

func encodeBits(dst []byte, bits uint64, littleEndian bool) {
	switch len(dst) {
	case 1:
		dst[0] = byte(bits)
	case 2:
		if littleEndian {
			binary.LittleEndian.PutUint16(dst, uint16(bits))
		} else {
			binary.BigEndian.PutUint16(dst, uint16(bits))
		}
	case 4:
		if littleEndian {
			binary.LittleEndian.PutUint32(dst, uint32(bits))
		} else {
			binary.BigEndian.PutUint32(dst, uint32(bits))
		}
	case 8:
		if littleEndian {
			binary.LittleEndian.PutUint64(dst, bits)
		} else {
			binary.BigEndian.PutUint64(dst, bits)
		}
	}
}

// compareBits orders two raw scalar payloads of type t. It returns -1, 0,
// or 1, or 2 when the comparison is unordered (a NaN operand).
func compareBits(a, b uint64, t NumericType) int {
	tr := numericTraits[t]
	switch {
	case t == Float64:
		return compareFloats(math.Float64frombits(a), math.Float64frombits(b))
	case t == Float32:
		return compareFloats(float64(math.Float32frombits(uint32(a))), float64(math.Float32frombits(uint32(b))))
	case tr.signed:
		sa, sb := signExtend(a, tr.size), signExtend(b, tr.size)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	default:
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
}

func compareFloats(a, b float64) int {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return 2
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// orderingFlags maps the buffer-versus-value ordering to the relation set.
func orderingFlags(bufBits, valBits uint64, t NumericType) Flags {
	switch compareBits(bufBits, valBits, t) {
	case 0:
		return FlagEquals | FlagGreaterThanOrEqual | FlagLessThanOrEqual
	case 1:
		return FlagGreaterThan | FlagGreaterThanOrEqual | FlagNotEqual
	case -1:
		return FlagLessThan | FlagLessThanOrEqual | FlagNotEqual
	default:
		// NaN compares unordered under IEEE-754: not equal, not ordered.
		return FlagNotEqual
	}
}
