package variant

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	scanengine "github.com/trainerkit/scan-engine"
)

// Variant is a typed, possibly-composite value used as a search pattern.
// Variants are immutable after construction; factories return new
// instances. The search context populated by PrepareForSearch is the only
// mutable state and is shared by copies.
type Variant struct {
	kind     Kind
	num      NumericType
	bits     uint64 // numeric payload, raw bit pattern in the low bytes
	ascii    []byte
	wide     []uint16
	children []Variant // struct fields; a range is exactly [min, max]
	size     int
	ctx      *searchContext
}

// MakeNull returns the uninitialized/absent value.
func MakeNull() Variant {
	v := Variant{kind: KindNull}
	v.setSizeAndValue()
	return v
}

// MakePlaceholder returns a variant of known type but unknown value. It
// carries no payload; on an initial scan it matches every comparator, and
// it widens a structure layout so later relative scans can address the
// field.
func MakePlaceholder(t NumericType) Variant {
	if !t.Valid() {
		return MakeNull()
	}
	v := Variant{kind: KindPlaceholder, num: t}
	v.setSizeAndValue()
	return v
}

// FromNumber performs a narrowing construction of the given numeric type
// from a 64-bit integer source.
func FromNumber(value uint64, t NumericType) Variant {
	if !t.Valid() {
		return MakeNull()
	}
	tr := numericTraits[t]
	var bits uint64
	switch {
	case t == Float64:
		bits = math.Float64bits(float64(value))
	case t == Float32:
		bits = uint64(math.Float32bits(float32(value)))
	default:
		bits = value & widthMask(tr.size)
	}
	v := Variant{kind: KindNumeric, num: t, bits: bits}
	v.setSizeAndValue()
	return v
}

// FromInt is FromNumber for signed sources; the value is truncated to the
// target width in two's complement.
func FromInt(value int64, t NumericType) Variant {
	if !t.Valid() {
		return MakeNull()
	}
	if numericTraits[t].float {
		if t == Float32 {
			return FromFloat32(float32(value))
		}
		return FromFloat64(float64(value))
	}
	return FromNumber(uint64(value), t)
}

// FromFloat64 returns a double variant.
func FromFloat64(f float64) Variant {
	v := Variant{kind: KindNumeric, num: Float64, bits: math.Float64bits(f)}
	v.setSizeAndValue()
	return v
}

// FromFloat32 returns a float variant.
func FromFloat32(f float32) Variant {
	v := Variant{kind: KindNumeric, num: Float32, bits: uint64(math.Float32bits(f))}
	v.setSizeAndValue()
	return v
}

// FromStringTyped returns an ASCII or wide string variant. Any other kind
// yields Null, as does an empty input.
func FromStringTyped(s string, k Kind) Variant {
	if s == "" {
		return MakeNull()
	}
	switch k {
	case KindASCIIString:
		v := Variant{kind: KindASCIIString, ascii: []byte(s)}
		v.setSizeAndValue()
		return v
	case KindWideString:
		v := Variant{kind: KindWideString, wide: utf16.Encode([]rune(s))}
		v.setSizeAndValue()
		return v
	}
	return MakeNull()
}

// FromASCIIString returns an ASCII string variant.
func FromASCIIString(s string) Variant {
	return FromStringTyped(s, KindASCIIString)
}

// FromWideString returns a wide (UTF-16) string variant.
func FromWideString(s string) Variant {
	return FromStringTyped(s, KindWideString)
}

// FromStruct returns a structure variant over the given fields. A
// structure is never empty and never contains null fields; inconsistent
// inputs collapse to Null.
func FromStruct(children ...Variant) Variant {
	if len(children) == 0 {
		return MakeNull()
	}
	for i := range children {
		if children[i].IsNull() {
			return MakeNull()
		}
	}
	v := Variant{kind: KindStruct, children: append([]Variant(nil), children...)}
	v.setSizeAndValue()
	return v
}

// FromVariantRange returns a [min, max] interval over one numeric type.
// It collapses to Null if min and max disagree on type or min > max.
func FromVariantRange(min, max Variant) Variant {
	if min.kind != KindNumeric || max.kind != KindNumeric || min.num != max.num {
		return MakeNull()
	}
	if compareBits(min.bits, max.bits, min.num) > 0 {
		return MakeNull()
	}
	v := Variant{kind: KindRange, num: min.num, children: []Variant{min, max}}
	v.setSizeAndValue()
	return v
}

// FromMemoryAddress is a convenience for address-valued numerics.
func FromMemoryAddress(addr scanengine.MemoryAddress) Variant {
	return FromNumber(uint64(addr), UInt64)
}

// setSizeAndValue recomputes the wire size from the kind and payload.
// Every factory finalizes through here.
func (v *Variant) setSizeAndValue() {
	switch v.kind {
	case KindNull:
		v.size = 0
	case KindNumeric, KindRange, KindPlaceholder:
		v.size = numericTraits[v.num].size
	case KindASCIIString:
		v.size = len(v.ascii)
	case KindWideString:
		v.size = 2 * len(v.wide)
	case KindStruct:
		total := 0
		for i := range v.children {
			total += v.children[i].size
		}
		v.size = total
	}
}

// Kind returns the variant's shape discriminator.
func (v Variant) Kind() Kind { return v.kind }

// Underlying returns the numeric type of a numeric, range, or placeholder
// variant.
func (v Variant) Underlying() NumericType { return v.num }

// Size returns the byte size of the variant's wire form.
func (v Variant) Size() int { return v.size }

func (v Variant) IsNull() bool { return v.kind == KindNull }
func (v Variant) IsNumeric() bool { return v.kind == KindNumeric }
func (v Variant) IsRange() bool { return v.kind == KindRange }
func (v Variant) IsPlaceholder() bool { return v.kind == KindPlaceholder }
func (v Variant) IsStructure() bool { return v.kind == KindStruct }

func (v Variant) IsString() bool {
	return v.kind == KindASCIIString || v.kind == KindWideString
}

// IsDynamic reports whether the wire size depends on the specific value.
func (v Variant) IsDynamic() bool {
	return v.IsString() || v.kind == KindStruct
}

// IsComposite reports whether the variant exposes child values; structures
// and ranges alike do.
func (v Variant) IsComposite() bool {
	return v.kind == KindStruct || v.kind == KindRange
}

// CompositeValues returns the ordered children of a structure or range.
func (v Variant) CompositeValues() []Variant {
	if !v.IsComposite() {
		return nil
	}
	return v.children
}

// IsCompatibleWith reports whether v and other can participate in the same
// scan step. In strict mode the kinds must also match exactly, so ranges
// and scalars no longer mix.
func (v Variant) IsCompatibleWith(other Variant, strict bool) bool {
	if v.kind == KindNull || other.kind == KindNull {
		return false
	}
	if strict && v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindStruct:
		if other.kind != KindStruct || len(v.children) != len(other.children) {
			return false
		}
		for i := range v.children {
			if !v.children[i].IsCompatibleWith(other.children[i], strict) {
				return false
			}
		}
		return true
	case KindASCIIString, KindWideString:
		return v.kind == other.kind
	case KindNumeric, KindRange, KindPlaceholder:
		switch other.kind {
		case KindNumeric, KindRange, KindPlaceholder:
			return v.num == other.num
		}
		return false
	}
	return false
}

// Equal reports deep value equality, ignoring search contexts.
func (v Variant) Equal(other Variant) bool {
	if v.kind != other.kind || v.num != other.num || v.size != other.size {
		return false
	}
	switch v.kind {
	case KindNumeric:
		return v.bits == other.bits
	case KindASCIIString:
		return string(v.ascii) == string(other.ascii)
	case KindWideString:
		if len(v.wide) != len(other.wide) {
			return false
		}
		for i := range v.wide {
			if v.wide[i] != other.wide[i] {
				return false
			}
		}
		return true
	case KindStruct, KindRange:
		if len(v.children) != len(other.children) {
			return false
		}
		for i := range v.children {
			if !v.children[i].Equal(other.children[i]) {
				return false
			}
		}
		return true
	}
	return true
}

// Typed getters. Each succeeds only when the variant holds exactly that
// type; FileTime64 and TickTime32 values surface through Uint64 and Uint32.

func (v Variant) Uint8() (uint8, bool) {
	if v.kind == KindNumeric && v.num == UInt8 {
		return uint8(v.bits), true
	}
	return 0, false
}

func (v Variant) Int8() (int8, bool) {
	if v.kind == KindNumeric && v.num == Int8 {
		return int8(v.bits), true
	}
	return 0, false
}

func (v Variant) Uint16() (uint16, bool) {
	if v.kind == KindNumeric && v.num == UInt16 {
		return uint16(v.bits), true
	}
	return 0, false
}

func (v Variant) Int16() (int16, bool) {
	if v.kind == KindNumeric && v.num == Int16 {
		return int16(v.bits), true
	}
	return 0, false
}

func (v Variant) Uint32() (uint32, bool) {
	if v.kind == KindNumeric && (v.num == UInt32 || v.num == TickTime32) {
		return uint32(v.bits), true
	}
	return 0, false
}

func (v Variant) Int32() (int32, bool) {
	if v.kind == KindNumeric && v.num == Int32 {
		return int32(v.bits), true
	}
	return 0, false
}

func (v Variant) Uint64() (uint64, bool) {
	if v.kind == KindNumeric && (v.num == UInt64 || v.num == FileTime64) {
		return v.bits, true
	}
	return 0, false
}

func (v Variant) Int64() (int64, bool) {
	if v.kind == KindNumeric && v.num == Int64 {
		return int64(v.bits), true
	}
	return 0, false
}

func (v Variant) Float64Value() (float64, bool) {
	if v.kind == KindNumeric && v.num == Float64 {
		return math.Float64frombits(v.bits), true
	}
	return 0, false
}

func (v Variant) Float32Value() (float32, bool) {
	if v.kind == KindNumeric && v.num == Float32 {
		return math.Float32frombits(uint32(v.bits)), true
	}
	return 0, false
}

func (v Variant) ASCIIString() (string, bool) {
	if v.kind == KindASCIIString {
		return string(v.ascii), true
	}
	return "", false
}

func (v Variant) WideString() (string, bool) {
	if v.kind == KindWideString {
		return string(utf16.Decode(v.wide)), true
	}
	return "", false
}

// AsInt64 extracts any integer-typed value, sign-extended.
func (v Variant) AsInt64() (int64, bool) {
	if v.kind != KindNumeric || !v.num.Valid() {
		return 0, false
	}
	tr := numericTraits[v.num]
	if tr.float {
		return 0, false
	}
	if tr.signed {
		return signExtend(v.bits, tr.size), true
	}
	return int64(v.bits), true
}

// AsFloat64 extracts any float-typed value.
func (v Variant) AsFloat64() (float64, bool) {
	switch v.num {
	case Float64:
		if v.kind == KindNumeric {
			return math.Float64frombits(v.bits), true
		}
	case Float32:
		if v.kind == KindNumeric {
			return float64(math.Float32frombits(uint32(v.bits))), true
		}
	}
	return 0, false
}

// TypeName returns the canonical name for the variant's type.
func (v Variant) TypeName() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindNumeric:
		return v.num.String()
	case KindRange:
		return v.num.String() + " range"
	case KindPlaceholder:
		return v.num.String() + " placeholder"
	case KindASCIIString:
		return "ascii string"
	case KindWideString:
		return "wide string"
	case KindStruct:
		return "struct"
	}
	return "invalid"
}

// ToString renders the value for human display.
func (v Variant) ToString() string {
	switch v.kind {
	case KindNull:
		return "(null)"
	case KindNumeric:
		tr := numericTraits[v.num]
		switch {
		case v.num == Float64:
			return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
		case v.num == Float32:
			return strconv.FormatFloat(float64(math.Float32frombits(uint32(v.bits))), 'g', -1, 32)
		case tr.signed:
			return strconv.FormatInt(signExtend(v.bits, tr.size), 10)
		default:
			return strconv.FormatUint(v.bits, 10)
		}
	case KindRange:
		return "[" + v.children[0].ToString() + ", " + v.children[1].ToString() + "]"
	case KindPlaceholder:
		return "??"
	case KindASCIIString:
		return string(v.ascii)
	case KindWideString:
		return string(utf16.Decode(v.wide))
	case KindStruct:
		parts := make([]string, len(v.children))
		for i := range v.children {
			parts[i] = v.children[i].ToString()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

func widthMask(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (8 * size)) - 1
}

func signExtend(bits uint64, size int) int64 {
	shift := uint(64 - 8*size)
	return int64(bits<<shift) >> shift
}
