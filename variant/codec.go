package variant

import (
	"bytes"
	"encoding/binary"

	scanengine "github.com/trainerkit/scan-engine"
	"github.com/trainerkit/scan-engine/errors"
)

// FromRawBuffer parses buf as the same type as reference, honoring the
// byte order for scalars. Strings copy up to the first terminator or the
// end of buf; structures parse each child recursively at the running
// offset (packed, no padding). Range and placeholder references
// materialize into a scalar of their underlying type - this is how a
// placeholder acquires a concrete value between scan passes. Inconsistent
// input collapses to Null.
func FromRawBuffer(buf []byte, littleEndian bool, reference Variant) Variant {
	switch reference.kind {
	case KindNumeric, KindRange, KindPlaceholder:
		size := numericTraits[reference.num].size
		if len(buf) < size {
			return MakeNull()
		}
		bits := decodeBits(buf[:size], littleEndian)
		v := Variant{kind: KindNumeric, num: reference.num, bits: bits}
		v.setSizeAndValue()
		return v

	case KindASCIIString:
		end := bytes.IndexByte(buf, 0)
		if end < 0 {
			end = len(buf)
		}
		if end == 0 {
			return MakeNull()
		}
		v := Variant{kind: KindASCIIString, ascii: append([]byte(nil), buf[:end]...)}
		v.setSizeAndValue()
		return v

	case KindWideString:
		var elems []uint16
		for i := 0; i+2 <= len(buf); i += 2 {
			var e uint16
			if littleEndian {
				e = binary.LittleEndian.Uint16(buf[i:])
			} else {
				e = binary.BigEndian.Uint16(buf[i:])
			}
			if e == 0 {
				break
			}
			elems = append(elems, e)
		}
		if len(elems) == 0 {
			return MakeNull()
		}
		v := Variant{kind: KindWideString, wide: elems}
		v.setSizeAndValue()
		return v

	case KindStruct:
		children := make([]Variant, 0, len(reference.children))
		off := 0
		for i := range reference.children {
			ref := reference.children[i]
			if off+ref.size > len(buf) {
				return MakeNull()
			}
			child := FromRawBuffer(buf[off:off+ref.size], littleEndian, ref)
			if child.IsNull() {
				return MakeNull()
			}
			children = append(children, child)
			off += ref.size
		}
		return FromStruct(children...)
	}
	return MakeNull()
}

// FromTargetMemory reads the type's wire size from the target at addr and
// parses it under the target's byte order.
func FromTargetMemory(t scanengine.Target, addr scanengine.MemoryAddress, num NumericType) (Variant, error) {
	if !num.Valid() {
		return MakeNull(), errors.InvalidInput(errors.PhaseRead, "unknown numeric type")
	}
	if !t.IsAttached() {
		return MakeNull(), errors.NotAttached(errors.PhaseRead)
	}
	buf := make([]byte, numericTraits[num].size)
	n, err := t.RawRead(addr, buf)
	if err != nil {
		return MakeNull(), err
	}
	if n < len(buf) {
		return MakeNull(), errors.ShortIO(errors.PhaseRead, uint64(addr), n, len(buf))
	}
	ref := Variant{kind: KindNumeric, num: num}
	ref.setSizeAndValue()
	return FromRawBuffer(buf, t.IsLittleEndian(), ref), nil
}

// Bytes emits the variant's wire form under the given byte order.
// Placeholders carry no value and ranges no single wire form; both fail,
// as does Null.
func (v Variant) Bytes(littleEndian bool) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return nil, errors.NullVariant(errors.PhaseEncode)
	case KindPlaceholder:
		return nil, errors.TypeMismatch(errors.PhaseEncode, v.TypeName(), "placeholder has no wire form")
	case KindRange:
		return nil, errors.TypeMismatch(errors.PhaseEncode, v.TypeName(), "range has no single wire form")
	case KindNumeric:
		out := make([]byte, v.size)
		encodeBits(out, v.bits, littleEndian)
		return out, nil
	case KindASCIIString:
		return append([]byte(nil), v.ascii...), nil
	case KindWideString:
		out := make([]byte, v.size)
		for i, e := range v.wide {
			if littleEndian {
				binary.LittleEndian.PutUint16(out[2*i:], e)
			} else {
				binary.BigEndian.PutUint16(out[2*i:], e)
			}
		}
		return out, nil
	case KindStruct:
		out := make([]byte, 0, v.size)
		for i := range v.children {
			b, err := v.children[i].Bytes(littleEndian)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
		return out, nil
	}
	return nil, errors.InvalidInput(errors.PhaseEncode, "unknown variant kind")
}

// WriteToTarget emits the variant's wire form at addr in the target's
// byte order. It reverses FromTargetMemory.
func (v Variant) WriteToTarget(t scanengine.Target, addr scanengine.MemoryAddress) error {
	if !t.IsAttached() {
		return errors.NotAttached(errors.PhaseWrite)
	}
	data, err := v.Bytes(t.IsLittleEndian())
	if err != nil {
		return err
	}
	n, err := t.RawWrite(addr, data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return errors.ShortIO(errors.PhaseWrite, uint64(addr), n, len(data))
	}
	return nil
}
