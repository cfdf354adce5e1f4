// Package variant implements the typed, polymorphic value used as a scan
// search key.
//
// A Variant describes scalars, [min, max] ranges, placeholders (unknown
// initial values, refined by later scans), heterogeneous structures, and
// two string encodings, and compares itself bit-for-bit against raw
// target buffers under either byte order.
//
// Typical use binds a search context once, then scans chunks:
//
//	needle := variant.FromNumber(0x1234, variant.UInt16)
//	if err := needle.PrepareForSearch(target); err != nil {
//	    return err
//	}
//	offsets := needle.SearchForMatchesInChunk(chunk, variant.FlagEquals, target.IsLittleEndian())
//
// Comparisons return a Flags bitset of every relation that holds at once,
// so a single pass over a buffer can answer any comparator a later scan
// step asks for.
package variant
