// Package dolphin targets the Nintendo GameCube/Wii main RAM (MEM1)
// exposed by the Dolphin emulator through a named shared-memory segment.
//
// The 24 MiB physical block appears at two guest-logical bases at once:
// the cached view at 0x80000000 and the uncached mirror at 0xC0000000.
// Both views alias the same host bytes, so a write through one is
// immediately visible through the other.
//
// The named binding is a contract with a patched Dolphin 5.0 build that
// names its guest-RAM file mapping (see SegmentName); it exists on
// Windows only. Tests and other hosts inject a segment with WithSegment.
package dolphin
