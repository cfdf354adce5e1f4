package variant

import (
	scanengine "github.com/trainerkit/scan-engine"
	"github.com/trainerkit/scan-engine/errors"
)

// memTarget is a flat in-memory Target used by the package tests.
type memTarget struct {
	mem      []byte
	base     scanengine.MemoryAddress
	little   bool
	attached bool
}

func newMemTarget(size int, base scanengine.MemoryAddress, little bool) *memTarget {
	return &memTarget{mem: make([]byte, size), base: base, little: little, attached: true}
}

func (t *memTarget) Attach(scanengine.ProcessID) error { t.attached = true; return nil }
func (t *memTarget) Detach() error                     { t.attached = false; return nil }
func (t *memTarget) IsAttached() bool { return t.attached }

func (t *memTarget) QueryMemory(addr scanengine.MemoryAddress) (scanengine.MemoryInformation, scanengine.MemoryAddress, bool) {
	end := t.base + scanengine.MemoryAddress(len(t.mem)) - 1
	if addr > end {
		return scanengine.MemoryInformation{}, end, false
	}
	info := scanengine.MemoryInformation{
		AllocationBase: t.base,
		AllocationSize: uint64(len(t.mem)),
		AllocationEnd:  end,
		IsCommitted:    true,
		IsWriteable:    true,
	}
	return info, end + 1, true
}

func (t *memTarget) RawRead(addr scanengine.MemoryAddress, buf []byte) (int, error) {
	if addr < t.base || addr >= t.base+scanengine.MemoryAddress(len(t.mem)) {
		return 0, errors.OutOfBounds(errors.PhaseRead, uint64(addr))
	}
	off := int(addr - t.base)
	return copy(buf, t.mem[off:]), nil
}

func (t *memTarget) RawWrite(addr scanengine.MemoryAddress, data []byte) (int, error) {
	if addr < t.base || addr >= t.base+scanengine.MemoryAddress(len(t.mem)) {
		return 0, errors.OutOfBounds(errors.PhaseWrite, uint64(addr))
	}
	off := int(addr - t.base)
	return copy(t.mem[off:], data), nil
}

func (t *memTarget) IsWithinModule(scanengine.MemoryAddress) (scanengine.MemoryAddress, scanengine.MemoryAddress, bool) {
	return 0, 0, false
}

func (t *memTarget) MainModuleBounds() (scanengine.MemoryAddress, scanengine.MemoryAddress, bool) {
	return 0, 0, false
}

func (t *memTarget) FileTime64() uint64 { return 0 }
func (t *memTarget) TickTime32() uint32 { return 0 }
func (t *memTarget) PointerSize() int { return 8 }
func (t *memTarget) IsLittleEndian() bool { return t.little }

func (t *memTarget) LowestAddress() scanengine.MemoryAddress { return t.base }
func (t *memTarget) HighestAddress() scanengine.MemoryAddress {
	return t.base + scanengine.MemoryAddress(len(t.mem)) - 1
}

var _ scanengine.Target = (*memTarget)(nil)
