package dolphin

import (
	"sync/atomic"

	"go.uber.org/zap"

	scanengine "github.com/trainerkit/scan-engine"
	"github.com/trainerkit/scan-engine/errors"
	"github.com/trainerkit/scan-engine/shm"
)

// SegmentName is the name a patched Dolphin 5.0 build gives its guest RAM
// file mapping. The stock emulator creates the mapping anonymously; the
// patch injects this string (already present in the binary) at the
// CreateFileMapping call site so the segment becomes openable from
// outside.
const SegmentName = "Dolphin Direct3D 11 backend"

// MEM1 geometry: one 24 MiB block of physical RAM the guest CPU sees at
// two logical bases simultaneously. Both map to the same host bytes.
const (
	mem1PhysicalBase = 0x00000000
	mem1CachedBase   = 0x80000000
	mem1UncachedBase = 0xC0000000
	mem1Size         = 0x01800000
)

// MapEntry relates one logical guest address range to its physical
// placement inside the shared segment.
type MapEntry struct {
	PhysicalBase scanengine.MemoryAddress
	LogicalBase  scanengine.MemoryAddress
	Size         uint64
	IsMirror     bool
}

// LogicalEnd returns the last logical address the entry covers.
func (e MapEntry) LogicalEnd() scanengine.MemoryAddress {
	return e.LogicalBase + scanengine.MemoryAddress(e.Size) - 1
}

// Mirror derives an alias of the entry at another logical base,
// preserving the physical placement and size.
func (e MapEntry) Mirror(logicalBase scanengine.MemoryAddress) MapEntry {
	return MapEntry{
		PhysicalBase: e.PhysicalBase,
		LogicalBase:  logicalBase,
		Size:         e.Size,
		IsMirror:     true,
	}
}

var mem1Cached = MapEntry{
	PhysicalBase: mem1PhysicalBase,
	LogicalBase:  mem1CachedBase,
	Size:         mem1Size,
}

// memoryLayout lists the logical ranges in ascending order; query relies
// on the ordering.
var memoryLayout = []MapEntry{
	mem1Cached,
	mem1Cached.Mirror(mem1UncachedBase),
}

// view pairs a map entry with its mapped window of the shared segment.
type view struct {
	entry MapEntry
	mem   *shm.View
}

func (v *view) contains(addr scanengine.MemoryAddress) bool {
	return addr >= v.entry.LogicalBase && addr <= v.entry.LogicalEnd()
}

// slice translates addr into the mapped window and returns the bytes from
// there to the end of the view, or nil when addr is outside it.
func (v *view) slice(addr scanengine.MemoryAddress) []byte {
	if !v.contains(addr) {
		return nil
	}
	off := uint64(addr - v.entry.LogicalBase)
	return v.mem.Bytes()[off:]
}

// namedAttached guards the process-wide shared segment: its name is
// fixed, so at most one Dolphin target may hold the named binding.
var namedAttached atomic.Bool

// Target attaches to a running (patched) Dolphin emulator through its
// shared guest-RAM segment. The guest is big-endian with 32-bit pointers.
type Target struct {
	open    func() (shm.Mapper, error)
	seg     shm.Mapper
	views   []view
	lowest  scanengine.MemoryAddress
	highest scanengine.MemoryAddress
	named   bool
}

// Option configures a Target.
type Option func(*Target)

// WithSegment injects a segment in place of the named emulator binding.
// Tests and non-Windows hosts use it to supply an anonymous segment.
func WithSegment(open func() (shm.Mapper, error)) Option {
	return func(t *Target) {
		t.open = open
		t.named = false
	}
}

// New creates a detached Dolphin target.
func New(opts ...Option) *Target {
	t := &Target{
		open:  func() (shm.Mapper, error) { return shm.Open(SegmentName) },
		named: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Attach binds to the emulator's shared segment and maps every logical
// view. It is idempotent, and any mapping failure detaches fully: partial
// attachment is never observable. The pid is ignored; the segment name
// identifies the only supported instance.
func (t *Target) Attach(pid scanengine.ProcessID) error {
	if t.IsAttached() {
		return nil
	}

	if t.named && !namedAttached.CompareAndSwap(false, true) {
		return errors.InvalidInput(errors.PhaseAttach, "another dolphin target holds the shared segment")
	}

	seg, err := t.open()
	if err != nil {
		t.releaseNamedGuard()
		return errors.Mapping(errors.PhaseAttach, "open shared segment", err)
	}
	t.seg = seg

	t.highest = 0
	t.lowest = scanengine.MemoryAddress(^uint64(0))

	for _, entry := range memoryLayout {
		mem, err := seg.MapView(uint64(entry.PhysicalBase), int(entry.Size))
		if err != nil {
			t.Detach()
			return errors.Mapping(errors.PhaseAttach, "map guest RAM view", err)
		}
		t.views = append(t.views, view{entry: entry, mem: mem})

		if entry.LogicalEnd() > t.highest {
			t.highest = entry.LogicalEnd()
		}
		if entry.LogicalBase < t.lowest {
			t.lowest = entry.LogicalBase
		}
	}

	Logger().Info("attached to dolphin segment",
		zap.Int("views", len(t.views)),
		zap.Uint64("lowest", uint64(t.lowest)),
		zap.Uint64("highest", uint64(t.highest)))
	return nil
}

// IsAttached reports whether the shared segment handle is held.
func (t *Target) IsAttached() bool {
	return t.seg != nil
}

// Detach unmaps every view in order, discards them, and closes the
// shared-segment handle. Safe on an unattached target.
func (t *Target) Detach() error {
	for i := range t.views {
		if t.views[i].mem != nil {
			if err := t.views[i].mem.Close(); err != nil {
				Logger().Warn("unmap view", zap.Error(err))
			}
		}
	}
	t.views = nil

	if t.seg != nil {
		if err := t.seg.Close(); err != nil {
			Logger().Warn("close segment", zap.Error(err))
		}
		t.seg = nil
		t.releaseNamedGuard()
	}
	return nil
}

func (t *Target) releaseNamedGuard() {
	if t.named {
		namedAttached.Store(false)
	}
}

// QueryMemory reports the view containing addr, or failing that the next
// higher view; views are kept in ascending order. Past the last view it
// reports found=false with next at the highest address.
func (t *Target) QueryMemory(addr scanengine.MemoryAddress) (scanengine.MemoryInformation, scanengine.MemoryAddress, bool) {
	var info scanengine.MemoryInformation
	if !t.IsAttached() {
		return info, t.highest, false
	}

	var found *view
	for i := range t.views {
		if t.views[i].contains(addr) {
			found = &t.views[i]
			break
		}
	}
	if found == nil {
		for i := range t.views {
			if addr < t.views[i].entry.LogicalBase {
				found = &t.views[i]
				break
			}
		}
	}

	if found == nil {
		return info, t.highest, false
	}

	info = scanengine.MemoryInformation{
		AllocationBase: found.entry.LogicalBase,
		AllocationSize: found.entry.Size,
		AllocationEnd:  found.entry.LogicalEnd(),
		IsCommitted:    true,
		IsMirror:       found.entry.IsMirror,
		IsWriteable:    true,
	}
	return info, info.AllocationEnd + 1, true
}

// RawRead copies up to len(buf) bytes at addr, truncated to the
// containing view's remaining length. Any one view claiming the address
// satisfies the read.
func (t *Target) RawRead(addr scanengine.MemoryAddress, buf []byte) (int, error) {
	if !t.IsAttached() {
		return 0, errors.NotAttached(errors.PhaseRead)
	}
	for i := range t.views {
		if mem := t.views[i].slice(addr); mem != nil {
			return copy(buf, mem), nil
		}
	}
	return 0, errors.OutOfBounds(errors.PhaseRead, uint64(addr))
}

// RawWrite is symmetric to RawRead.
func (t *Target) RawWrite(addr scanengine.MemoryAddress, data []byte) (int, error) {
	if !t.IsAttached() {
		return 0, errors.NotAttached(errors.PhaseWrite)
	}
	for i := range t.views {
		if mem := t.views[i].slice(addr); mem != nil {
			return copy(mem, data), nil
		}
	}
	return 0, errors.OutOfBounds(errors.PhaseWrite, uint64(addr))
}

// IsWithinModule is unsupported: the guest has no module table to consult.
func (t *Target) IsWithinModule(scanengine.MemoryAddress) (scanengine.MemoryAddress, scanengine.MemoryAddress, bool) {
	return 0, 0, false
}

// MainModuleBounds is unsupported for the same reason.
func (t *Target) MainModuleBounds() (scanengine.MemoryAddress, scanengine.MemoryAddress, bool) {
	return 0, 0, false
}

// FileTime64 is unavailable from the shared segment alone.
func (t *Target) FileTime64() uint64 { return 0 }

// TickTime32 is unavailable from the shared segment alone.
func (t *Target) TickTime32() uint32 { return 0 }

// PointerSize returns the guest pointer width.
func (t *Target) PointerSize() int { return 4 }

// IsLittleEndian reports the guest byte order; the PowerPC guest is
// big-endian.
func (t *Target) IsLittleEndian() bool { return false }

func (t *Target) LowestAddress() scanengine.MemoryAddress { return t.lowest }
func (t *Target) HighestAddress() scanengine.MemoryAddress { return t.highest }

var _ scanengine.Target = (*Target)(nil)
