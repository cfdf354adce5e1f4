package scanengine

// MemoryAddress is a location in a target's logical address space.
// Targets with narrower pointers (the Dolphin target uses 32-bit guest
// pointers) still report addresses through this type.
type MemoryAddress uint64

// ProcessID identifies a target instance for Attach. Targets that bind to
// a fixed resource (a named shared segment) ignore it.
type ProcessID uint32

// MemoryInformation describes one committed region of a target's address
// space, as reported by Target.QueryMemory.
type MemoryInformation struct {
	AllocationBase MemoryAddress
	AllocationSize uint64
	AllocationEnd  MemoryAddress

	IsCommitted   bool
	IsModule      bool
	IsMirror      bool
	IsMappedImage bool
	IsMapped      bool
	IsWriteable   bool
	IsExecutable  bool
}

// Target is a uniform view over an attachable address space: a native
// process, or an emulator exposing guest RAM through a shared segment.
//
// Attach is idempotent: attaching an already-attached target succeeds
// without side effects. Detach is safe on an unattached target.
type Target interface {
	Attach(pid ProcessID) error
	Detach() error
	IsAttached() bool

	// QueryMemory reports the region containing addr, or if none, the next
	// higher region. found is false only when addr lies past the last
	// region; next is then HighestAddress. On success next points strictly
	// past the reported region's AllocationEnd.
	QueryMemory(addr MemoryAddress) (info MemoryInformation, next MemoryAddress, found bool)

	// RawRead copies up to len(buf) bytes at addr, truncating to the
	// containing region's remaining length. It returns the number of bytes
	// copied; n is zero only on error.
	RawRead(addr MemoryAddress, buf []byte) (n int, err error)

	// RawWrite is symmetric to RawRead.
	RawWrite(addr MemoryAddress, data []byte) (n int, err error)

	// IsWithinModule reports the bounds of the module containing addr.
	// Targets without module introspection return ok=false.
	IsWithinModule(addr MemoryAddress) (start, end MemoryAddress, ok bool)

	// MainModuleBounds reports the bounds of the target's main module.
	// Targets without module introspection return ok=false.
	MainModuleBounds() (start, end MemoryAddress, ok bool)

	// FileTime64 is the target's wall time; TickTime32 its monotonic tick
	// counter. Targets that cannot supply them return 0.
	FileTime64() uint64
	TickTime32() uint32

	PointerSize() int
	IsLittleEndian() bool
	LowestAddress() MemoryAddress
	HighestAddress() MemoryAddress
}
