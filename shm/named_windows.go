//go:build windows

package shm

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/trainerkit/scan-engine/errors"
)

var (
	kernel32            = windows.NewLazySystemDLL("kernel32.dll")
	procOpenFileMapping = kernel32.NewProc("OpenFileMappingW")
)

// Named is a handle to an existing named file-mapping object.
type Named struct {
	handle windows.Handle
}

// Open binds to the named segment created by another process.
func Open(name string) (*Named, error) {
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, errors.InvalidInput(errors.PhaseSHM, "segment name contains NUL")
	}

	access := uintptr(windows.FILE_MAP_READ | windows.FILE_MAP_WRITE)
	h, _, callErr := procOpenFileMapping.Call(access, 0, uintptr(unsafe.Pointer(namep)))
	if h == 0 {
		return nil, errors.Mapping(errors.PhaseSHM, "open file mapping "+name, callErr)
	}
	return &Named{handle: windows.Handle(h)}, nil
}

// MapView maps size bytes of the segment starting at offset. The offset
// must respect the system allocation granularity.
func (n *Named) MapView(offset uint64, size int) (*View, error) {
	if n.handle == 0 {
		return nil, errors.InvalidInput(errors.PhaseSHM, "segment is closed")
	}
	addr, err := windows.MapViewOfFile(
		n.handle,
		windows.FILE_MAP_READ|windows.FILE_MAP_WRITE,
		uint32(offset>>32),
		uint32(offset),
		uintptr(size),
	)
	if err != nil {
		return nil, errors.Mapping(errors.PhaseSHM, "map view", err)
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &View{
		data: data,
		unmap: func() error {
			return windows.UnmapViewOfFile(addr)
		},
	}, nil
}

// Close releases the mapping handle.
func (n *Named) Close() error {
	if n.handle == 0 {
		return nil
	}
	h := n.handle
	n.handle = 0
	return windows.CloseHandle(h)
}

var _ Mapper = (*Named)(nil)
