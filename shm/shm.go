package shm

import (
	"github.com/trainerkit/scan-engine/errors"
)

// Mapper is a shared-memory segment that can hand out views of its
// contents. Views mapped at overlapping offsets alias the same underlying
// bytes.
type Mapper interface {
	// MapView maps size bytes of the segment starting at offset.
	MapView(offset uint64, size int) (*View, error)

	// Close releases the segment handle. Views must be closed first.
	Close() error
}

// View is one mapped window of a segment.
type View struct {
	data  []byte
	unmap func() error
}

// Bytes exposes the mapped window. The slice stays valid until Close.
func (v *View) Bytes() []byte { return v.data }

// Len returns the window size in bytes.
func (v *View) Len() int { return len(v.data) }

// Close unmaps the window. Safe to call more than once.
func (v *View) Close() error {
	v.data = nil
	if v.unmap == nil {
		return nil
	}
	unmap := v.unmap
	v.unmap = nil
	return unmap()
}

// Anonymous is a process-private segment backed by one anonymous mapping.
// Its views are aliasing windows over the same allocation, giving the
// same observable behavior as a named segment: a write through one view
// is visible through every overlapping view. It stands in for a real
// emulator segment in tests and on hosts without a named binding.
type Anonymous struct {
	base []byte
	free func([]byte) error
}

// NewAnonymous allocates a size-byte anonymous segment.
func NewAnonymous(size int) (*Anonymous, error) {
	if size <= 0 {
		return nil, errors.InvalidInput(errors.PhaseSHM, "segment size must be positive")
	}
	base, free, err := osMapAnon(size)
	if err != nil {
		return nil, errors.Mapping(errors.PhaseSHM, "allocate anonymous segment", err)
	}
	return &Anonymous{base: base, free: free}, nil
}

// MapView returns an aliasing window over the segment.
func (a *Anonymous) MapView(offset uint64, size int) (*View, error) {
	if a.base == nil {
		return nil, errors.InvalidInput(errors.PhaseSHM, "segment is closed")
	}
	if size < 0 || offset > uint64(len(a.base)) || uint64(size) > uint64(len(a.base))-offset {
		return nil, errors.New(errors.PhaseSHM, errors.KindOutOfBounds).
			Detail("view [%d, %d) exceeds segment of %d bytes", offset, offset+uint64(size), len(a.base)).
			Build()
	}
	return &View{data: a.base[offset : offset+uint64(size)]}, nil
}

// Close frees the backing allocation.
func (a *Anonymous) Close() error {
	if a.base == nil {
		return nil
	}
	base, free := a.base, a.free
	a.base, a.free = nil, nil
	if free == nil {
		return nil
	}
	return free(base)
}

var _ Mapper = (*Anonymous)(nil)
