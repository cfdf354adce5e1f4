package dolphin

import (
	"bytes"
	"testing"

	scanengine "github.com/trainerkit/scan-engine"
	"github.com/trainerkit/scan-engine/shm"
)

func newTestTarget(t *testing.T) *Target {
	t.Helper()
	target := New(WithSegment(func() (shm.Mapper, error) {
		return shm.NewAnonymous(mem1Size)
	}))
	if err := target.Attach(0); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { target.Detach() })
	return target
}

func TestAttachLifecycle(t *testing.T) {
	target := New(WithSegment(func() (shm.Mapper, error) {
		return shm.NewAnonymous(mem1Size)
	}))

	if target.IsAttached() {
		t.Fatal("new target reports attached")
	}
	if err := target.Detach(); err != nil {
		t.Fatalf("Detach on unattached target: %v", err)
	}

	if err := target.Attach(0); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !target.IsAttached() {
		t.Fatal("target not attached after Attach")
	}

	// Re-attaching an attached target succeeds without side effects.
	if err := target.Attach(42); err != nil {
		t.Fatalf("re-Attach: %v", err)
	}

	if err := target.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if target.IsAttached() {
		t.Fatal("target still attached after Detach")
	}
}

type failingMapper struct {
	inner shm.Mapper
	calls int
}

func (f *failingMapper) MapView(offset uint64, size int) (*shm.View, error) {
	f.calls++
	if f.calls > 1 {
		return nil, shmErr
	}
	return f.inner.MapView(offset, size)
}

func (f *failingMapper) Close() error { return f.inner.Close() }

var shmErr = errFake{}

type errFake struct{}

func (errFake) Error() string { return "fake mapping failure" }

func TestAttachPartialFailureDetaches(t *testing.T) {
	target := New(WithSegment(func() (shm.Mapper, error) {
		seg, err := shm.NewAnonymous(mem1Size)
		if err != nil {
			return nil, err
		}
		return &failingMapper{inner: seg}, nil
	}))

	if err := target.Attach(0); err == nil {
		t.Fatal("Attach succeeded despite mapping failure")
	}
	if target.IsAttached() {
		t.Fatal("partial attachment observable")
	}
}

func TestAddressBounds(t *testing.T) {
	target := newTestTarget(t)

	if got := target.LowestAddress(); got != 0x80000000 {
		t.Errorf("LowestAddress() = %#x", uint64(got))
	}
	if got := target.HighestAddress(); got != 0xC17FFFFF {
		t.Errorf("HighestAddress() = %#x", uint64(got))
	}
	if target.PointerSize() != 4 {
		t.Errorf("PointerSize() = %d", target.PointerSize())
	}
	if target.IsLittleEndian() {
		t.Error("IsLittleEndian() = true for a PowerPC guest")
	}
}

func TestQueryMemory(t *testing.T) {
	target := newTestTarget(t)

	tests := []struct {
		name      string
		addr      scanengine.MemoryAddress
		wantBase  scanengine.MemoryAddress
		wantFound bool
		mirror    bool
	}{
		{"inside cached", 0x80000100, 0x80000000, true, false},
		{"cached end", 0x817FFFFF, 0x80000000, true, false},
		{"gap advances to mirror", 0x90000000, 0xC0000000, true, true},
		{"below lowest advances", 0x00000000, 0x80000000, true, false},
		{"inside mirror", 0xC0000100, 0xC0000000, true, true},
		{"past all views", 0xC1800000, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, next, found := target.QueryMemory(tt.addr)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if !found {
				if next != target.HighestAddress() {
					t.Errorf("next = %#x, want highest", uint64(next))
				}
				return
			}
			if info.AllocationBase != tt.wantBase {
				t.Errorf("base = %#x, want %#x", uint64(info.AllocationBase), uint64(tt.wantBase))
			}
			if info.IsMirror != tt.mirror {
				t.Errorf("IsMirror = %v", info.IsMirror)
			}
			if !info.IsCommitted || !info.IsWriteable || info.IsExecutable || info.IsModule {
				t.Errorf("flags = %+v", info)
			}
			if next != info.AllocationEnd+1 {
				t.Errorf("next = %#x, want %#x", uint64(next), uint64(info.AllocationEnd+1))
			}
		})
	}
}

func TestRegionEnumeration(t *testing.T) {
	target := newTestTarget(t)

	var bases []scanengine.MemoryAddress
	scanengine.Regions(target, func(info scanengine.MemoryInformation) bool {
		bases = append(bases, info.AllocationBase)
		return true
	})

	if len(bases) != 2 || bases[0] != 0x80000000 || bases[1] != 0xC0000000 {
		t.Errorf("enumerated bases = %#x", bases)
	}
}

func TestMirrorAliasing(t *testing.T) {
	target := newTestTarget(t)

	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if n, err := target.RawWrite(0x80000100, data); err != nil || n != 4 {
		t.Fatalf("RawWrite = %d, %v", n, err)
	}

	got := make([]byte, 4)
	if n, err := target.RawRead(0xC0000100, got); err != nil || n != 4 {
		t.Fatalf("RawRead = %d, %v", n, err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("mirror read %x, want %x", got, data)
	}

	// And the reverse direction.
	if _, err := target.RawWrite(0xC0000200, []byte{0x11}); err != nil {
		t.Fatalf("mirror RawWrite: %v", err)
	}
	one := make([]byte, 1)
	if _, err := target.RawRead(0x80000200, one); err != nil {
		t.Fatalf("cached RawRead: %v", err)
	}
	if one[0] != 0x11 {
		t.Errorf("cached read %#x, want 0x11", one[0])
	}
}

func TestRawReadTruncation(t *testing.T) {
	target := newTestTarget(t)

	buf := make([]byte, 8)
	n, err := target.RawRead(0x817FFFFE, buf)
	if err != nil {
		t.Fatalf("RawRead: %v", err)
	}
	if n != 2 {
		t.Errorf("RawRead n = %d, want 2 (region remainder)", n)
	}

	n, err = target.RawWrite(0xC17FFFFF, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("RawWrite: %v", err)
	}
	if n != 1 {
		t.Errorf("RawWrite n = %d, want 1", n)
	}
}

func TestRawIOOutOfBounds(t *testing.T) {
	target := newTestTarget(t)

	if _, err := target.RawRead(0x00001000, make([]byte, 4)); err == nil {
		t.Error("RawRead succeeded outside all views")
	}
	if _, err := target.RawWrite(0xF0000000, []byte{1}); err == nil {
		t.Error("RawWrite succeeded outside all views")
	}
}

func TestRawIODetached(t *testing.T) {
	target := New(WithSegment(func() (shm.Mapper, error) {
		return shm.NewAnonymous(mem1Size)
	}))

	if _, err := target.RawRead(0x80000000, make([]byte, 1)); err == nil {
		t.Error("RawRead succeeded while detached")
	}
	if _, err := target.RawWrite(0x80000000, []byte{1}); err == nil {
		t.Error("RawWrite succeeded while detached")
	}
}

func TestModuleQueriesUnsupported(t *testing.T) {
	target := newTestTarget(t)

	if _, _, ok := target.IsWithinModule(0x80000000); ok {
		t.Error("IsWithinModule reported support")
	}
	if _, _, ok := target.MainModuleBounds(); ok {
		t.Error("MainModuleBounds reported support")
	}
	if target.FileTime64() != 0 || target.TickTime32() != 0 {
		t.Error("time sources should be unsupported")
	}
}

func TestMirrorEntryDerivation(t *testing.T) {
	m := mem1Cached.Mirror(0xC0000000)
	if m.PhysicalBase != mem1Cached.PhysicalBase || m.Size != mem1Cached.Size {
		t.Error("mirror changed physical placement")
	}
	if !m.IsMirror {
		t.Error("mirror not flagged")
	}
	if m.LogicalEnd() != 0xC17FFFFF {
		t.Errorf("mirror end = %#x", uint64(m.LogicalEnd()))
	}
}
