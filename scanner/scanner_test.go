package scanner

import (
	"testing"

	scanengine "github.com/trainerkit/scan-engine"
	"github.com/trainerkit/scan-engine/dolphin"
	"github.com/trainerkit/scan-engine/shm"
	"github.com/trainerkit/scan-engine/variant"
)

const mem1Size = 0x01800000

func newTestTarget(t *testing.T) *dolphin.Target {
	t.Helper()
	target := dolphin.New(dolphin.WithSegment(func() (shm.Mapper, error) {
		return shm.NewAnonymous(mem1Size)
	}))
	if err := target.Attach(0); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { target.Detach() })
	return target
}

func mustWrite(t *testing.T, target scanengine.Target, addr scanengine.MemoryAddress, v variant.Variant) {
	t.Helper()
	if err := v.WriteToTarget(target, addr); err != nil {
		t.Fatalf("WriteToTarget(%#x): %v", uint64(addr), err)
	}
}

func resultAddrs(s *Scanner) []uint64 {
	var out []uint64
	for _, r := range s.Results() {
		out = append(out, uint64(r.Address))
	}
	return out
}

func TestFirstScanFindsPlantedValues(t *testing.T) {
	target := newTestTarget(t)
	mustWrite(t, target, 0x80000100, variant.FromNumber(100, variant.UInt32))
	mustWrite(t, target, 0x80500000, variant.FromNumber(100, variant.UInt32))

	s := New(target)
	if err := s.FirstScan(variant.FromNumber(100, variant.UInt32), variant.FlagEquals); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}

	got := resultAddrs(s)
	if len(got) != 2 || got[0] != 0x80000100 || got[1] != 0x80500000 {
		t.Fatalf("result addresses = %#x, want [0x80000100 0x80500000]", got)
	}

	// Mirror regions are skipped: every hit sits in the cached range.
	for _, addr := range got {
		if addr >= 0xC0000000 {
			t.Errorf("hit %#x inside mirror region", addr)
		}
	}

	if v, ok := s.Results()[0].Value.Uint32(); !ok || v != 100 {
		t.Errorf("materialized value = %d, %v", v, ok)
	}
}

func TestScanAcrossChunkBoundary(t *testing.T) {
	target := newTestTarget(t)
	mustWrite(t, target, 0x80000FFE, variant.FromNumber(0xAABBCCDD, variant.UInt32))

	s := New(target, WithChunkSize(4096))
	if err := s.FirstScan(variant.FromNumber(0xAABBCCDD, variant.UInt32), variant.FlagEquals); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}

	got := resultAddrs(s)
	if len(got) != 1 || got[0] != 0x80000FFE {
		t.Errorf("result addresses = %#x, want [0x80000ffe]", got)
	}
}

func TestNextScanNarrowsByValue(t *testing.T) {
	target := newTestTarget(t)
	mustWrite(t, target, 0x80000100, variant.FromNumber(100, variant.UInt32))
	mustWrite(t, target, 0x80200000, variant.FromNumber(100, variant.UInt32))

	s := New(target)
	needle := variant.FromNumber(100, variant.UInt32)
	if err := s.FirstScan(needle, variant.FlagEquals); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	if s.ResultCount() != 2 {
		t.Fatalf("first pass count = %d", s.ResultCount())
	}

	// One candidate moves; an equality re-scan keeps only the other.
	mustWrite(t, target, 0x80200000, variant.FromNumber(999, variant.UInt32))
	if err := s.NextScan(needle, variant.FlagEquals); err != nil {
		t.Fatalf("NextScan: %v", err)
	}

	got := resultAddrs(s)
	if len(got) != 1 || got[0] != 0x80000100 {
		t.Errorf("narrowed addresses = %#x, want [0x80000100]", got)
	}
	if s.Passes() != 2 {
		t.Errorf("Passes() = %d, want 2", s.Passes())
	}
}

func TestPlaceholderRelativeScan(t *testing.T) {
	target := newTestTarget(t)
	a := scanengine.MemoryAddress(0x80000100)
	b := scanengine.MemoryAddress(0x80000200)
	mustWrite(t, target, a, variant.FromNumber(50, variant.UInt32))
	mustWrite(t, target, b, variant.FromNumber(70, variant.UInt32))

	s := New(target)
	ph := variant.MakePlaceholder(variant.UInt32)

	if err := s.FirstScan(variant.FromNumber(50, variant.UInt32), variant.FlagEquals); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	before := s.ResultCount()
	if before == 0 {
		t.Fatal("first pass found nothing")
	}

	// Raise the value at a; every other candidate stays 50.
	mustWrite(t, target, a, variant.FromNumber(60, variant.UInt32))
	if err := s.NextScan(ph, Increased); err != nil {
		t.Fatalf("NextScan(Increased): %v", err)
	}

	got := resultAddrs(s)
	if len(got) != 1 || got[0] != uint64(a) {
		t.Fatalf("increased candidates = %#x, want [%#x]", got, uint64(a))
	}
	if v, ok := s.Results()[0].Value.Uint32(); !ok || v != 60 {
		t.Errorf("last-seen value = %d, %v, want 60", v, ok)
	}

	// Unchanged since the last pass keeps it; decreased drops it.
	if err := s.NextScan(ph, Unchanged); err != nil {
		t.Fatalf("NextScan(Unchanged): %v", err)
	}
	if s.ResultCount() != 1 {
		t.Fatalf("unchanged count = %d", s.ResultCount())
	}
	if err := s.NextScan(ph, Decreased); err != nil {
		t.Fatalf("NextScan(Decreased): %v", err)
	}
	if s.ResultCount() != 0 {
		t.Errorf("decreased count = %d, want 0", s.ResultCount())
	}
}

func TestRangeScan(t *testing.T) {
	target := newTestTarget(t)
	mustWrite(t, target, 0x80000300, variant.FromNumber(15, variant.UInt32))
	mustWrite(t, target, 0x80000400, variant.FromNumber(50, variant.UInt32))

	s := New(target)
	needle := variant.FromVariantRange(
		variant.FromNumber(10, variant.UInt32),
		variant.FromNumber(20, variant.UInt32),
	)
	if err := s.FirstScan(needle, variant.FlagEquals); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}

	for _, r := range s.Results() {
		v, ok := r.Value.Uint32()
		if !ok || v < 10 || v > 20 {
			t.Errorf("candidate %#x = %d outside [10, 20]", uint64(r.Address), v)
		}
	}

	found := false
	for _, addr := range resultAddrs(s) {
		if addr == 0x80000300 {
			found = true
		}
		if addr == 0x80000400 {
			t.Error("out-of-range value survived")
		}
	}
	if !found {
		t.Error("in-range value missing")
	}
}

func TestStringScan(t *testing.T) {
	target := newTestTarget(t)
	mustWrite(t, target, 0x80001000, variant.FromASCIIString("LINK"))

	s := New(target)
	if err := s.FirstScan(variant.FromASCIIString("LINK"), variant.FlagEquals); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}

	got := resultAddrs(s)
	if len(got) != 1 || got[0] != 0x80001000 {
		t.Errorf("string scan addresses = %#x", got)
	}
}

func TestScanPreconditions(t *testing.T) {
	target := newTestTarget(t)
	s := New(target)

	if err := s.FirstScan(variant.MakeNull(), variant.FlagEquals); err == nil {
		t.Error("FirstScan accepted a null needle")
	}
	if err := s.NextScan(variant.FromNumber(1, variant.UInt8), variant.FlagEquals); err == nil {
		t.Error("NextScan succeeded without a prior scan")
	}

	if err := s.FirstScan(variant.FromNumber(1, variant.UInt32), variant.FlagEquals); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	if err := s.NextScan(variant.FromNumber(1, variant.UInt16), variant.FlagEquals); err == nil {
		t.Error("NextScan accepted an incompatible needle")
	}
}

func TestReset(t *testing.T) {
	target := newTestTarget(t)
	mustWrite(t, target, 0x80000100, variant.FromNumber(7, variant.UInt32))

	s := New(target)
	if err := s.FirstScan(variant.FromNumber(7, variant.UInt32), variant.FlagEquals); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	if s.ResultCount() == 0 {
		t.Fatal("no results before reset")
	}

	s.Reset()
	if s.ResultCount() != 0 || s.Passes() != 0 {
		t.Error("Reset did not clear state")
	}
	if err := s.NextScan(variant.FromNumber(7, variant.UInt32), variant.FlagEquals); err == nil {
		t.Error("NextScan succeeded after Reset")
	}
}
