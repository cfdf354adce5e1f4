package scanner

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"go.uber.org/zap"

	scanengine "github.com/trainerkit/scan-engine"
	"github.com/trainerkit/scan-engine/errors"
	"github.com/trainerkit/scan-engine/variant"
)

// Relative comparator masks for NextScan with a placeholder needle: the
// current target bytes are compared against each candidate's last-seen
// value, so "increased" is the buffer ordering greater-than.
const (
	Increased = variant.FlagGreaterThan
	Decreased = variant.FlagLessThan
	Changed   = variant.FlagNotEqual
	Unchanged = variant.FlagEquals
)

const defaultChunkSize = 1 << 20

// Result is one surviving candidate: its address and the value seen there
// on the most recent pass.
type Result struct {
	Address scanengine.MemoryAddress
	Value   variant.Variant
}

// Scanner progressively narrows a candidate set over a target's committed
// regions. The first scan sweeps every region; later scans only re-read
// the surviving candidates.
type Scanner struct {
	target    scanengine.Target
	chunkSize int

	needle  variant.Variant
	matches *roaring64.Bitmap
	values  map[uint64]variant.Variant
	passes  int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithChunkSize overrides the sweep chunk size. Chunks overlap by the
// needle size minus one byte so matches straddling a boundary are kept.
func WithChunkSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// New creates a scanner over the given target.
func New(target scanengine.Target, opts ...Option) *Scanner {
	s := &Scanner{
		target:    target,
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FirstScan sweeps every committed, non-mirror region for bytes matching
// needle under the wanted comparator mask and records each hit with its
// materialized value. A placeholder needle records every address of its
// width, to be narrowed by relative comparators later.
func (s *Scanner) FirstScan(needle variant.Variant, wanted variant.Flags) error {
	if needle.IsNull() {
		return errors.NullVariant(errors.PhaseScan)
	}
	if !s.target.IsAttached() {
		return errors.NotAttached(errors.PhaseScan)
	}
	if err := needle.PrepareForSearch(s.target); err != nil {
		return err
	}

	s.matches = roaring64.NewBitmap()
	s.values = make(map[uint64]variant.Variant)
	s.needle = needle
	s.passes = 0

	size := needle.Size()
	little := s.target.IsLittleEndian()
	buf := make([]byte, s.chunkSize)

	scanengine.Regions(s.target, func(info scanengine.MemoryInformation) bool {
		if !info.IsCommitted {
			return true
		}
		if info.IsMirror {
			// Mirrors alias bytes already swept through their primary
			// region; scanning them would duplicate every hit.
			Logger().Debug("skipping mirror region",
				zap.Uint64("base", uint64(info.AllocationBase)))
			return true
		}
		s.sweepRegion(info, needle, wanted, size, little, buf)
		return true
	})

	s.passes = 1
	Logger().Info("first scan complete",
		zap.String("needle", needle.TypeName()),
		zap.Uint64("matches", s.matches.GetCardinality()))
	return nil
}

func (s *Scanner) sweepRegion(info scanengine.MemoryInformation, needle variant.Variant, wanted variant.Flags, size int, little bool, buf []byte) {
	addr := info.AllocationBase
	end := info.AllocationEnd
	for addr <= end {
		remaining := uint64(end-addr) + 1
		readLen := len(buf)
		if uint64(readLen) > remaining {
			readLen = int(remaining)
		}
		if readLen < size {
			return
		}

		n, err := s.target.RawRead(addr, buf[:readLen])
		if err != nil || n < size {
			Logger().Warn("region read failed",
				zap.Uint64("addr", uint64(addr)), zap.Error(err))
			return
		}

		for _, off := range needle.SearchForMatchesInChunk(buf[:n], wanted, little) {
			hit := addr + scanengine.MemoryAddress(off)
			s.matches.Add(uint64(hit))
			s.values[uint64(hit)] = variant.FromRawBuffer(buf[off:off+size], little, needle)
		}

		if n >= int(remaining) {
			return
		}
		// Step back so a value straddling the chunk boundary still falls
		// inside one window.
		addr += scanengine.MemoryAddress(n - (size - 1))
	}
}

// NextScan re-reads every surviving candidate and keeps those whose
// comparison intersects the wanted mask. A placeholder needle compares
// the current bytes against each candidate's last-seen value, which is
// how relative comparators (Increased, Decreased, Changed, Unchanged)
// work; any other needle compares against its own value.
func (s *Scanner) NextScan(needle variant.Variant, wanted variant.Flags) error {
	if s.matches == nil {
		return errors.InvalidInput(errors.PhaseScan, "no prior scan to narrow")
	}
	if needle.IsNull() {
		return errors.NullVariant(errors.PhaseScan)
	}
	if !s.target.IsAttached() {
		return errors.NotAttached(errors.PhaseScan)
	}
	if !needle.IsCompatibleWith(s.needle, false) {
		return errors.TypeMismatch(errors.PhaseScan, needle.TypeName(),
			"needle is incompatible with the prior scan step")
	}

	relative := needle.IsPlaceholder()
	if !relative {
		if err := needle.PrepareForSearch(s.target); err != nil {
			return err
		}
	}

	size := needle.Size()
	little := s.target.IsLittleEndian()
	buf := make([]byte, size)

	for _, addr := range s.matches.ToArray() {
		n, err := s.target.RawRead(scanengine.MemoryAddress(addr), buf)
		if err != nil || n < size {
			s.drop(addr)
			continue
		}

		var flags variant.Flags
		if relative {
			prev := s.values[addr]
			if err := prev.PrepareForSearch(s.target); err != nil {
				s.drop(addr)
				continue
			}
			flags = prev.CompareTo(buf, little)
		} else {
			flags = needle.CompareTo(buf, little)
		}

		if flags&wanted == 0 {
			s.drop(addr)
			continue
		}
		s.values[addr] = variant.FromRawBuffer(buf, little, needle)
	}

	s.passes++
	Logger().Info("scan narrowed",
		zap.Int("pass", s.passes),
		zap.Uint64("matches", s.matches.GetCardinality()))
	return nil
}

func (s *Scanner) drop(addr uint64) {
	s.matches.Remove(addr)
	delete(s.values, addr)
}

// ResultCount returns the surviving candidate count.
func (s *Scanner) ResultCount() uint64 {
	if s.matches == nil {
		return 0
	}
	return s.matches.GetCardinality()
}

// Results returns the surviving candidates in ascending address order.
func (s *Scanner) Results() []Result {
	if s.matches == nil {
		return nil
	}
	out := make([]Result, 0, s.matches.GetCardinality())
	for _, addr := range s.matches.ToArray() {
		out = append(out, Result{
			Address: scanengine.MemoryAddress(addr),
			Value:   s.values[addr],
		})
	}
	return out
}

// Passes returns how many scan passes have run since the last Reset.
func (s *Scanner) Passes() int { return s.passes }

// Reset discards the candidate set so the next scan starts fresh.
func (s *Scanner) Reset() {
	s.matches = nil
	s.values = nil
	s.needle = variant.MakeNull()
	s.passes = 0
}
