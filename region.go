package scanengine

// Regions calls fn for each region t reports, in ascending address order,
// stopping early if fn returns false. It does not filter by IsCommitted. It implements the canonical
// enumeration loop: each successful query advances strictly past the
// reported region's end, so the walk terminates for any conforming Target.
func Regions(t Target, fn func(MemoryInformation) bool) {
	addr := t.LowestAddress()
	highest := t.HighestAddress()
	for {
		info, next, found := t.QueryMemory(addr)
		if !found {
			return
		}
		if !fn(info) {
			return
		}
		if next <= addr || next >= highest {
			return
		}
		addr = next
	}
}
