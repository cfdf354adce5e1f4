// Package scanengine provides a memory scanner engine of the kind used by
// game trainers and reverse-engineering tools: it attaches to a running
// target, enumerates its committed memory regions, and repeatedly searches
// them for values matching typed scan patterns.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	scanengine/          Root package with the Target interface and address types
//	├── variant/         ScanVariant: typed search patterns and comparators
//	├── scanner/         Iterative scans that narrow a candidate set
//	├── dolphin/         Target backed by the Dolphin emulator's shared segment
//	├── shm/             Named shared-memory segments and aliasing views
//	├── script/          Scan scripts: dynamic values, timed events, wasm engine
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Attach to a running (patched) Dolphin emulator and search its guest RAM:
//
//	target := dolphin.New()
//	if err := target.Attach(0); err != nil {
//	    log.Fatal(err)
//	}
//	defer target.Detach()
//
//	sc := scanner.New(target)
//	needle := variant.FromNumber(100, variant.UInt32)
//	if err := sc.FirstScan(needle, variant.FlagEquals); err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range sc.Results() {
//	    fmt.Printf("%#x = %s\n", uint64(r.Address), r.Value.ToString())
//	}
//
// Successive calls to NextScan narrow the candidate set, either against a
// new value or, given a placeholder pattern, with relative comparators
// (increased, decreased, changed, unchanged) against each candidate's
// last-seen value.
//
// # Endianness
//
// Scan patterns compare themselves bit-for-bit against raw target buffers
// under either byte order. The Dolphin target is big-endian; comparisons
// and reads take the byte order from the target, so callers never swap
// bytes themselves.
//
// # Thread Safety
//
// The engine is single-threaded cooperative. A prepared variant is
// read-only and may be shared by workers scanning disjoint buffers;
// Scanner and Target instances must not be used concurrently.
package scanengine
