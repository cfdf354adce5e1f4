// Package scanner drives iterative scans that progressively narrow a
// candidate set over a target's memory.
//
// A first scan sweeps every committed region for a typed pattern; each
// following scan re-reads only the survivors and filters them with a
// comparator mask. Starting from a placeholder pattern captures every
// value of the chosen width, so later passes can select by how the value
// moved (Increased, Decreased, Changed, Unchanged) rather than by what it
// is.
//
//	sc := scanner.New(target)
//	sc.FirstScan(variant.MakePlaceholder(variant.UInt32), variant.FlagsAll)
//	// ... let the target run ...
//	sc.NextScan(variant.MakePlaceholder(variant.UInt32), scanner.Increased)
//
// Candidate addresses live in a compressed bitmap, so a first pass that
// matches millions of addresses stays cheap to hold and intersect.
package scanner
