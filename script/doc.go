// Package script exposes the scan engine to user scripts.
//
// Scripts are core WebAssembly modules. They import the memscan host
// module for target access (attach, peek, poke), scan control
// (first-scan, next-scan and their unknown/relative forms), and result
// enumeration; they export an optional "main" (run at load) and "tick"
// (run by the timed-event loop after schedule-tick).
//
// The package also defines the dynamic value bridge shared with any
// embedding host: variants render as integers, floats, strings, ordered
// lists, and keyed tables (ranges as {__min, __max}, placeholders as the
// empty table), and opaque engine objects travel as
// {objectType, objectPointer} references.
package script
