// Package shm abstracts named shared-memory segments with multiple views.
//
// A segment is a handle to shared physical memory; a view is a mapped
// window into it. Two views over the same offset alias the same bytes,
// which is how an emulator's mirrored guest address ranges are realized
// host-side.
//
// Open binds to an existing named segment and is only implemented on
// Windows, where it wraps OpenFileMapping/MapViewOfFile. NewAnonymous
// provides a process-private segment with the same aliasing semantics for
// tests and unsupported hosts.
package shm
