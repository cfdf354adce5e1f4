//go:build !windows

package shm

import (
	"github.com/trainerkit/scan-engine/errors"
)

// Open binds to an existing named segment. Only Windows exposes the
// file-mapping namespace the emulator contract relies on; other hosts
// fail so callers fall back or inject a segment of their own.
func Open(name string) (Mapper, error) {
	return nil, errors.Unsupported(errors.PhaseSHM, "named shared memory segments require windows")
}
