package lic

import "time"

// Stats are cumulative engine counters.
type Stats struct {
	// Executions counts Execute calls; Failures counts those that returned
	// an error.
	Executions uint64
	Failures   uint64

	// Dispatches counts completed compute dispatches.
	Dispatches uint64

	// BuffersAllocated and BuffersReleased count device buffer creations
	// and destructions. BytesAllocated is the size of the live buffers.
	BuffersAllocated uint64
	BuffersReleased  uint64
	BytesAllocated   uint64

	// ProgramBuilds counts successful program builds, BuildFailures
	// failed compile or link attempts.
	ProgramBuilds uint64
	BuildFailures uint64

	// LastDuration is the wall time of the most recent successful Execute.
	LastDuration time.Duration
}

// LiveBuffers returns the number of buffers currently allocated.
func (s Stats) LiveBuffers() uint64 {
	return s.BuffersAllocated - s.BuffersReleased
}
