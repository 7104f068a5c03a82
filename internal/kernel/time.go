// Package kernel provides the discrete-event substrate the rest of the
// simulator runs on: the virtual-time scheduler, topology primitives,
// static routing, and raw sockets.
package kernel

import "math"

// VirtualTime is a point in simulated time, in nanoseconds since the start
// of the run. Using an integer (rather than float64 seconds) keeps event
// ordering exact regardless of how many fractional-second durations a
// configuration accumulates.
type VirtualTime = int64

// SecondsToVT converts a floating point second count (as used throughout the
// configuration file, e.g. burst_duration_s) into a VirtualTime.
func SecondsToVT(s float64) VirtualTime {
	return VirtualTime(math.Round(s * 1e9))
}

// VTToSeconds converts a VirtualTime back to a float64 second count, used
// only for reporting (progress logs, topology/schedule dumps).
func VTToSeconds(t VirtualTime) float64 {
	return float64(t) / 1e9
}
