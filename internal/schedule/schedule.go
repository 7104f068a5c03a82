// Package schedule computes the cyclic pulse-wave waveform timings: a
// per-vector (start_offset, on_time, off_time, standard_retarget_interval,
// last_target_retarget_interval) and a common cycle duration, purely as a
// function of (vector list, numTargets). The schedule contains no
// randomness, so every worker derives the identical waveform.
package schedule

import "github.com/dpws-sim/dpws-sim/internal/kernel"

// VectorSpec is the minimal input the calculator needs per vector: its
// burst duration (b) and target-switch duration (s), already resolved
// against global defaults by the caller.
type VectorSpec struct {
	Name                string
	BurstDuration       kernel.VirtualTime
	TargetSwitchDuration kernel.VirtualTime
}

// VectorTiming is the derived, immutable timing for one vector.
type VectorTiming struct {
	Name                      string
	StartOffset               kernel.VirtualTime
	OnTime                    kernel.VirtualTime
	OffTime                   kernel.VirtualTime
	StandardRetargetInterval  kernel.VirtualTime
	LastTargetRetargetInterval kernel.VirtualTime
}

// Schedule is the full derived waveform: one VectorTiming per vector plus
// the shared cycle duration D.
type Schedule struct {
	CycleDuration kernel.VirtualTime
	Vectors       []VectorTiming
}

// Calculate computes the schedule for vectors attacking numTargets
// targets. Vectors are processed in declaration order, which fixes the
// start-offset accumulation.
//
// Per vector i: on_time_i = b_i; off_time_i = D - T*b_i - (T-1)*s_i;
// standard_retarget_interval_i = b_i + s_i;
// last_target_retarget_interval_i = b_i + off_time_i.
// D = sum over i of T*(b_i + s_i).
func Calculate(vectors []VectorSpec, numTargets int) Schedule {
	T := kernel.VirtualTime(numTargets)
	var cycle kernel.VirtualTime
	for _, v := range vectors {
		cycle += T * (v.BurstDuration + v.TargetSwitchDuration)
	}

	var offset kernel.VirtualTime
	timings := make([]VectorTiming, 0, len(vectors))
	for _, v := range vectors {
		onTime := v.BurstDuration
		offTime := cycle - T*v.BurstDuration - (T-1)*v.TargetSwitchDuration
		timings = append(timings, VectorTiming{
			Name:                      v.Name,
			StartOffset:               offset,
			OnTime:                    onTime,
			OffTime:                   offTime,
			StandardRetargetInterval:  v.BurstDuration + v.TargetSwitchDuration,
			LastTargetRetargetInterval: v.BurstDuration + offTime,
		})
		offset += T * (v.BurstDuration + v.TargetSwitchDuration)
	}

	return Schedule{CycleDuration: cycle, Vectors: timings}
}

// StartOffset returns the start offset for the vector at vectorIndex.
func (s Schedule) StartOffset(vectorIndex int) kernel.VirtualTime {
	return s.Vectors[vectorIndex].StartOffset
}

// RetargetInterval returns how long the source bound to vectorIndex should
// dwell on the target at targetIndex (0-based, modulo numTargets) before its
// next retarget: the standard interval for every target but the last in the
// cycle, which instead idles for the rest of the cycle
// (last_target_retarget_interval).
func (s Schedule) RetargetInterval(vectorIndex, targetIndex, numTargets int) kernel.VirtualTime {
	v := s.Vectors[vectorIndex]
	if targetIndex == numTargets-1 {
		return v.LastTargetRetargetInterval
	}
	return v.StandardRetargetInterval
}
