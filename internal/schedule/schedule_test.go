package schedule

import (
	"testing"

	"github.com/dpws-sim/dpws-sim/internal/kernel"
	"github.com/stretchr/testify/require"
)

func secs(s float64) kernel.VirtualTime { return kernel.SecondsToVT(s) }

// One attacker, vectors [udp_flooding(b=2,s=0.5), tcp_syn_flooding(b=3,
// s=0.5)], T=2. Expected D=12, UDP on_time=2, UDP off_time=7.5.
func TestCalculate_TwoVectorTwoTargetScenario(t *testing.T) {
	vectors := []VectorSpec{
		{Name: "udp_flooding", BurstDuration: secs(2), TargetSwitchDuration: secs(0.5)},
		{Name: "tcp_syn_flooding", BurstDuration: secs(3), TargetSwitchDuration: secs(0.5)},
	}

	sched := Calculate(vectors, 2)

	require.Equal(t, secs(12), sched.CycleDuration)
	require.Equal(t, secs(2), sched.Vectors[0].OnTime)
	require.Equal(t, secs(7.5), sched.Vectors[0].OffTime)
}

// Vector k's start offset must equal the sum over i<k of T*(b_i+s_i).
func TestCalculate_StartOffsetsAreCumulative(t *testing.T) {
	vectors := []VectorSpec{
		{Name: "v0", BurstDuration: secs(1), TargetSwitchDuration: secs(0)},
		{Name: "v1", BurstDuration: secs(2), TargetSwitchDuration: secs(0)},
		{Name: "v2", BurstDuration: secs(1), TargetSwitchDuration: secs(1)},
	}

	sched := Calculate(vectors, 3)

	require.Equal(t, secs(0), sched.StartOffset(0))
	require.Equal(t, secs(3), sched.StartOffset(1)) // 3*(1+0)
	require.Equal(t, secs(9), sched.StartOffset(2)) // 3 + 3*(2+0)
}

// Standard vs. last-target retarget interval formulas.
func TestCalculate_RetargetIntervals(t *testing.T) {
	vectors := []VectorSpec{
		{Name: "udp_flooding", BurstDuration: secs(2), TargetSwitchDuration: secs(0.5)},
	}
	sched := Calculate(vectors, 2)

	require.Equal(t, secs(2.5), sched.RetargetInterval(0, 0, 2), "standard = b+s")
	require.Equal(t, sched.Vectors[0].OnTime+sched.Vectors[0].OffTime,
		sched.RetargetInterval(0, 1, 2), "last target = b+off_time")
}

// |targets|=1 degenerates to on=b, off=s.
func TestCalculate_SingleTargetDegeneratesToOnOff(t *testing.T) {
	vectors := []VectorSpec{
		{Name: "udp_flooding", BurstDuration: secs(4), TargetSwitchDuration: secs(1)},
	}

	sched := Calculate(vectors, 1)

	require.Equal(t, secs(4), sched.Vectors[0].OnTime)
	require.Equal(t, secs(1), sched.Vectors[0].OffTime)
}
