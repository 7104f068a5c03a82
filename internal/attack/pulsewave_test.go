package attack

import (
	"net/netip"
	"testing"

	"github.com/dpws-sim/dpws-sim/internal/kernel"
	"github.com/dpws-sim/dpws-sim/internal/schedule"
	"github.com/dpws-sim/dpws-sim/internal/traffic"
	"github.com/stretchr/testify/require"
)

// hopRecord is one captured link traversal, stamped with the virtual time
// the hop was emitted at.
type hopRecord struct {
	time kernel.VirtualTime
	src  string
	dst  string
}

type recordingSink struct {
	sched *kernel.Scheduler
	hops  []hopRecord
}

func (r *recordingSink) Write(prefix, srcNodeID, dstNodeID string, proto uint8, payload []byte) {
	r.hops = append(r.hops, hopRecord{time: r.sched.Now(), src: srcNodeID, dst: dstNodeID})
}

// buildHubTopology wires atk -- hub -- {t1, t2} with zero-latency captured
// links, so hop times equal send times.
func buildHubTopology(t *testing.T) (*kernel.Network, *kernel.Node, map[string]netip.Addr) {
	t.Helper()
	net := kernel.NewNetwork()
	addrs := map[string]netip.Addr{
		"atk": netip.MustParseAddr("10.0.0.1"),
		"hub": netip.MustParseAddr("10.0.0.2"),
		"t1":  netip.MustParseAddr("10.0.1.2"),
		"t2":  netip.MustParseAddr("10.0.2.2"),
	}
	nodes := map[string]*kernel.Node{}
	for _, id := range []string{"atk", "hub", "t1", "t2"} {
		nodes[id] = kernel.NewNode(id, 0)
		net.AddNode(nodes[id])
	}
	hubSide := map[string]netip.Addr{
		"atk": netip.MustParseAddr("10.0.0.3"),
		"t1":  netip.MustParseAddr("10.0.1.1"),
		"t2":  netip.MustParseAddr("10.0.2.1"),
	}
	for peer, hubAddr := range hubSide {
		pi := nodes[peer].AddInterface(addrs[peer])
		hi := nodes["hub"].AddInterface(hubAddr)
		l := &kernel.Link{ID: "hub-" + peer, A: hi, B: pi, CaptureEnabled: true, CapturePrefix: "w"}
		hi.Link, pi.Link = l, l
		net.AddLink(l)
	}
	net.BuildRouting()
	return net, nodes["atk"], addrs
}

// TestApp_PulseWaveWindows drives one attacker with a single UDP vector
// (b=1s, s=0, 1Mbps, 1000-byte packets) against two targets for one full
// cycle D=2s, and verifies the waveform: target t1 only receives packets
// in [0, 1s) and t2 only in [1s, 2s), roughly 125 packets each.
func TestApp_PulseWaveWindows(t *testing.T) {
	net, atkNode, addrs := buildHubTopology(t)
	sched := kernel.NewScheduler()
	sink := &recordingSink{sched: sched}

	vectorSpecs := []schedule.VectorSpec{{
		Name:          "udp_flooding",
		BurstDuration: kernel.SecondsToVT(1),
	}}
	waveform := schedule.Calculate(vectorSpecs, 2)
	params := []VectorParams{{
		DataRateBps: 1e6,
		PacketSize:  1000,
		SourcePort:  4444,
	}}
	targets := []netip.Addr{addrs["t1"], addrs["t2"]}

	app := NewApp(atkNode, net, sink, waveform, vectorSpecs, params, targets, false, func() int64 { return 7 })
	app.Start(sched, 0, kernel.SecondsToVT(2))
	sched.Run(kernel.SecondsToVT(2))

	oneSecond := kernel.SecondsToVT(1)
	var t1Count, t2Count int
	for _, h := range sink.hops {
		switch h.dst {
		case "t1":
			t1Count++
			require.Less(t, h.time, oneSecond, "t1 must only be hit during [0, 1s)")
		case "t2":
			t2Count++
			require.GreaterOrEqual(t, h.time, oneSecond, "t2 must only be hit during [1s, 2s)")
		}
	}

	// 1Mbps over 1000-byte wire sizes is one packet per 8ms; each 1s burst
	// fits 124 full gaps before the window toggles.
	require.InDelta(t, 125, t1Count, 5)
	require.InDelta(t, 125, t2Count, 5)
	require.Equal(t, t1Count, t2Count, "both targets get the same share of a symmetric cycle")
}

// With one target, no retargets are scheduled and the source stays bound
// to it.
func TestApp_SingleTargetNeverRetargets(t *testing.T) {
	net, atkNode, addrs := buildHubTopology(t)
	sched := kernel.NewScheduler()
	sink := &recordingSink{sched: sched}

	vectorSpecs := []schedule.VectorSpec{{
		Name:                 "udp_flooding",
		BurstDuration:        kernel.SecondsToVT(1),
		TargetSwitchDuration: kernel.SecondsToVT(1),
	}}
	waveform := schedule.Calculate(vectorSpecs, 1)
	params := []VectorParams{{DataRateBps: 1e6, PacketSize: 1000, SourcePort: 4444}}

	app := NewApp(atkNode, net, sink, waveform, vectorSpecs, params, []netip.Addr{addrs["t1"]}, false, func() int64 { return 7 })
	app.Start(sched, 0, kernel.SecondsToVT(4))
	sched.Run(kernel.SecondsToVT(4))

	require.Equal(t, addrs["t1"], app.Sources()[0].RemoteAddr())
	require.Equal(t, traffic.StateOn, app.Sources()[0].State())
	for _, h := range sink.hops {
		require.NotEqual(t, "t2", h.dst, "single-target run must never touch another host")
	}
}
