package topology

import (
	"testing"

	"github.com/dpws-sim/dpws-sim/internal/addralloc"
	"github.com/dpws-sim/dpws-sim/internal/kernel"
	"github.com/stretchr/testify/require"
)

type fakeApp struct {
	started bool
	tStart  kernel.VirtualTime
}

func (a *fakeApp) Start(sched *kernel.Scheduler, tStart, tStop kernel.VirtualTime) {
	a.started = true
	a.tStart = tStart
}

// Each star link must get its own /24 subnet.
func TestStarAS_DistinctSubnetPerLink(t *testing.T) {
	net := kernel.NewNetwork()
	base := mustPrefix(t, "10.0.0.0/16")
	as, err := NewStarAS("as0", net, 1, base, 1e8, kernel.SecondsToVT(0.001), false, "")
	require.NoError(t, err)
	require.NoError(t, as.Build(3))

	seen := map[string]bool{}
	for _, host := range as.hostNodes {
		iface := host.Interfaces[0]
		subnet := prefix24(iface.Address)
		require.False(t, seen[subnet], "subnet %s reused across links", subnet)
		seen[subnet] = true
	}
	require.Len(t, seen, 3)
}

func TestStarAS_Build_FatalOnNoNonGatewaySlots(t *testing.T) {
	net := kernel.NewNetwork()
	base := mustPrefix(t, "10.0.0.0/16")
	as, err := NewStarAS("as0", net, 1, base, 1e8, kernel.SecondsToVT(0.001), false, "")
	require.NoError(t, err)
	err = as.Build(0)
	require.Error(t, err)
}

// app.Start is only called when thisWorker equals the AS's partition.
func TestStarAS_PartitionGating(t *testing.T) {
	net := kernel.NewNetwork()
	base := mustPrefix(t, "10.0.0.0/16")
	as, err := NewStarAS("as0", net, 2, base, 1e8, kernel.SecondsToVT(0.001), false, "")
	require.NoError(t, err)
	require.NoError(t, as.Build(1))

	app := &fakeApp{}
	n, err := as.ClaimSlot()
	require.NoError(t, err)
	InstallAndMaybeStart(n, app, as.Partition(), 1, kernel.NewScheduler(), 0, kernel.SecondsToVT(10))
	require.False(t, app.started, "app must not start on a worker that doesn't own the AS's partition")

	app2 := &fakeApp{}
	as2, err := NewStarAS("as1", net, 2, mustPrefix(t, "10.1.0.0/16"), 1e8, kernel.SecondsToVT(0.001), false, "")
	require.NoError(t, err)
	require.NoError(t, as2.Build(1))
	n2, err := as2.ClaimSlot()
	require.NoError(t, err)
	InstallAndMaybeStart(n2, app2, as2.Partition(), 2, kernel.NewScheduler(), 0, kernel.SecondsToVT(10))
	require.True(t, app2.started, "app must start when thisWorker owns the AS's partition")
}

func TestStarAS_ConnectTo(t *testing.T) {
	net := kernel.NewNetwork()
	base := mustPrefix(t, "10.0.0.0/16")
	as, err := NewStarAS("as0", net, 1, base, 1e8, kernel.SecondsToVT(0.001), false, "")
	require.NoError(t, err)
	require.NoError(t, as.Build(1))

	transit := kernel.NewNode("transit0", 0)
	net.AddNode(transit)
	pool, err := addralloc.New(mustPrefix(t, "172.16.0.0/16"))
	require.NoError(t, err)
	require.NoError(t, as.ConnectTo(transit, pool, 1e9, kernel.SecondsToVT(0.002), false, ""))
	require.Len(t, as.gateway.Interfaces, 2, "gateway should now have an intra-AS interface plus the transit interface")
}
