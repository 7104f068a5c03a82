package kernel

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustAddr(s string) netip.Addr {
	a, err := netip.ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// chain builds a 3-node line topology: n0 -- n1 -- n2.
func chain(t *testing.T) (*Network, *Node, *Node, *Node) {
	t.Helper()
	net := NewNetwork()
	n0 := NewNode("n0", 0)
	n1 := NewNode("n1", 0)
	n2 := NewNode("n2", 0)
	net.AddNode(n0)
	net.AddNode(n1)
	net.AddNode(n2)

	i0 := n0.AddInterface(mustAddr("10.0.0.1"))
	i1a := n1.AddInterface(mustAddr("10.0.0.2"))
	l01 := &Link{ID: "l01", BandwidthBps: 1e9, A: i0, B: i1a}
	i0.Link, i1a.Link = l01, l01
	net.AddLink(l01)

	i1b := n1.AddInterface(mustAddr("10.0.1.1"))
	i2 := n2.AddInterface(mustAddr("10.0.1.2"))
	l12 := &Link{ID: "l12", BandwidthBps: 1e9, A: i1b, B: i2}
	i1b.Link, i2.Link = l12, l12
	net.AddLink(l12)

	net.BuildRouting()
	return net, n0, n1, n2
}

func TestNetwork_NextHopRoutesAcrossMultipleLinks(t *testing.T) {
	net, n0, _, n2 := chain(t)

	link, ok := net.NextHop(n0.ID, n2.ID)
	require.True(t, ok)
	require.Equal(t, "l01", link.ID, "first hop from n0 toward n2 must use l01")
}

func TestNetwork_DeliverReachesDestinationAfterBothHops(t *testing.T) {
	net, n0, _, n2 := chain(t)
	sched := NewScheduler()

	var delivered []byte
	err := net.Deliver(sched, n0.ID, n2.ID, []byte("payload"), 17, nil, func(p []byte) {
		delivered = p
	})
	require.NoError(t, err)

	sched.Run(SecondsToVT(1))

	require.Equal(t, []byte("payload"), delivered)
}

func TestNetwork_DeliverToUnknownNodeErrors(t *testing.T) {
	net, n0, _, _ := chain(t)
	sched := NewScheduler()

	err := net.Deliver(sched, n0.ID, "ghost", []byte("x"), 17, nil, nil)

	require.Error(t, err)
}
