package kernel

import (
	"net/netip"
	"strconv"
)

// Application is installed on a Node and armed to run for the lifetime of
// the simulation window. Attacker nodes install one (internal/attack's App);
// server and benign-client placements are passive and install none.
type Application interface {
	// Start arms the application to begin at tStart and (where applicable)
	// stop no later than tStop.
	Start(sched *Scheduler, tStart, tStop VirtualTime)
}

// Interface is one addressable attachment point of a Node to a Link.
type Interface struct {
	Name    string
	Address netip.Addr
	Link    *Link
	Node    *Node
}

// Node is an addressable host in the simulated Internet. Nodes
// are created exactly once during topology assembly and are immutable
// except for their installed application list and the partition that owns
// them.
type Node struct {
	ID         string
	Partition  int
	Interfaces []*Interface
	Apps       []Application
}

// NewNode creates a Node with no interfaces or applications.
func NewNode(id string, partition int) *Node {
	return &Node{ID: id, Partition: partition}
}

// AddInterface attaches a new interface bearing addr to the node and returns
// it. The caller links it to a Link immediately afterward.
func (n *Node) AddInterface(addr netip.Addr) *Interface {
	iface := &Interface{
		Name:    n.ID + "-eth" + strconv.Itoa(len(n.Interfaces)),
		Address: addr,
		Node:    n,
	}
	n.Interfaces = append(n.Interfaces, iface)
	return iface
}

// Install attaches an application to the node. Whether it is actually armed
// to run is decided by the caller (topology.InstallAndMaybeStart), which only
// calls Start when this worker owns the node's partition.
func (n *Node) Install(app Application) {
	n.Apps = append(n.Apps, app)
}

// Link is a point-to-point channel between two interfaces; the
// shared-medium AS variant is built from such links too. BandwidthBps is in bits per
// second; Delay is one-way propagation delay. Links are created during
// topology assembly and are immutable thereafter.
type Link struct {
	ID             string
	BandwidthBps   float64
	Delay          VirtualTime
	A, B           *Interface
	CaptureEnabled bool
	CapturePrefix  string
}

// Other returns the interface at the far end of the link from iface.
func (l *Link) Other(iface *Interface) *Interface {
	if l.A == iface {
		return l.B
	}
	return l.A
}

// TransmissionDelay is the serialization delay of sizeBytes over this link,
// in addition to its fixed propagation Delay.
func (l *Link) TransmissionDelay(sizeBytes int) VirtualTime {
	if l.BandwidthBps <= 0 {
		return 0
	}
	bits := float64(sizeBytes) * 8
	return SecondsToVT(bits / l.BandwidthBps)
}
