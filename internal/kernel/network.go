package kernel

import (
	"fmt"
	"net/netip"
)

// Network is the assembled topology graph: every Node, every Link, and the
// address-to-node map the routing layer and raw sockets consume. It holds
// the global routing tables populated from the assembled topology.
type Network struct {
	Nodes      map[string]*Node
	addrToNode map[netip.Addr]string
	Links      []*Link
	adjacency  map[string][]adjEdge
	nextHop    map[string]map[string]*Link
}

type adjEdge struct {
	link *Link
	to   string
}

// NewNetwork returns an empty Network.
func NewNetwork() *Network {
	return &Network{
		Nodes:      make(map[string]*Node),
		addrToNode: make(map[netip.Addr]string),
		adjacency:  make(map[string][]adjEdge),
	}
}

// AddNode registers a node with the network. Must be called before any link
// touching the node is added.
func (n *Network) AddNode(node *Node) {
	n.Nodes[node.ID] = node
}

// AddLink registers a link and both of its endpoint addresses, and extends
// the adjacency graph used by BuildRouting.
func (n *Network) AddLink(l *Link) {
	n.Links = append(n.Links, l)
	n.addrToNode[l.A.Address] = l.A.Node.ID
	n.addrToNode[l.B.Address] = l.B.Node.ID
	n.adjacency[l.A.Node.ID] = append(n.adjacency[l.A.Node.ID], adjEdge{link: l, to: l.B.Node.ID})
	n.adjacency[l.B.Node.ID] = append(n.adjacency[l.B.Node.ID], adjEdge{link: l, to: l.A.Node.ID})
}

// NodeFor resolves an address to its owning node id.
func (n *Network) NodeFor(addr netip.Addr) (string, bool) {
	id, ok := n.addrToNode[addr]
	return id, ok
}

// BuildRouting computes, for every node, a next-hop link toward every other
// reachable node via breadth-first search over the link adjacency graph.
// Must be called once, after all nodes and links are in place and before
// the simulation runs.
func (n *Network) BuildRouting() {
	n.nextHop = make(map[string]map[string]*Link, len(n.Nodes))
	for src := range n.Nodes {
		n.nextHop[src] = bfsNextHop(n.adjacency, src)
	}
}

func bfsNextHop(adjacency map[string][]adjEdge, src string) map[string]*Link {
	visited := map[string]bool{src: true}
	firstHop := map[string]*Link{}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range adjacency[cur] {
			if visited[e.to] {
				continue
			}
			visited[e.to] = true
			if cur == src {
				firstHop[e.to] = e.link
			} else {
				firstHop[e.to] = firstHop[cur]
			}
			queue = append(queue, e.to)
		}
	}
	return firstHop
}

// NextHop returns the link that node `from` should egress on to make
// progress toward `to`, or false if BuildRouting has not run or no route
// exists.
func (n *Network) NextHop(from, to string) (*Link, bool) {
	table, ok := n.nextHop[from]
	if !ok {
		return nil, false
	}
	l, ok := table[to]
	return l, ok
}

// Deliver schedules the hop-by-hop transmission of payload from srcNodeID
// to dstNodeID, charging each traversed link's transmission and propagation
// delay, and writing a pcap record at both endpoints of every traversed
// link whose capture is enabled. onDelivered, if non-nil, fires in the
// receiving node's application once the packet reaches dstNodeID.
func (n *Network) Deliver(sched *Scheduler, srcNodeID, dstNodeID string, payload []byte, proto uint8, capture CaptureSink, onDelivered func([]byte)) error {
	if srcNodeID == dstNodeID {
		sched.Schedule(0, func() {
			if onDelivered != nil {
				onDelivered(payload)
			}
		})
		return nil
	}
	link, ok := n.NextHop(srcNodeID, dstNodeID)
	if !ok {
		return fmt.Errorf("kernel: no route from %s to %s", srcNodeID, dstNodeID)
	}
	n.hop(sched, srcNodeID, dstNodeID, link, payload, proto, capture, onDelivered)
	return nil
}

func (n *Network) hop(sched *Scheduler, curNodeID, dstNodeID string, link *Link, payload []byte, proto uint8, capture CaptureSink, onDelivered func([]byte)) {
	var cur *Interface
	if link.A.Node.ID == curNodeID {
		cur = link.A
	} else {
		cur = link.B
	}
	peer := link.Other(cur)

	delay := link.Delay + link.TransmissionDelay(len(payload))
	if link.CaptureEnabled && capture != nil {
		capture.Write(link.CapturePrefix, cur.Node.ID, peer.Node.ID, proto, payload)
	}
	sched.Schedule(delay, func() {
		nextID := peer.Node.ID
		if nextID == dstNodeID {
			if onDelivered != nil {
				onDelivered(payload)
			}
			return
		}
		nextLink, ok := n.NextHop(nextID, dstNodeID)
		if !ok {
			return
		}
		n.hop(sched, nextID, dstNodeID, nextLink, payload, proto, capture, onDelivered)
	})
}

// CaptureSink is the narrow interface the network needs from the capture
// package to record a traversed packet without importing it directly
// (avoiding an import cycle between kernel and capture).
type CaptureSink interface {
	Write(prefix, srcNodeID, dstNodeID string, proto uint8, payload []byte)
}
