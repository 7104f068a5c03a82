package topology

import (
	"fmt"
	"math"
	"math/rand"
	"net/netip"
	"sort"

	"github.com/dpws-sim/dpws-sim/internal/addralloc"
	"github.com/dpws-sim/dpws-sim/internal/kernel"
)

// TransitEdge is one undirected link in the generated partial mesh, by
// transit-node index.
type TransitEdge struct {
	A, B int
}

// TransitNetwork is the randomized partial mesh of transit nodes, identified by its seed.
type TransitNetwork struct {
	net            *kernel.Network
	nodes          []*kernel.Node
	edges          []TransitEdge
	alloc          *addralloc.Allocator
	bandwidth      float64
	delay          kernel.VirtualTime
	captureEnabled bool
	capturePrefix  string
}

// BuildTransitNetwork constructs the transit node set and its randomized
// partial mesh from nodeIDs, the given seed, and degreeOfRedundancy. All
// nodes are assigned to partition.
func BuildTransitNetwork(net *kernel.Network, nodeIDs []string, partition int, seed int64, base netip.Prefix, bandwidthBps float64, delay kernel.VirtualTime, degreeOfRedundancy float64, captureEnabled bool, capturePrefix string) (*TransitNetwork, error) {
	if len(nodeIDs) < 2 {
		return nil, fmt.Errorf("topology: transit network needs at least 2 nodes, got %d", len(nodeIDs))
	}
	alloc, err := addralloc.New(base)
	if err != nil {
		return nil, fmt.Errorf("topology: transit network: %w", err)
	}

	t := &TransitNetwork{
		net: net, alloc: alloc, bandwidth: bandwidthBps, delay: delay,
		captureEnabled: captureEnabled, capturePrefix: capturePrefix,
	}
	for _, id := range nodeIDs {
		n := kernel.NewNode(id, partition)
		net.AddNode(n)
		t.nodes = append(t.nodes, n)
	}

	rng := rand.New(rand.NewSource(seed))
	t.edges = drawSpanningTree(rng, len(t.nodes))
	t.edges = append(t.edges, drawRedundantEdges(rng, len(t.nodes), degreeOfRedundancy)...)

	for i, e := range t.edges {
		if err := t.wireEdge(i, e); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// drawSpanningTree is the minimal spanning draw: maintain drawn/notDrawn
// sets; for N-1 iterations draw a from drawn uniformly (any value accepted
// on the very first iteration, since drawn starts empty; that first draw
// also moves from notDrawn into drawn) and b from notDrawn uniformly, add
// edge (a,b), move b into drawn.
//
// Draws are rejection-sampled from the full [0,N) range, discarding draws
// outside the target set, rather than drawn from a shrunk index set. The
// random-stream consumption therefore depends on the shape of the sets, not
// just the count of draws; a stream-equivalent rewrite would silently change
// which topology a given topology_seed denotes.
func drawSpanningTree(rng *rand.Rand, n int) []TransitEdge {
	drawn := make([]bool, n)
	notDrawn := make([]bool, n)
	for i := range notDrawn {
		notDrawn[i] = true
	}

	edges := make([]TransitEdge, 0, n-1)
	anyDrawn := false
	for iter := 0; iter < n-1; iter++ {
		var a int
		if !anyDrawn {
			a = rng.Intn(n) // first iteration: drawn is empty, any index is accepted
			notDrawn[a] = false
		} else {
			a = rejectSampleUntil(rng, n, func(i int) bool { return drawn[i] })
		}
		b := rejectSampleUntil(rng, n, func(i int) bool { return notDrawn[i] })

		edges = append(edges, TransitEdge{A: a, B: b})
		drawn[a] = true
		drawn[b] = true
		notDrawn[b] = false
		anyDrawn = true
	}
	return edges
}

// drawRedundantEdges adds the redundancy stage: additional edge count =
// floor((fullMesh - (N-1)) * degreeOfRedundancy); each additional edge is
// drawn as a uniform (a,b) pair from {0..N-1}^2 with a != b, rejecting only
// on a==b. Duplicates are allowed and become parallel links.
func drawRedundantEdges(rng *rand.Rand, n int, degreeOfRedundancy float64) []TransitEdge {
	fullMesh := n * (n - 1) / 2
	count := int(math.Floor(float64(fullMesh-(n-1)) * degreeOfRedundancy))
	edges := make([]TransitEdge, 0, count)
	for i := 0; i < count; i++ {
		a := rng.Intn(n)
		b := rejectSampleUntil(rng, n, func(i int) bool { return i != a })
		edges = append(edges, TransitEdge{A: a, B: b})
	}
	return edges
}

// rejectSampleUntil draws uniformly from [0,n) repeatedly until accept
// returns true for the draw.
func rejectSampleUntil(rng *rand.Rand, n int, accept func(int) bool) int {
	for {
		i := rng.Intn(n)
		if accept(i) {
			return i
		}
	}
}

func (t *TransitNetwork) wireEdge(index int, e TransitEdge) error {
	subnet := t.alloc.ReserveSubnet()
	hosts := addralloc.Hosts(subnet)
	aAddr, err := hosts.Next()
	if err != nil {
		return fmt.Errorf("topology: transit link %d: %w", index, err)
	}
	bAddr, err := hosts.Next()
	if err != nil {
		return fmt.Errorf("topology: transit link %d: %w", index, err)
	}
	aIface := t.nodes[e.A].AddInterface(aAddr)
	bIface := t.nodes[e.B].AddInterface(bAddr)
	link := &kernel.Link{
		ID:             fmt.Sprintf("transit-link-%d", index),
		BandwidthBps:   t.bandwidth,
		Delay:          t.delay,
		A:              aIface,
		B:              bIface,
		CaptureEnabled: t.captureEnabled,
		CapturePrefix:  t.capturePrefix,
	}
	aIface.Link, bIface.Link = link, link
	t.net.AddLink(link)
	return nil
}

// NodeByID returns the transit node with the given id.
func (t *TransitNetwork) NodeByID(id string) (*kernel.Node, bool) {
	for _, n := range t.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Edges returns the generated adjacency list by node index.
func (t *TransitNetwork) Edges() []TransitEdge { return t.edges }

// Nodes returns the transit node set.
func (t *TransitNetwork) Nodes() []*kernel.Node { return t.nodes }

// DumpTopology returns a canonical (sorted) textual adjacency dump for
// reproducibility.
func (t *TransitNetwork) DumpTopology() string {
	sorted := make([]TransitEdge, len(t.edges))
	copy(sorted, t.edges)
	sort.Slice(sorted, func(i, j int) bool {
		ai, bi := sorted[i].A, sorted[i].B
		if ai > bi {
			ai, bi = bi, ai
		}
		aj, bj := sorted[j].A, sorted[j].B
		if aj > bj {
			aj, bj = bj, aj
		}
		if ai != aj {
			return ai < aj
		}
		return bi < bj
	})
	out := ""
	for _, e := range sorted {
		a, b := e.A, e.B
		if a > b {
			a, b = b, a
		}
		out += fmt.Sprintf("%s-%s\n", t.nodes[a].ID, t.nodes[b].ID)
	}
	return out
}
