package topology

import (
	"sort"
	"strings"
	"testing"

	"github.com/dpws-sim/dpws-sim/internal/kernel"
	"github.com/stretchr/testify/require"
)

func nodeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "t" + string(rune('0'+i))
	}
	return ids
}

func isConnected(n int, edges []TransitEdge) bool {
	adj := make(map[int][]int, n)
	for _, e := range edges {
		adj[e.A] = append(adj[e.A], e.B)
		adj[e.B] = append(adj[e.B], e.A)
	}
	seen := make([]bool, n)
	stack := []int{0}
	seen[0] = true
	count := 1
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, nb := range adj[cur] {
			if !seen[nb] {
				seen[nb] = true
				count++
				stack = append(stack, nb)
			}
		}
	}
	return count == n
}

// N=4, degree_of_redundancy=0 must produce exactly N-1 links forming a
// connected tree.
func TestBuildTransitNetwork_DegreeZero_ExactlyNMinus1Links(t *testing.T) {
	net := kernel.NewNetwork()
	base := mustPrefix(t, "10.200.0.0/16")
	tn, err := BuildTransitNetwork(net, nodeIDs(4), 0, 47, base, 1e9, kernel.SecondsToVT(0.001), 0, false, "")
	require.NoError(t, err)
	require.Len(t, tn.Edges(), 3)
	require.True(t, isConnected(4, tn.Edges()))
}

// degree_of_redundancy=0 must yield a connected N-1-link tree across a
// range of sizes and seeds.
func TestBuildTransitNetwork_DegreeZero_AlwaysNMinus1(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8} {
		for seed := int64(0); seed < 5; seed++ {
			net := kernel.NewNetwork()
			base := mustPrefix(t, "10.201.0.0/16")
			tn, err := BuildTransitNetwork(net, nodeIDs(n), 0, seed, base, 1e9, kernel.SecondsToVT(0.001), 0, false, "")
			require.NoError(t, err)
			require.Lenf(t, tn.Edges(), n-1, "n=%d seed=%d", n, seed)
			require.Truef(t, isConnected(n, tn.Edges()), "n=%d seed=%d", n, seed)
		}
	}
}

// degree_of_redundancy > 1 (relative to the excess above a spanning tree)
// must still construct successfully, including parallel edges.
func TestBuildTransitNetwork_DegreeAboveOne_ParallelLinksAllowed(t *testing.T) {
	net := kernel.NewNetwork()
	base := mustPrefix(t, "10.202.0.0/16")
	tn, err := BuildTransitNetwork(net, nodeIDs(4), 0, 1, base, 1e9, kernel.SecondsToVT(0.001), 2.0, false, "")
	require.NoError(t, err)
	require.Greater(t, len(tn.Edges()), 3)
}

func TestBuildTransitNetwork_DumpTopology_IsSorted(t *testing.T) {
	net := kernel.NewNetwork()
	base := mustPrefix(t, "10.203.0.0/16")
	tn, err := BuildTransitNetwork(net, nodeIDs(4), 0, 47, base, 1e9, kernel.SecondsToVT(0.001), 0, false, "")
	require.NoError(t, err)
	dump := tn.DumpTopology()
	require.NotEmpty(t, dump)
	lines := strings.Split(strings.TrimSuffix(dump, "\n"), "\n")
	require.True(t, sort.StringsAreSorted(lines), "dump lines must be in canonical order: %v", lines)
}

func TestBuildTransitNetwork_RejectsFewerThanTwoNodes(t *testing.T) {
	net := kernel.NewNetwork()
	base := mustPrefix(t, "10.204.0.0/16")
	_, err := BuildTransitNetwork(net, nodeIDs(1), 0, 1, base, 1e9, kernel.SecondsToVT(0.001), 0, false, "")
	require.Error(t, err)
}
