package topology

import (
	"fmt"
	"net/netip"

	"github.com/dpws-sim/dpws-sim/internal/addralloc"
	"github.com/dpws-sim/dpws-sim/internal/config"
	"github.com/dpws-sim/dpws-sim/internal/kernel"
)

// transitPartition is the fixed worker id that always owns the transit
// network.
const transitPartition = 0

// AssignPartition is the worker assignment formula:
// worker 0 always owns the transit network; AS i is assigned to worker i+1
// when there are enough workers for every AS to get its own (A+1 <= W), and
// otherwise wraps around via modulo so every AS still has an owner.
func AssignPartition(asIndex, numAS, numWorkers int) int {
	if numAS+1 <= numWorkers {
		return asIndex + 1
	}
	return (asIndex+1)%numWorkers
}

// Assembly is the fully-built topology plus the lookup tables the attack
// orchestrator (C7) and simulation driver (C8) need.
type Assembly struct {
	Net       *kernel.Network
	Transit   *TransitNetwork
	AS        map[string]AutonomousSystem
	asOrder   []string
	Servers   map[string]*kernel.Node // target + non-target, by node id
	Attackers map[string]*kernel.Node
	Benign    map[string]*kernel.Node
	Targets   []string // target_server_node ids, in config order
}

// NodeByID looks a node up across every AS, the transit network, and any
// node directly tracked by the assembly.
// Configured placement ids (Servers, Attackers, Benign) are tried before
// kernel node ids.
func (a *Assembly) NodeByID(id string) (*kernel.Node, bool) {
	for _, placed := range []map[string]*kernel.Node{a.Servers, a.Attackers, a.Benign} {
		if n, ok := placed[id]; ok {
			return n, true
		}
	}
	if n, ok := a.Net.Nodes[id]; ok {
		return n, true
	}
	return nil, false
}

// AddressOf returns nodeID's primary interface address, resolving nodeID
// the way NodeByID does.
func (a *Assembly) AddressOf(nodeID string) (netip.Addr, bool) {
	n, ok := a.NodeByID(nodeID)
	if !ok || len(n.Interfaces) == 0 {
		return netip.Addr{}, false
	}
	return n.Interfaces[0].Address, true
}

// PartitionOf returns the worker id that owns asID.
func (a *Assembly) PartitionOf(asID string) (int, bool) {
	as, ok := a.AS[asID]
	if !ok {
		return 0, false
	}
	return as.Partition(), true
}

// DumpTopology renders a canonical dump covering the transit mesh and every
// AS's gateway attachment.
func (a *Assembly) DumpTopology() string {
	out := "# transit\n" + a.Transit.DumpTopology()
	out += "# autonomous systems\n"
	for _, id := range a.asOrder {
		as := a.AS[id]
		out += fmt.Sprintf("%s gateway=%s partition=%d\n", id, as.Gateway().ID, as.Partition())
	}
	return out
}

// Assemble builds the transit network, every autonomous system, and wires
// each AS gateway to its configured transit attachment node. thisWorker
// decides which links this worker records captures for: transit links only
// on transitPartition, and each AS's intra-AS and attachment links only on
// the worker that owns that AS. numWorkers must be >= 1.
func Assemble(cfg *config.Config, thisWorker, numWorkers int) (*Assembly, error) {
	net := kernel.NewNetwork()

	transitBase, err := parsePrefix(cfg.CentralNetwork.NetworkAddress, cfg.CentralNetwork.NetworkMask)
	if err != nil {
		return nil, fmt.Errorf("topology: central_network: %w", err)
	}
	centralBw, err := config.ParseDataRate(cfg.CentralNetwork.Bandwidth)
	if err != nil {
		return nil, fmt.Errorf("topology: central_network.bandwidth: %w", err)
	}
	centralDelay, err := parseDelay(cfg.CentralNetwork.Delay)
	if err != nil {
		return nil, fmt.Errorf("topology: central_network.delay: %w", err)
	}

	nodeIDs := make([]string, len(cfg.CentralNetwork.Nodes))
	for i, n := range cfg.CentralNetwork.Nodes {
		nodeIDs[i] = n.ID
	}
	pcapPrefix := cfg.GlobalSettings.Capture.PcapPrefix
	captureEnabled := pcapPrefix != ""
	transit, err := BuildTransitNetwork(net, nodeIDs, transitPartition, cfg.CentralNetwork.TopologySeed, transitBase, centralBw, centralDelay, cfg.CentralNetwork.DegreeOfRedundancy, captureEnabled && thisWorker == transitPartition, pcapPrefix)
	if err != nil {
		return nil, err
	}

	interASPool, err := parsePrefix(cfg.GlobalSettings.AutonomousSystemsConnections.NetworkAddress, cfg.GlobalSettings.AutonomousSystemsConnections.NetworkMask)
	if err != nil {
		return nil, fmt.Errorf("topology: autonomous_systems_connections: %w", err)
	}
	interASAlloc, err := addralloc.New(interASPool)
	if err != nil {
		return nil, fmt.Errorf("topology: autonomous_systems_connections: %w", err)
	}

	asm := &Assembly{
		Net: net, Transit: transit,
		AS:        map[string]AutonomousSystem{},
		Servers:   map[string]*kernel.Node{},
		Attackers: map[string]*kernel.Node{},
		Benign:    map[string]*kernel.Node{},
	}

	slotsByAS := countSlotsPerAS(cfg)

	for i, asCfg := range cfg.AutonomousSystems {
		partition := AssignPartition(i, len(cfg.AutonomousSystems), numWorkers)
		asCapture := captureEnabled && thisWorker == partition
		asBase, err := parsePrefix(asCfg.NetworkAddress, asCfg.NetworkMask)
		if err != nil {
			return nil, fmt.Errorf("topology: autonomous_system %s: %w", asCfg.ID, err)
		}
		asBw, err := resolveRateOr(asCfg.Bandwidth, centralBw)
		if err != nil {
			return nil, fmt.Errorf("topology: autonomous_system %s.bandwidth: %w", asCfg.ID, err)
		}
		asDelay, err := resolveDelayOr(asCfg.Delay, centralDelay)
		if err != nil {
			return nil, fmt.Errorf("topology: autonomous_system %s.delay: %w", asCfg.ID, err)
		}

		as, err := NewStarAS(asCfg.ID, net, partition, asBase, asBw, asDelay, asCapture, pcapPrefix)
		if err != nil {
			return nil, err
		}
		slots := slotsByAS[asCfg.ID]
		if slots < 1 {
			slots = 1 // gateway-only ASes still need one addressable host slot
		}
		if err := as.Build(slots); err != nil {
			return nil, err
		}

		transitNode, ok := transit.NodeByID(asCfg.Attachment.CentralNetworkAttachmentNode)
		if !ok {
			return nil, fmt.Errorf("topology: autonomous_system %s: unknown attachment node %q", asCfg.ID, asCfg.Attachment.CentralNetworkAttachmentNode)
		}
		attachBw, err := resolveRateOr(asCfg.Attachment.Bandwidth, asBw)
		if err != nil {
			return nil, fmt.Errorf("topology: autonomous_system %s.attachment.bandwidth: %w", asCfg.ID, err)
		}
		attachDelay, err := resolveDelayOr(asCfg.Attachment.Delay, asDelay)
		if err != nil {
			return nil, fmt.Errorf("topology: autonomous_system %s.attachment.delay: %w", asCfg.ID, err)
		}
		if err := as.ConnectTo(transitNode, interASAlloc, attachBw, attachDelay, asCapture, pcapPrefix); err != nil {
			return nil, err
		}

		asm.AS[asCfg.ID] = as
		asm.asOrder = append(asm.asOrder, asCfg.ID)
	}

	return asm, nil
}

// PlacePassiveNodes claims a host slot for every target, non-target, and
// benign-client node.
func (a *Assembly) PlacePassiveNodes(cfg *config.Config) error {
	for _, s := range cfg.TargetServerNodes {
		n, err := a.claim(s.OwnerAS, s.ID)
		if err != nil {
			return err
		}
		a.Servers[s.ID] = n
		a.Targets = append(a.Targets, s.ID)
	}
	for _, s := range cfg.NonTargetServerNodes {
		n, err := a.claim(s.OwnerAS, s.ID)
		if err != nil {
			return err
		}
		a.Servers[s.ID] = n
	}
	for _, b := range cfg.BenignClientNodes {
		n, err := a.claim(b.OwnerAS, b.ID)
		if err != nil {
			return err
		}
		a.Benign[b.ID] = n
	}
	return nil
}

func (a *Assembly) claim(ownerAS, nodeID string) (*kernel.Node, error) {
	as, ok := a.AS[ownerAS]
	if !ok {
		return nil, fmt.Errorf("topology: node %s: unknown owner_as %q", nodeID, ownerAS)
	}
	n, err := as.ClaimSlot()
	if err != nil {
		return nil, fmt.Errorf("topology: node %s: %w", nodeID, err)
	}
	return n, nil
}

// ClaimAttacker reserves the next host slot in ownerAS for an attacker
// placement, exported for internal/attack since attacker nodes need their
// address available before their Application can be constructed.
func (a *Assembly) ClaimAttacker(ownerAS, nodeID string) (*kernel.Node, error) {
	return a.claim(ownerAS, nodeID)
}

func countSlotsPerAS(cfg *config.Config) map[string]int {
	counts := map[string]int{}
	for _, s := range cfg.TargetServerNodes {
		counts[s.OwnerAS]++
	}
	for _, s := range cfg.NonTargetServerNodes {
		counts[s.OwnerAS]++
	}
	for _, a := range cfg.AttackerNodes {
		counts[a.OwnerAS]++
	}
	for _, b := range cfg.BenignClientNodes {
		counts[b.OwnerAS]++
	}
	return counts
}

func parsePrefix(addr string, mask int) (netip.Prefix, error) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid network_address %q: %w", addr, err)
	}
	return netip.PrefixFrom(ip, mask).Masked(), nil
}

func resolveRateOr(s string, fallback float64) (float64, error) {
	if s == "" {
		return fallback, nil
	}
	return config.ParseDataRate(s)
}

func parseDelay(s string) (kernel.VirtualTime, error) {
	d, err := config.ParseDurationSeconds(s)
	if err != nil {
		return 0, err
	}
	return kernel.SecondsToVT(d), nil
}

func resolveDelayOr(s string, fallback kernel.VirtualTime) (kernel.VirtualTime, error) {
	if s == "" {
		return fallback, nil
	}
	return parseDelay(s)
}
