// Package topology builds the per-AS star topologies, the randomized
// transit partial mesh, and assembles the two plus the partition plan.
package topology

import (
	"fmt"
	"net/netip"

	"github.com/dpws-sim/dpws-sim/internal/addralloc"
	"github.com/dpws-sim/dpws-sim/internal/kernel"
)

// AutonomousSystem is the capability interface shared by the AS variants:
// star and shared-medium differ only in addressing discipline and share
// everything else (gateway placement, slot reservation, partition gating).
type AutonomousSystem interface {
	ID() string
	Gateway() *kernel.Node
	Partition() int
	NodeByID(id string) (*kernel.Node, bool)

	// Build constructs the gateway plus nonGatewaySlots host nodes. Fatal
	// if nonGatewaySlots < 1 (an AS with fewer than two nodes,
	// counting the gateway, has no room for an intra-AS link).
	Build(nonGatewaySlots int) error

	// ConnectTo attaches the gateway to transitNode via a link drawn from
	// pool, the shared inter-AS address allocator.
	ConnectTo(transitNode *kernel.Node, pool *addralloc.Allocator, bandwidthBps float64, delay kernel.VirtualTime, captureEnabled bool, capturePrefix string) error

	// ClaimSlot reserves the next unclaimed host node.
	// Addresses are already assigned by Build; the caller (the assembler
	// for passive server/benign placements, the attack orchestrator for
	// attacker placements) decides whether and how to install an
	// Application, since only the orchestrator's attacker sources need the
	// node's address in hand before an Application can be constructed.
	ClaimSlot() (*kernel.Node, error)
}

// InstallAndMaybeStart attaches app to n and arms it only if thisWorker owns
// partition. app may be nil for passive placements (server and benign
// nodes, which this system only addresses rather than drives; the HTTP
// server/generator themselves are external collaborators).
func InstallAndMaybeStart(n *kernel.Node, app kernel.Application, partition, thisWorker int, sched *kernel.Scheduler, tStart, tStop kernel.VirtualTime) {
	if app == nil {
		return
	}
	n.Install(app)
	if thisWorker == partition {
		app.Start(sched, tStart, tStop)
	}
}

// baseAS carries the fields and slot-reservation logic common to both AS
// variants; each variant supplies its own Build (and therefore its own
// addressing discipline).
type baseAS struct {
	id             string
	net            *kernel.Network
	partition      int
	gateway        *kernel.Node
	hostNodes      []*kernel.Node
	nextSlot       int
	bandwidth      float64
	delay          kernel.VirtualTime
	captureEnabled bool
	capturePrefix  string
}

func (a *baseAS) ID() string            { return a.id }
func (a *baseAS) Gateway() *kernel.Node { return a.gateway }
func (a *baseAS) Partition() int        { return a.partition }

func (a *baseAS) NodeByID(id string) (*kernel.Node, bool) {
	if a.gateway != nil && a.gateway.ID == id {
		return a.gateway, true
	}
	for _, n := range a.hostNodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

func (a *baseAS) ConnectTo(transitNode *kernel.Node, pool *addralloc.Allocator, bandwidthBps float64, delay kernel.VirtualTime, captureEnabled bool, capturePrefix string) error {
	if a.gateway == nil {
		return fmt.Errorf("topology: AS %s: ConnectTo called before Build", a.id)
	}
	subnet := pool.ReserveSubnet()
	hosts := addralloc.Hosts(subnet)
	transitAddr, err := hosts.Next()
	if err != nil {
		return fmt.Errorf("topology: AS %s: %w", a.id, err)
	}
	gwAddr, err := hosts.Next()
	if err != nil {
		return fmt.Errorf("topology: AS %s: %w", a.id, err)
	}
	transitIface := transitNode.AddInterface(transitAddr)
	gwIface := a.gateway.AddInterface(gwAddr)
	link := &kernel.Link{
		ID:             fmt.Sprintf("%s-to-%s", transitNode.ID, a.id),
		BandwidthBps:   bandwidthBps,
		Delay:          delay,
		A:              transitIface,
		B:              gwIface,
		CaptureEnabled: captureEnabled,
		CapturePrefix:  capturePrefix,
	}
	transitIface.Link, gwIface.Link = link, link
	a.net.AddLink(link)
	return nil
}

func (a *baseAS) ClaimSlot() (*kernel.Node, error) {
	if a.nextSlot >= len(a.hostNodes) {
		return nil, fmt.Errorf("topology: AS %s has no more unclaimed host slots (have %d)", a.id, len(a.hostNodes))
	}
	n := a.hostNodes[a.nextSlot]
	a.nextSlot++
	return n, nil
}

// StarAS is the default AS variant: each non-gateway node is attached to
// the gateway via a distinct /24 subnet, avoiding the TTL issues that arise
// under the kernel's global routing when links share address space.
type StarAS struct {
	baseAS
	alloc *addralloc.Allocator
}

// NewStarAS constructs a StarAS whose intra-AS links draw from base.
func NewStarAS(id string, net *kernel.Network, partition int, base netip.Prefix, bandwidthBps float64, delay kernel.VirtualTime, captureEnabled bool, capturePrefix string) (*StarAS, error) {
	alloc, err := addralloc.New(base)
	if err != nil {
		return nil, fmt.Errorf("topology: AS %s: %w", id, err)
	}
	return &StarAS{
		baseAS: baseAS{
			id: id, net: net, partition: partition,
			bandwidth: bandwidthBps, delay: delay,
			captureEnabled: captureEnabled, capturePrefix: capturePrefix,
		},
		alloc: alloc,
	}, nil
}

// Build creates the gateway plus nonGatewaySlots host nodes, each wired to
// the gateway over its own /24 subnet.
func (a *StarAS) Build(nonGatewaySlots int) error {
	if nonGatewaySlots < 1 {
		return fmt.Errorf("topology: AS %s: needs at least 1 non-gateway node, got %d", a.id, nonGatewaySlots)
	}
	gw := kernel.NewNode(a.id+"-gw", a.partition)
	a.net.AddNode(gw)
	a.gateway = gw

	for i := 0; i < nonGatewaySlots; i++ {
		host := kernel.NewNode(fmt.Sprintf("%s-h%d", a.id, i), a.partition)
		a.net.AddNode(host)

		subnet := a.alloc.ReserveSubnet()
		hosts := addralloc.Hosts(subnet)
		gwAddr, err := hosts.Next()
		if err != nil {
			return fmt.Errorf("topology: AS %s: %w", a.id, err)
		}
		hostAddr, err := hosts.Next()
		if err != nil {
			return fmt.Errorf("topology: AS %s: %w", a.id, err)
		}
		gwIface := gw.AddInterface(gwAddr)
		hostIface := host.AddInterface(hostAddr)
		link := &kernel.Link{
			ID:             fmt.Sprintf("%s-link-%d", a.id, i),
			BandwidthBps:   a.bandwidth,
			Delay:          a.delay,
			A:              gwIface,
			B:              hostIface,
			CaptureEnabled: a.captureEnabled,
			CapturePrefix:  a.capturePrefix,
		}
		gwIface.Link, hostIface.Link = link, link
		a.net.AddLink(link)

		a.hostNodes = append(a.hostNodes, host)
	}
	return nil
}
