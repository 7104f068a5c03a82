package topology

import (
	"fmt"
	"net/netip"

	"github.com/dpws-sim/dpws-sim/internal/addralloc"
	"github.com/dpws-sim/dpws-sim/internal/kernel"
)

// SharedMediumAS is the second AutonomousSystem variant, an alternative
// addressing discipline to StarAS: every node (gateway included) shares one
// /24 subnet rather than each link carving its own. The kernel models only
// point-to-point links (kernel.Link has exactly two endpoints), so the
// shared medium is approximated as point-to-point links between the gateway
// and each host that all draw addresses from a single subnet: the
// addressing behavior of a LAN segment without modeling its broadcast
// domain. The star model remains the variant the configuration layer
// instantiates.
type SharedMediumAS struct {
	baseAS
	subnet netip.Prefix
	hosts  *addralloc.HostAllocator
}

// NewSharedMediumAS constructs a SharedMediumAS whose single LAN subnet is
// the first /24 reserved from base.
func NewSharedMediumAS(id string, net *kernel.Network, partition int, base netip.Prefix, bandwidthBps float64, delay kernel.VirtualTime, captureEnabled bool, capturePrefix string) (*SharedMediumAS, error) {
	alloc, err := addralloc.New(base)
	if err != nil {
		return nil, fmt.Errorf("topology: AS %s: %w", id, err)
	}
	subnet := alloc.ReserveSubnet()
	return &SharedMediumAS{
		baseAS: baseAS{
			id: id, net: net, partition: partition,
			bandwidth: bandwidthBps, delay: delay,
			captureEnabled: captureEnabled, capturePrefix: capturePrefix,
		},
		subnet: subnet,
		hosts:  addralloc.Hosts(subnet),
	}, nil
}

// Build creates the gateway plus nonGatewaySlots host nodes, all addressed
// out of the single shared subnet.
func (a *SharedMediumAS) Build(nonGatewaySlots int) error {
	if nonGatewaySlots < 1 {
		return fmt.Errorf("topology: AS %s: needs at least 1 non-gateway node, got %d", a.id, nonGatewaySlots)
	}
	gw := kernel.NewNode(a.id+"-gw", a.partition)
	a.net.AddNode(gw)
	a.gateway = gw
	gwAddr, err := a.hosts.Next()
	if err != nil {
		return fmt.Errorf("topology: AS %s: %w", a.id, err)
	}
	gwIface := gw.AddInterface(gwAddr)

	for i := 0; i < nonGatewaySlots; i++ {
		host := kernel.NewNode(fmt.Sprintf("%s-h%d", a.id, i), a.partition)
		a.net.AddNode(host)
		hostAddr, err := a.hosts.Next()
		if err != nil {
			return fmt.Errorf("topology: AS %s: %w", a.id, err)
		}
		hostIface := host.AddInterface(hostAddr)
		link := &kernel.Link{
			ID:             fmt.Sprintf("%s-lan-%d", a.id, i),
			BandwidthBps:   a.bandwidth,
			Delay:          a.delay,
			A:              gwIface,
			B:              hostIface,
			CaptureEnabled: a.captureEnabled,
			CapturePrefix:  a.capturePrefix,
		}
		a.net.AddLink(link)
		a.hostNodes = append(a.hostNodes, host)
	}
	return nil
}
