// Package addralloc hands out /24 subnets and host addresses
// deterministically from a configured base: one independent instance each
// for the transit-internal links, per-AS intra-links, and the shared
// inter-AS link pool.
package addralloc

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// Allocator owns an ordered sequence of /24 subnets starting from a
// configured base network address. It is single-threaded; allocation only
// happens during topology construction.
type Allocator struct {
	base      uint32
	mask      int
	nextIndex uint32
}

// New returns an Allocator that hands out successive /24 subnets starting
// at base. The mask of base must be <= 24 so that ReserveSubnet can carve
// /24s beneath it. ReserveSubnet does not check for exhaustion: once the
// /24s inside base are used up (after a single one for a /24 base), it keeps
// advancing into the address space past the end of base (configuration is
// trusted).
func New(base netip.Prefix) (*Allocator, error) {
	if !base.Addr().Is4() {
		return nil, fmt.Errorf("addralloc: only IPv4 bases are supported, got %s", base)
	}
	if base.Bits() > 24 {
		return nil, fmt.Errorf("addralloc: base prefix %s is narrower than /24", base)
	}
	b := base.Addr().As4()
	return &Allocator{base: binary.BigEndian.Uint32(b[:]), mask: base.Bits()}, nil
}

// ReserveSubnet advances the cursor and returns the next /24 subnet.
func (a *Allocator) ReserveSubnet() netip.Prefix {
	subnetBase := a.base + a.nextIndex*256
	a.nextIndex++
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], subnetBase)
	return netip.PrefixFrom(netip.AddrFrom4(b), 24)
}

// HostAllocator hands out sequential host addresses within one subnet,
// starting at .1 (neither the network address nor the broadcast address is
// ever handed out). Each subnet tracks its
// own host cursor independently of other subnets and of the allocator's
// subnet cursor.
type HostAllocator struct {
	subnet netip.Prefix
	next   uint32
}

// Hosts returns a fresh per-subnet host cursor for subnet, starting at the
// first usable address (.1).
func Hosts(subnet netip.Prefix) *HostAllocator {
	return &HostAllocator{subnet: subnet, next: 1}
}

// Next returns the next sequential host address within the subnet.
func (h *HostAllocator) Next() (netip.Addr, error) {
	ones, bits := h.subnet.Bits(), 32
	size := uint32(1) << uint(bits-ones)
	if h.next >= size-1 {
		return netip.Addr{}, fmt.Errorf("addralloc: subnet %s exhausted", h.subnet)
	}
	b := h.subnet.Addr().As4()
	base := binary.BigEndian.Uint32(b[:])
	var out [4]byte
	binary.BigEndian.PutUint32(out[:], base+h.next)
	h.next++
	return netip.AddrFrom4(out), nil
}
