package traffic

import (
	"fmt"
	"net/netip"

	"github.com/dpws-sim/dpws-sim/internal/config"
	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// Packet-size offsets: constants calibrated so that observed wire-size
// equals the configured packet_size under the kernel's framing. Any port
// of this system to a different kernel must recalibrate these.
const (
	udpOffset        = 30
	icmpOffset       = 30
	tcpSynOnWireSize = 42 // fixed "on-wire size" replacing packet_size for tcp_syn_flood rate control
)

// IP protocol numbers used by the three vectors.
const (
	ProtoUDP  uint8 = 17
	ProtoICMP uint8 = 1
	ProtoTCP  uint8 = 6
)

// EffectiveWireSize returns the packet size used for inter-packet-interval
// rate control: the configured packet_size for udp_flood/icmp_flood, and
// the fixed tcpSynOnWireSize constant for tcp_syn_flood, whose configured
// packet size is ignored for rate-control purposes.
func EffectiveWireSize(vector string, configuredPacketSize int) int {
	if vector == config.VectorTCPSynFlooding {
		return tcpSynOnWireSize
	}
	return configuredPacketSize
}

// BuildUDPPacket constructs a UDP flood packet: a payload of
// effectiveSize-udpOffset bytes prepended with a UDP header bearing the
// resolved source/destination ports.
func BuildUDPPacket(effectiveSize, srcPort, dstPort int) ([]byte, error) {
	payloadLen := effectiveSize - udpOffset
	if payloadLen < 0 {
		payloadLen = 0
	}
	udpLayer := &layers.UDP{
		SrcPort: layers.UDPPort(srcPort),
		DstPort: layers.UDPPort(dstPort),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, udpLayer, gopacket.Payload(make([]byte, payloadLen))); err != nil {
		return nil, fmt.Errorf("traffic: build udp packet: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildICMPEchoPacket constructs an ICMP Echo (type 8, code 0) flood packet
// with checksum enabled and a payload of effectiveSize-icmpOffset bytes.
func BuildICMPEchoPacket(effectiveSize int, id, seq uint16) ([]byte, error) {
	payloadLen := effectiveSize - icmpOffset
	if payloadLen < 0 {
		payloadLen = 0
	}
	icmpLayer := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
		Id:       id,
		Seq:      seq,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, icmpLayer, gopacket.Payload(make([]byte, payloadLen))); err != nil {
		return nil, fmt.Errorf("traffic: build icmp packet: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildTCPSynPacket constructs an empty TCP packet carrying only a header
// with the SYN flag and resolved ports; no three-way handshake is
// simulated. srcIP/dstIP are used
// solely to compute the TCP checksum's pseudo-header and are not serialized
// into the returned bytes (the raw socket layer supplies the real IP
// header).
func BuildTCPSynPacket(srcIP, dstIP netip.Addr, srcPort, dstPort int) ([]byte, error) {
	tcpLayer := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		SYN:     true,
		Window:  0,
	}
	ipForChecksum := &layers.IPv4{
		SrcIP:    srcIP.AsSlice(),
		DstIP:    dstIP.AsSlice(),
		Protocol: layers.IPProtocolTCP,
	}
	if err := tcpLayer.SetNetworkLayerForChecksum(ipForChecksum); err != nil {
		return nil, fmt.Errorf("traffic: set tcp checksum network layer: %w", err)
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, tcpLayer); err != nil {
		return nil, fmt.Errorf("traffic: build tcp syn packet: %w", err)
	}
	return buf.Bytes(), nil
}

// ProtocolFor returns the IP protocol number for vector.
func ProtocolFor(vector string) uint8 {
	switch vector {
	case config.VectorUDPFlooding:
		return ProtoUDP
	case config.VectorICMPFlooding:
		return ProtoICMP
	case config.VectorTCPSynFlooding:
		return ProtoTCP
	default:
		return 0
	}
}
