// Package capture manages per-link packet-capture (pcap) files, one per
// directed endpoint of every link traversed by non-ignored traffic.
package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
	"github.com/sirupsen/logrus"
)

// kernelSuffix is the node-device suffix appended to every capture file
// name; this system has no notion of multiple devices per captured
// endpoint, so the suffix is the constant "0-0".
const kernelSuffix = "0-0"

// Manager owns the set of open capture files for a simulation run. One
// Manager per worker process: only the worker that owns a link's capture
// (transit links on worker 0, AS↔transit links on the owning AS's worker)
// ever calls Write for that link.
type Manager struct {
	dir     string
	enabled bool
	writers map[string]*endpointWriter
}

type endpointWriter struct {
	file *os.File
	w    *pcapgo.Writer
}

// NewManager returns a Manager that writes capture files under dir. If
// enabled is false, Write is a no-op: links without capture enabled
// produce no files.
func NewManager(dir string, enabled bool) *Manager {
	return &Manager{dir: dir, enabled: enabled, writers: make(map[string]*endpointWriter)}
}

// Write records one packet traversal of the link between srcNodeID and
// dstNodeID into the capture files owned by both endpoints, framing payload
// (a raw IPv4 datagram) inside a minimal Ethernet header.
func (m *Manager) Write(prefix, srcNodeID, dstNodeID string, proto uint8, payload []byte) {
	if !m.enabled {
		return
	}
	if err := m.write(prefix, srcNodeID, dstNodeID, payload); err != nil {
		logrus.Warnf("capture: %s->%s: %v", srcNodeID, dstNodeID, err)
	}
	if err := m.write(prefix, dstNodeID, srcNodeID, payload); err != nil {
		logrus.Warnf("capture: %s->%s: %v", dstNodeID, srcNodeID, err)
	}
}

func (m *Manager) write(prefix, srcNodeID, dstNodeID string, payload []byte) error {
	name := fmt.Sprintf("%s__%s-to-%s____%s", prefix, srcNodeID, dstNodeID, kernelSuffix)
	ew, err := m.writerFor(name)
	if err != nil {
		return err
	}
	frame := frameEthernet(payload)
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Time{}, // virtual time has no wall-clock meaning; zero keeps identical runs byte-identical
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	return ew.w.WritePacket(ci, frame)
}

func (m *Manager) writerFor(name string) (*endpointWriter, error) {
	if ew, ok := m.writers[name]; ok {
		return ew, nil
	}
	path := filepath.Join(m.dir, name+".pcap")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("capture: create %s: %w", path, err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("capture: write header %s: %w", path, err)
	}
	ew := &endpointWriter{file: f, w: w}
	m.writers[name] = ew
	return ew, nil
}

// Close flushes and closes every open capture file.
func (m *Manager) Close() error {
	var firstErr error
	for _, ew := range m.writers {
		if err := ew.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// frameEthernet wraps a raw IPv4 payload in a minimal Ethernet II header so
// pcap readers that expect link-layer framing (tcpdump, Wireshark) can parse
// the capture.
func frameEthernet(ipPayload []byte) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       zeroMAC,
		DstMAC:       zeroMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	buf := gopacket.NewSerializeBuffer()
	_ = eth.SerializeTo(buf, gopacket.SerializeOptions{})
	return append(buf.Bytes(), ipPayload...)
}

var zeroMAC = []byte{0, 0, 0, 0, 0, 0}
