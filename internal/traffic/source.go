// Package traffic implements the retargetable On/Off traffic source: a
// state machine that alternates generating CBR traffic
// and idle periods, constructs attack-vector-specific packets, and can
// atomically rebind its destination mid-flight.
package traffic

import (
	"fmt"
	"math/rand"
	"net/netip"

	"github.com/dpws-sim/dpws-sim/internal/config"
	"github.com/dpws-sim/dpws-sim/internal/kernel"
	"github.com/sirupsen/logrus"
)

// State is one of the Source's lifecycle states.
type State int

const (
	StateInit State = iota
	StateConnecting
	StateOn
	StateOff
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateConnecting:
		return "Connecting"
	case StateOn:
		return "On"
	case StateOff:
		return "Off"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Params is the fully-resolved, per-source configuration: every field has
// already passed through internal/attack's vector_spec > attacker_node >
// global_default precedence chain. Only SourcePort and
// DestinationPort may still carry config.RandomizePort (-1); config.InheritPort
// (-2) must already be resolved away by the caller.
type Params struct {
	Vector           string
	EffectiveSize    int
	DataRateBps      float64
	SourcePort       int
	DestinationPort  int
	MaxFluctuation   float64
	MaxBytes         int64
	OnTime           kernel.VirtualTime
	OffTime          kernel.VirtualTime
	SkipFirstOff     bool
	AllowUnreachable bool
}

// Source is the retargetable On/Off state machine bound to one attack
// vector.
type Source struct {
	sched     *kernel.Scheduler
	localAddr netip.Addr
	params    Params
	newSocket func() kernel.Socket
	rng       *rand.Rand

	state  State
	remote netip.Addr
	socket kernel.Socket

	sendHandle   kernel.Handle
	toggleHandle kernel.Handle
	sendPending  bool
	lastSendTime kernel.VirtualTime
	lastSendBits float64
	lastSendGap  kernel.VirtualTime
	residualBits float64

	skipOffAfterRetarget bool
	totalBytesSent       int64
	icmpSeq              uint16
}

// NewSource constructs a Source bound to localAddr (used only for TCP
// checksum pseudo-headers), not yet started. newSocket is called once per
// Init/retarget transition to obtain a fresh raw socket; the Source never
// reuses a socket handle across a retarget. If seedFactory is nil,
// SystemSeedFactory is used.
func NewSource(sched *kernel.Scheduler, localAddr netip.Addr, params Params, newSocket func() kernel.Socket, seedFactory SeedFactory) *Source {
	if seedFactory == nil {
		seedFactory = SystemSeedFactory
	}
	return &Source{
		sched:                sched,
		localAddr:            localAddr,
		params:               params,
		newSocket:            newSocket,
		rng:                  rand.New(rand.NewSource(seedFactory())),
		state:                StateInit,
		skipOffAfterRetarget: params.SkipFirstOff,
	}
}

// State returns the source's current lifecycle state.
func (s *Source) State() State { return s.state }

// RemoteAddr returns the address the source is currently bound to.
func (s *Source) RemoteAddr() netip.Addr { return s.remote }

// TotalBytesSent returns the cumulative count of bytes the source has
// emitted, for enforcing the max_bytes cap and for rate assertions in
// tests.
func (s *Source) TotalBytesSent() int64 { return s.totalBytesSent }

// Start arms the Init->Connecting transition: create a socket, connect to
// remote.
func (s *Source) Start(remote netip.Addr) {
	if s.state != StateInit {
		return
	}
	s.remote = remote
	s.connect()
}

// Retarget atomically rebinds the source to newRemote: close the socket,
// cancel pending events, discard any cached unsent packet, open a new
// socket, and resume in the on-state once the new connect callback fires.
// Idempotent against double invocation: calling Retarget twice in a row
// with the same address leaves the source Connecting to that address
// either way.
func (s *Source) Retarget(newRemote netip.Addr) {
	if s.state == StateClosed {
		return
	}
	s.cancelEvents()
	s.residualBits = 0 // any cached unsent packet is discarded
	if s.socket != nil {
		_ = s.socket.Close()
	}
	s.remote = newRemote
	s.skipOffAfterRetarget = true
	s.connect()
}

// Stop cancels pending events and closes the socket. Safe to call more
// than once.
func (s *Source) Stop() {
	if s.state == StateClosed {
		return
	}
	s.cancelEvents()
	if s.socket != nil {
		_ = s.socket.Close()
	}
	s.state = StateClosed
}

func (s *Source) cancelEvents() {
	s.sched.Cancel(s.sendHandle)
	s.sched.Cancel(s.toggleHandle)
	s.sendHandle = kernel.Handle{}
	s.toggleHandle = kernel.Handle{}
	s.sendPending = false
}

func (s *Source) connect() {
	s.state = StateConnecting
	s.socket = s.newSocket()
	remote := s.remote
	s.socket.Connect(remote, func(err error) {
		if err != nil {
			// Connect failure is fatal unless allow_unreachable_targets
			// opts into treating the destination as a blackhole.
			if s.params.AllowUnreachable {
				logrus.Warnf("traffic: connect to %s failed (recoverable, target unreachable): %v", remote, err)
				return
			}
			logrus.Fatalf("traffic: connect to %s failed: %v", remote, err)
			return
		}
		s.onConnected()
	})
}

func (s *Source) onConnected() {
	if s.state != StateConnecting {
		return
	}
	if s.skipOffAfterRetarget {
		s.skipOffAfterRetarget = false
		s.enterOn()
		return
	}
	s.state = StateOff
	s.toggleHandle = s.sched.Schedule(s.params.OffTime, s.enterOn)
}

func (s *Source) enterOn() {
	s.state = StateOn
	s.toggleHandle = s.sched.Schedule(s.params.OnTime, s.onExpire)
	s.scheduleNextSend()
}

// onExpire fires when the On period ends: cancel the pending send,
// recording its unsent residual bits, and schedule re-entry to On after
// the off duration.
func (s *Source) onExpire() {
	if s.sendPending {
		s.sched.Cancel(s.sendHandle)
		elapsed := s.sched.Now() - s.lastSendTime
		frac := 0.0
		if s.lastSendGap > 0 {
			frac = float64(elapsed) / float64(s.lastSendGap)
		}
		if frac > 1 {
			frac = 1
		} else if frac < 0 {
			frac = 0
		}
		s.residualBits = s.lastSendBits * (1 - frac)
		s.sendPending = false
	}
	s.state = StateOff
	s.toggleHandle = s.sched.Schedule(s.params.OffTime, s.enterOn)
}

// scheduleNextSend computes the next inter-packet gap from the residual
// bits left over from an interrupted packet plus the current wire size,
// applying the fluctuation factor, and arms the send event.
func (s *Source) scheduleNextSend() {
	wireSize := EffectiveWireSize(s.params.Vector, s.params.EffectiveSize)
	bits := float64(wireSize)*8 - s.residualBits
	if bits <= 0 {
		bits = float64(wireSize) * 8
	}
	s.residualBits = 0

	delta := 0.0
	if s.params.MaxFluctuation > 0 {
		delta = (s.rng.Float64()*2 - 1) * s.params.MaxFluctuation
	}
	var gap kernel.VirtualTime
	if s.params.DataRateBps > 0 {
		gap = kernel.SecondsToVT(bits / s.params.DataRateBps * (1 + delta))
	}

	s.lastSendTime = s.sched.Now()
	s.lastSendBits = bits
	s.lastSendGap = gap
	s.sendPending = true
	s.sendHandle = s.sched.Schedule(gap, s.onSendDue)
}

func (s *Source) onSendDue() {
	s.sendPending = false
	s.doSend()
	if s.state == StateOn {
		s.scheduleNextSend()
	}
}

func (s *Source) doSend() {
	if s.params.MaxBytes > 0 && s.totalBytesSent >= s.params.MaxBytes {
		return
	}
	payload, err := s.buildPacket()
	if err != nil {
		logrus.Errorf("traffic: build packet for %s: %v", s.params.Vector, err)
		return
	}
	if s.params.MaxBytes > 0 {
		if remaining := s.params.MaxBytes - s.totalBytesSent; int64(len(payload)) > remaining {
			payload = payload[:remaining]
		}
	}
	n, err := s.socket.Send(payload)
	if err != nil {
		logrus.Warnf("traffic: send failed (recoverable): %v", err)
		return
	}
	if n <= 0 {
		logrus.Warnf("traffic: send returned non-positive byte count %d (recoverable)", n)
		return
	}
	s.totalBytesSent += int64(n)
}

func (s *Source) buildPacket() ([]byte, error) {
	srcPort := resolvePort(s.params.SourcePort, s.rng)
	dstPort := resolvePort(s.params.DestinationPort, s.rng)
	switch s.params.Vector {
	case config.VectorUDPFlooding:
		return BuildUDPPacket(s.params.EffectiveSize, srcPort, dstPort)
	case config.VectorICMPFlooding:
		s.icmpSeq++
		return BuildICMPEchoPacket(s.params.EffectiveSize, uint16(s.rng.Intn(65536)), s.icmpSeq)
	case config.VectorTCPSynFlooding:
		return BuildTCPSynPacket(s.localAddr, s.remote, srcPort, dstPort)
	default:
		return nil, fmt.Errorf("traffic: unknown vector %q", s.params.Vector)
	}
}
