package kernel

import (
	"errors"
	"fmt"
	"net/netip"
)

// Socket is the narrow raw-IP socket capability the traffic sources need:
// connect to a remote, send a payload, close. Modeled as the exclusive
// property of its owning source.
type Socket interface {
	// Connect resolves remote to a node and arms onConnect to fire once the
	// connect completes. Connectionless raw IP sockets complete "at connect
	// time in virtual time": the callback is scheduled with
	// zero delay rather than invoked synchronously, preserving event-loop
	// ordering.
	Connect(remote netip.Addr, onConnect func(err error))
	// Send transmits payload toward the connected remote. Returns the
	// number of bytes accepted (len(payload)) or an error; a non-positive
	// return is a recoverable condition the caller logs and proceeds past,
	// never a retry.
	Send(payload []byte) (int, error)
	// Close releases the socket. Safe to call more than once.
	Close() error
	// RemoteAddr reports the currently connected remote, or the zero value
	// if never connected.
	RemoteAddr() netip.Addr
}

// rawSocket is the concrete raw-IP Socket backing udp_flood, icmp_flood, and
// tcp_syn_flood traffic.
type rawSocket struct {
	net     *Network
	sched   *Scheduler
	owner   *Node
	proto   uint8
	capture CaptureSink
	remote  netip.Addr
	closed  bool
}

// NewRawSocket constructs a raw IPv4 socket owned by owner, carrying IP
// protocol number proto (17 = UDP, 1 = ICMP, 6 = TCP).
func NewRawSocket(net *Network, sched *Scheduler, owner *Node, proto uint8, capture CaptureSink) Socket {
	return &rawSocket{net: net, sched: sched, owner: owner, proto: proto, capture: capture}
}

func (s *rawSocket) Connect(remote netip.Addr, onConnect func(err error)) {
	if s.closed {
		s.sched.Schedule(0, func() {
			if onConnect != nil {
				onConnect(errors.New("kernel: connect on closed socket"))
			}
		})
		return
	}
	_, ok := s.net.NodeFor(remote)
	s.sched.Schedule(0, func() {
		if !ok {
			if onConnect != nil {
				onConnect(fmt.Errorf("kernel: connect: no route to host %s", remote))
			}
			return
		}
		s.remote = remote
		if onConnect != nil {
			onConnect(nil)
		}
	})
}

func (s *rawSocket) Send(payload []byte) (int, error) {
	if s.closed {
		return 0, errors.New("kernel: send on closed socket")
	}
	if !s.remote.IsValid() {
		return 0, errors.New("kernel: send before connect")
	}
	dstNode, ok := s.net.NodeFor(s.remote)
	if !ok {
		return 0, fmt.Errorf("kernel: send: no route to host %s", s.remote)
	}
	if err := s.net.Deliver(s.sched, s.owner.ID, dstNode, payload, s.proto, s.capture, nil); err != nil {
		return 0, err
	}
	return len(payload), nil
}

func (s *rawSocket) Close() error {
	s.closed = true
	return nil
}

func (s *rawSocket) RemoteAddr() netip.Addr { return s.remote }
