package rdt

import (
	"net"
	"time"
)

// Channel is the datagram endpoint a transfer runs over. The *net.UDPConn
// returned by net.ListenUDP satisfies it directly; connected sockets are
// adapted by channel.FromConn.
type Channel interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	WriteTo(p []byte, addr net.Addr) (n int, err error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Clock supplies the time deadlines are computed from.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// timedIO is the only place a transfer waits. Each call blocks for at most
// timeout and moves exactly one datagram.
type timedIO struct {
	ch    Channel
	clock Clock
}

func (t timedIO) send(b []byte, to net.Addr, timeout time.Duration) error {
	if timeout <= 0 {
		return errExpired
	}
	if err := t.ch.SetWriteDeadline(t.clock.Now().Add(timeout)); err != nil {
		return &ChannelError{Op: "set write deadline", Err: err}
	}
	if _, err := t.ch.WriteTo(b, to); err != nil {
		if isTimeout(err) {
			return errExpired
		}
		return &ChannelError{Op: "write", Err: err}
	}
	return nil
}

func (t timedIO) recv(buf []byte, timeout time.Duration) (int, net.Addr, error) {
	if timeout <= 0 {
		return 0, nil, errExpired
	}
	if err := t.ch.SetReadDeadline(t.clock.Now().Add(timeout)); err != nil {
		return 0, nil, &ChannelError{Op: "set read deadline", Err: err}
	}
	n, addr, err := t.ch.ReadFrom(buf)
	if err != nil {
		if isTimeout(err) {
			return 0, nil, errExpired
		}
		return 0, nil, &ChannelError{Op: "read", Err: err}
	}
	return n, addr, nil
}

func sameAddr(a, b net.Addr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Network() == b.Network() && a.String() == b.String()
}
