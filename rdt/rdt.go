// Package rdt delivers byte messages reliably and in order over a datagram
// channel that may drop, duplicate or reorder datagrams.
//
// A message travels as a START frame carrying its length, DATA frames 1..N
// of PacketSize bytes each, and an END frame N+1. START and END are sent
// stop-and-wait; DATA frames are pipelined Go-Back-N with an adaptive window
// and retransmission timeout. All state lives in the call: nothing from one
// transfer carries over into the next.
package rdt

import (
	"math"
	"net"

	"go.uber.org/zap"
)

// SendData transfers msg to the peer at to and returns len(msg). to may be
// nil when ch is connected. On failure it returns 0 and a single error.
func SendData(ch Channel, msg []byte, to net.Addr, opts ...Option) (int, error) {
	if int64(len(msg)) > math.MaxInt32 {
		return 0, ErrMessageTooLarge
	}
	o, err := buildOptions(opts)
	if err != nil {
		return 0, err
	}
	s := newSession(ch, o)
	err = s.send(msg, to)
	if ferr := s.trace.flush(); ferr != nil {
		s.log.Warn("trace write failed", zap.Error(ferr))
	}
	if err != nil {
		return 0, err
	}
	return len(msg), nil
}

// RecvData receives one message and returns it together with the address
// of its sender. On failure the buffer is nil.
func RecvData(ch Channel, opts ...Option) ([]byte, net.Addr, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, nil, err
	}
	return newSession(ch, o).receive()
}

// Endpoint binds a channel and a set of options so callers can exchange
// messages without repeating them.
type Endpoint struct {
	ch   Channel
	opts []Option
}

func NewEndpoint(ch Channel, opts ...Option) *Endpoint {
	return &Endpoint{ch: ch, opts: opts}
}

// With returns a copy of e with opts appended.
func (e *Endpoint) With(opts ...Option) *Endpoint {
	all := make([]Option, 0, len(e.opts)+len(opts))
	all = append(all, e.opts...)
	all = append(all, opts...)
	return &Endpoint{ch: e.ch, opts: all}
}

func (e *Endpoint) SendData(msg []byte, to net.Addr) (int, error) {
	return SendData(e.ch, msg, to, e.opts...)
}

func (e *Endpoint) RecvData() ([]byte, net.Addr, error) {
	return RecvData(e.ch, e.opts...)
}
