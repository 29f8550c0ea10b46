package rdt

import (
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
)

// receive runs WaitStart, Receiving and WaitEnd for one message.
//
// The receiver acknowledges an id only once it has accepted every id up to
// and including it in order, or when re-acknowledging a duplicate below the
// expected id. An ACK(k) therefore always means frames 0..k are delivered,
// which is what lets the sender treat ACKs as cumulative.
//
// Each wait lasts MaxTimeout. Only a START, DATA or END from the peer
// starts a new wait; foreign, malformed and ACK datagrams do not, so the
// receiver gives up after RetryCount quiet waits however much noise arrives.
func (s *session) receive() ([]byte, net.Addr, error) {
	peer, length, err := s.waitStart()
	if err != nil {
		return nil, nil, err
	}
	if err := s.ack(0, peer); err != nil {
		return nil, nil, err
	}

	buf := make([]byte, length)
	c := newChunks(buf)
	n := c.Count()
	p := s.policy()

	expect := int32(1)
	timeouts := 0
	deadline := s.now().Add(p.MaxTimeout)
	for expect <= n+1 {
		f, from, err := s.recvFrame(deadline.Sub(s.now()))
		if errors.Is(err, errExpired) {
			timeouts++
			if timeouts >= p.RetryCount {
				return nil, nil, fmt.Errorf("rdt: waiting for frame %d of %d: %w", expect, n+1, ErrTimeout)
			}
			deadline = s.now().Add(p.MaxTimeout)
			continue
		}
		if err != nil && !errors.Is(err, ErrMalformedFrame) {
			return nil, nil, err
		}
		if err != nil || !sameAddr(from, peer) || f.Kind == KindAck {
			continue
		}
		timeouts = 0
		deadline = s.now().Add(p.MaxTimeout)

		want := KindData
		if expect == n+1 {
			want = KindEnd
		}
		switch {
		case f.ID < expect:
			if err := s.ack(f.ID, peer); err != nil {
				return nil, nil, err
			}
		case f.ID == expect && f.Kind == want:
			if f.Kind == KindData {
				if err := c.Fill(f.ID, f.Data); err != nil {
					return nil, nil, err
				}
			}
			if err := s.ack(f.ID, peer); err != nil {
				return nil, nil, err
			}
			expect++
		}
	}
	s.log.Debug("transfer received", zap.Int("bytes", len(buf)), zap.Int32("frames", n), zap.Stringer("peer", peer))
	return buf, peer, nil
}

// waitStart waits for a START frame. Anything else counts as a failed
// attempt; a stray END, left over from a previous transfer whose final ACK
// was lost, is re-acknowledged first.
func (s *session) waitStart() (net.Addr, int32, error) {
	p := s.policy()
	for failures := 0; failures < p.RetryCount; failures++ {
		f, from, err := s.recvFrame(p.MaxTimeout)
		if errors.Is(err, errExpired) {
			continue
		}
		if errors.Is(err, ErrMalformedFrame) {
			s.log.Debug("malformed frame while waiting for START", zap.Error(err))
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		switch f.Kind {
		case KindStart:
			return from, f.Length, nil
		case KindEnd:
			if err := s.ack(f.ID, from); err != nil {
				return nil, 0, err
			}
		}
		s.log.Debug("unexpected frame while waiting for START",
			zap.Stringer("frame", f),
			zap.Error(ErrUnexpectedFrame))
	}
	return nil, 0, fmt.Errorf("rdt: waiting for START: %w", ErrTimeout)
}

// ack sends ACK(id). An ACK that cannot be sent in time is dropped like a
// lost datagram; the sender recovers by retransmitting.
func (s *session) ack(id int32, to net.Addr) error {
	err := s.sendFrame(Ack(id), to, s.policy().MaxTimeout)
	if errors.Is(err, errExpired) {
		return nil
	}
	return err
}
