package rdt

import (
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// send runs one complete transfer of msg: START handshake, Go-Back-N data
// phase, END handshake.
func (s *session) send(msg []byte, to net.Addr) error {
	c := newChunks(msg)
	n := c.Count()

	if err := s.handshake(Start(int32(len(msg))), to); err != nil {
		return fmt.Errorf("rdt: START handshake: %w", err)
	}
	s.ctl.reset()

	if err := s.transmit(c, to); err != nil {
		return err
	}

	if err := s.handshake(End(n+1), to); err != nil {
		return fmt.Errorf("rdt: END handshake: %w", err)
	}
	s.log.Debug("transfer sent",
		zap.Int("bytes", len(msg)),
		zap.Int32("frames", n),
		zap.Int("rewinds", s.rewinds),
		zap.Int("rtt_samples", s.stats.Count()),
		zap.Duration("rtt_last", s.stats.Latest()),
		zap.Duration("rtt_avg", s.stats.Average()),
		zap.Duration("rtt_max", s.stats.Max()),
		zap.Int("window", s.ctl.window),
		zap.Duration("timeout", s.ctl.timeout))
	return nil
}

// handshake is stop-and-wait: send f and wait for ACK(f.ID), at most
// RetryCount times.
func (s *session) handshake(f Frame, to net.Addr) error {
	p := s.policy()
	for attempt := 1; attempt <= p.RetryCount; attempt++ {
		if attempt > 1 {
			s.ctl.backoff()
		}
		err := s.sendFrame(f, to, s.ctl.timeout)
		if errors.Is(err, errExpired) {
			s.log.Debug("handshake send expired", zap.Stringer("frame", f), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return err
		}
		ok, err := s.awaitAck(f.ID, to, s.now().Add(s.ctl.timeout))
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		s.log.Debug("handshake unanswered",
			zap.Stringer("frame", f),
			zap.Int("attempt", attempt),
			zap.Duration("timeout", s.ctl.timeout))
	}
	return ErrTimeout
}

// awaitAck reports whether ACK(id) arrived before deadline. Stale ACKs are
// skipped; any other frame ends the attempt, except for the two crossings
// of a request and its reply. While a START waits, an END from the peer
// means our final ACK of its message was lost: it is re-acknowledged. While
// an END waits, a START from the peer means it has already accepted our
// message and moved on to its own.
func (s *session) awaitAck(id int32, to net.Addr, deadline time.Time) (bool, error) {
	for {
		f, from, err := s.recvFrame(deadline.Sub(s.now()))
		if errors.Is(err, errExpired) {
			return false, nil
		}
		if err != nil && !errors.Is(err, ErrMalformedFrame) {
			return false, err
		}
		if to != nil && !sameAddr(from, to) {
			continue
		}
		if err != nil {
			s.log.Debug("malformed reply", zap.Error(err))
			return false, nil
		}
		switch {
		case f.Kind == KindAck && f.ID == id:
			return true, nil
		case f.Kind == KindAck && f.ID < id:
			continue
		case f.Kind == KindEnd && id == 0:
			if err := s.ack(f.ID, from); err != nil {
				return false, err
			}
			continue
		case f.Kind == KindStart && id > 0:
			continue
		}
		s.log.Debug("unexpected reply",
			zap.Stringer("frame", f),
			zap.Error(fmt.Errorf("%w: waiting for ACK(%d)", ErrUnexpectedFrame, id)))
		return false, nil
	}
}

// transmit is the data phase. base is the oldest unacknowledged id, next
// the next id to put on the wire.
func (s *session) transmit(c chunks, to net.Addr) error {
	n := c.Count()
	p := s.policy()
	s.base, s.next = 1, 1
	s.resets, s.rewinds, s.decile = 0, 0, 0
	// In-flight ids never span more than MaxWindow, so id%MaxWindow is unique.
	s.sentAt = make([]time.Time, p.MaxWindow)

	for s.base <= n {
		last := s.base + int32(s.ctl.window) - 1
		if last > n {
			last = n
		}
		for s.next <= last {
			chunk, err := c.Chunk(s.next)
			if err != nil {
				return err
			}
			s.sentAt[int(s.next)%len(s.sentAt)] = s.now()
			err = s.sendFrame(Data(s.next, chunk), to, s.ctl.timeout)
			if errors.Is(err, errExpired) {
				break
			}
			if err != nil {
				return err
			}
			s.next++
		}
		full := int(s.next-s.base) == s.ctl.window

		id, at, ok, err := s.awaitWindowAck(to, s.now().Add(s.ctl.timeout))
		if err != nil {
			return err
		}
		if !ok {
			s.resets++
			if s.resets > p.RetryCount {
				return fmt.Errorf("rdt: DATA(%d) unacknowledged after %d rounds: %w", s.base, s.resets, ErrTimeout)
			}
			s.rewinds++
			s.next = s.base
			s.ctl.onTimeout()
			s.log.Debug("rewind",
				zap.Int32("base", s.base),
				zap.Int("window", s.ctl.window),
				zap.Duration("timeout", s.ctl.timeout))
			continue
		}

		sent := s.sentAt[int(id)%len(s.sentAt)]
		rtt := at.Sub(sent)
		s.base = id + 1
		s.resets = 0
		s.stats.Insert(rtt)
		s.ctl.onAck(rtt, full)
		s.trace.add(traceEntry{
			id:      id,
			sent:    sent,
			acked:   at,
			window:  s.ctl.window,
			timeout: s.ctl.timeout,
			rewinds: s.rewinds,
		})
		s.progress(s.base-1, n)
	}
	return nil
}

// awaitWindowAck waits for a cumulative ACK inside [base, next-1]. ACKs
// outside that range cannot confirm anything in flight and are dropped.
func (s *session) awaitWindowAck(to net.Addr, deadline time.Time) (int32, time.Time, bool, error) {
	for {
		f, from, err := s.recvFrame(deadline.Sub(s.now()))
		if errors.Is(err, errExpired) {
			return 0, time.Time{}, false, nil
		}
		if errors.Is(err, ErrMalformedFrame) {
			continue
		}
		if err != nil {
			return 0, time.Time{}, false, err
		}
		if to != nil && !sameAddr(from, to) {
			continue
		}
		if f.Kind != KindAck || f.ID < s.base || f.ID >= s.next {
			continue
		}
		return f.ID, s.now(), true, nil
	}
}
