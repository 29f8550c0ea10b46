package rdt

import (
	"errors"
	"net"
	"time"
)

type simAddr string

func (a simAddr) Network() string { return "sim" }
func (a simAddr) String() string  { return string(a) }

type simTimeout struct{}

func (simTimeout) Error() string   { return "sim: i/o timeout" }
func (simTimeout) Timeout() bool   { return true }
func (simTimeout) Temporary() bool { return true }

type vclock struct{ now time.Time }

func (c *vclock) Now() time.Time { return c.now }

type simPacket struct {
	at   time.Time
	from net.Addr
	data []byte
}

type sentFrame struct {
	f  Frame
	to net.Addr
}

// simNet is a single-endpoint channel on a virtual clock. Reads never
// block: they deliver the next queued datagram due before the deadline and
// move the clock to its arrival time, or move the clock to the deadline and
// time out. Writes are recorded and handed to onWrite, which plays the
// remote end.
type simNet struct {
	clock    *vclock
	queue    []simPacket
	deadline time.Time
	sent     []sentFrame
	onWrite  func(f Frame, to net.Addr)
	writeErr error
}

func newSimNet() *simNet {
	return &simNet{clock: &vclock{now: time.Unix(1000, 0)}}
}

// deliver queues f from addr to arrive delay after the current time.
func (s *simNet) deliver(delay time.Duration, from net.Addr, f Frame) {
	b, err := f.MarshalBinary()
	if err != nil {
		panic(err)
	}
	p := simPacket{at: s.clock.now.Add(delay), from: from, data: b}
	i := len(s.queue)
	for i > 0 && s.queue[i-1].at.After(p.at) {
		i--
	}
	s.queue = append(s.queue, simPacket{})
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = p
}

func (s *simNet) ReadFrom(b []byte) (int, net.Addr, error) {
	if len(s.queue) > 0 && !s.queue[0].at.After(s.deadline) {
		p := s.queue[0]
		s.queue = s.queue[1:]
		if p.at.After(s.clock.now) {
			s.clock.now = p.at
		}
		return copy(b, p.data), p.from, nil
	}
	if s.clock.now.Before(s.deadline) {
		s.clock.now = s.deadline
	}
	return 0, nil, &net.OpError{Op: "read", Net: "sim", Err: simTimeout{}}
}

func (s *simNet) WriteTo(b []byte, to net.Addr) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	f, err := UnmarshalFrame(b)
	if err != nil {
		return 0, err
	}
	if f.Kind == KindData {
		f.Data = append([]byte(nil), f.Data...)
	}
	s.sent = append(s.sent, sentFrame{f: f, to: to})
	if s.onWrite != nil {
		s.onWrite(f, to)
	}
	return len(b), nil
}

func (s *simNet) SetReadDeadline(t time.Time) error  { s.deadline = t; return nil }
func (s *simNet) SetWriteDeadline(t time.Time) error { return nil }

func (s *simNet) sentKinds(k Kind) []int32 {
	var ids []int32
	for _, sf := range s.sent {
		if sf.f.Kind == k {
			ids = append(ids, sf.f.ID)
		}
	}
	return ids
}

func (s *simNet) count(k Kind, id int32) int {
	n := 0
	for _, sf := range s.sent {
		if sf.f.Kind == k && sf.f.ID == id {
			n++
		}
	}
	return n
}

// simPeer is an in-order receiver used to drive the sender. drop decides
// per incoming frame whether it is lost.
type simPeer struct {
	net   *simNet
	addr  net.Addr
	delay time.Duration
	drop  func(f Frame) bool

	started bool
	expect  int32
	n       int32
	buf     []byte
	acks    []int32
	done    bool
}

func newSimPeer(s *simNet) *simPeer {
	p := &simPeer{net: s, addr: simAddr("peer"), delay: 5 * time.Millisecond}
	s.onWrite = p.onFrame
	return p
}

func (p *simPeer) ack(id int32) {
	p.acks = append(p.acks, id)
	p.net.deliver(p.delay, p.addr, Ack(id))
}

func (p *simPeer) onFrame(f Frame, _ net.Addr) {
	if p.drop != nil && p.drop(f) {
		return
	}
	switch f.Kind {
	case KindStart:
		if !p.started {
			p.started = true
			p.n = frameCount(int(f.Length))
			p.buf = make([]byte, f.Length)
			p.expect = 1
		}
		p.ack(0)
	case KindData, KindEnd:
		if !p.started {
			return
		}
		if f.ID < p.expect {
			p.ack(f.ID)
			return
		}
		if f.ID != p.expect {
			return
		}
		if f.Kind == KindData && f.ID <= p.n {
			newChunks(p.buf).Fill(f.ID, f.Data)
		} else if f.Kind == KindEnd && f.ID == p.n+1 {
			p.done = true
		} else {
			return
		}
		p.ack(f.ID)
		p.expect++
	}
}

var errBroken = errors.New("sim: broken channel")

func simOptions(s *simNet, extra ...Option) options {
	o, err := buildOptions(append([]Option{WithClock(s.clock), WithPolicy(DefaultPolicy())}, extra...))
	if err != nil {
		panic(err)
	}
	return o
}
