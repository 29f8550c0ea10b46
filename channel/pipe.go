package channel

import (
	"net"
	"sync"
	"time"
)

// pipeCapacity is the number of datagrams a pipe direction buffers before
// it starts dropping, like a full socket receive buffer.
const pipeCapacity = 4096

type memAddr string

func (a memAddr) Network() string { return "mem" }
func (a memAddr) String() string  { return string(a) }

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type pipeShared struct {
	once sync.Once
	done chan struct{}
}

func (s *pipeShared) close() {
	s.once.Do(func() { close(s.done) })
}

// PipeEnd is one side of an in-memory datagram pipe. Deadlines are read
// when an operation starts.
type PipeEnd struct {
	local, remote memAddr
	in, out       chan []byte
	shared        *pipeShared

	mu            sync.Mutex
	readDeadline  time.Time
	writeDeadline time.Time
}

// Pipe returns two connected in-memory endpoints with addresses "a" and
// "b". Closing either end closes both.
func Pipe() (*PipeEnd, *PipeEnd) {
	ab := make(chan []byte, pipeCapacity)
	ba := make(chan []byte, pipeCapacity)
	shared := &pipeShared{done: make(chan struct{})}
	a := &PipeEnd{local: "a", remote: "b", in: ba, out: ab, shared: shared}
	b := &PipeEnd{local: "b", remote: "a", in: ab, out: ba, shared: shared}
	return a, b
}

func (p *PipeEnd) ReadFrom(buf []byte) (int, net.Addr, error) {
	p.mu.Lock()
	deadline := p.readDeadline
	p.mu.Unlock()

	var expired <-chan time.Time
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			return 0, nil, &net.OpError{Op: "read", Net: "mem", Addr: p.local, Err: timeoutError{}}
		}
		t := time.NewTimer(d)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-p.shared.done:
		return 0, nil, net.ErrClosed
	default:
	}
	select {
	case b := <-p.in:
		return copy(buf, b), p.remote, nil
	case <-expired:
		return 0, nil, &net.OpError{Op: "read", Net: "mem", Addr: p.local, Err: timeoutError{}}
	case <-p.shared.done:
		return 0, nil, net.ErrClosed
	}
}

// WriteTo queues b for the other end; addr is ignored. A full queue drops
// the datagram silently.
func (p *PipeEnd) WriteTo(b []byte, _ net.Addr) (int, error) {
	select {
	case <-p.shared.done:
		return 0, net.ErrClosed
	default:
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case p.out <- cp:
	default:
	}
	return len(b), nil
}

func (p *PipeEnd) SetReadDeadline(t time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readDeadline = t
	return nil
}

// SetWriteDeadline is accepted for interface compatibility. Writes never
// block.
func (p *PipeEnd) SetWriteDeadline(t time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeDeadline = t
	return nil
}

func (p *PipeEnd) LocalAddr() net.Addr  { return p.local }
func (p *PipeEnd) RemoteAddr() net.Addr { return p.remote }

func (p *PipeEnd) Close() error {
	p.shared.close()
	return nil
}
