package rdt_test

import (
	"crypto/md5"
	"errors"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/deweykai/uftp/channel"
	"github.com/deweykai/uftp/rdt"
)

func fastPolicy() rdt.Policy {
	p := rdt.DefaultPolicy()
	p.RetryCount = 8
	p.MinTimeout = 20 * time.Millisecond
	p.DefaultTimeout = 100 * time.Millisecond
	p.MaxTimeout = 400 * time.Millisecond
	p.Margin = 20 * time.Millisecond
	return p
}

type received struct {
	buf  []byte
	from net.Addr
	err  error
}

// transfer sends msg from one end of a fresh pipe to the other. The
// receiving side keeps draining after the first message so a resent END is
// still acknowledged while the sender finishes.
func transfer(t *testing.T, msg []byte, wrap func(send, recv channel.Datagram) (channel.Datagram, channel.Datagram)) (int, received, error) {
	t.Helper()
	a, b := channel.Pipe()
	var send, recv channel.Datagram = a, b
	if wrap != nil {
		send, recv = wrap(a, b)
	}
	opt := rdt.WithPolicy(fastPolicy())

	first := make(chan received, 1)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf, from, err := rdt.RecvData(recv, opt)
		first <- received{buf, from, err}
		for {
			select {
			case <-done:
				return
			default:
			}
			if _, _, err := rdt.RecvData(recv, opt); errors.Is(err, rdt.ErrChannel) {
				return
			}
		}
	}()

	n, err := rdt.SendData(send, msg, b.LocalAddr(), opt)
	close(done)
	a.Close()
	wg.Wait()
	return n, <-first, err
}

func TestTransferSizes(t *testing.T) {
	sizes := []int{0, 1, rdt.PacketSize - 1, rdt.PacketSize, rdt.PacketSize + 1, 2500, 100000}
	rng := rand.New(rand.NewSource(42))
	sizes = append(sizes, rng.Intn(200000))

	for _, size := range sizes {
		msg := make([]byte, size)
		rng.Read(msg)

		n, r, err := transfer(t, msg, nil)
		if err != nil {
			t.Fatalf("size %d: SendData: %v", size, err)
		}
		if n != size {
			t.Errorf("size %d: SendData returned %d", size, n)
		}
		if r.err != nil {
			t.Fatalf("size %d: RecvData: %v", size, r.err)
		}
		if md5.Sum(r.buf) != md5.Sum(msg) {
			t.Errorf("size %d: received %d bytes with a different hash", size, len(r.buf))
		}
		if r.from == nil || r.from.String() != "a" {
			t.Errorf("size %d: from %v, want a", size, r.from)
		}
	}
}

func TestTransferOverLossyChannel(t *testing.T) {
	msg := make([]byte, 60000)
	rand.New(rand.NewSource(7)).Read(msg)

	var fwd, rev *channel.Lossy
	n, r, err := transfer(t, msg, func(send, recv channel.Datagram) (channel.Datagram, channel.Datagram) {
		fwd = channel.NewLossy(send, channel.Bernoulli(0.05), 1)
		rev = channel.NewLossy(recv, channel.Bernoulli(0.05), 2)
		return fwd, rev
	})
	if err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if n != len(msg) {
		t.Errorf("SendData returned %d", n)
	}
	if r.err != nil {
		t.Fatalf("RecvData: %v", r.err)
	}
	if md5.Sum(r.buf) != md5.Sum(msg) {
		t.Error("payload corrupted over lossy channel")
	}
	if fwd.Stats().Dropped == 0 && rev.Stats().Dropped == 0 {
		t.Log("no datagram was dropped")
	}
}

func TestEndpointExchange(t *testing.T) {
	a, b := channel.Pipe()
	defer a.Close()
	ea := rdt.NewEndpoint(a, rdt.WithPolicy(fastPolicy()))
	eb := rdt.NewEndpoint(b).With(rdt.WithPolicy(fastPolicy()))

	errc := make(chan error, 1)
	go func() {
		msg, from, err := eb.RecvData()
		if err != nil {
			errc <- err
			return
		}
		_, err = eb.SendData(append([]byte("echo: "), msg...), from)
		errc <- err
	}()

	if _, err := ea.SendData([]byte("ping"), b.LocalAddr()); err != nil {
		t.Fatalf("SendData: %v", err)
	}
	reply, _, err := ea.RecvData()
	if err != nil {
		t.Fatalf("RecvData: %v", err)
	}
	if string(reply) != "echo: ping" {
		t.Errorf("reply %q", reply)
	}
	if err := <-errc; err != nil {
		t.Errorf("peer: %v", err)
	}
}

func TestReplyAfterLostFinalAck(t *testing.T) {
	a, b := channel.Pipe()
	defer a.Close()
	lossy := channel.NewLossy(b, channel.Bernoulli(1), 1)
	lost := false
	lossy.SetFilter(func(d []byte) bool {
		f, err := rdt.UnmarshalFrame(d)
		if lost || err != nil || f.Kind != rdt.KindAck || f.ID != 4 {
			return false
		}
		lost = true
		return true
	})
	opt := rdt.WithPolicy(fastPolicy())

	errc := make(chan error, 1)
	go func() {
		_, from, err := rdt.RecvData(lossy, opt)
		if err != nil {
			errc <- err
			return
		}
		_, err = rdt.SendData(lossy, []byte("reply"), from, opt)
		errc <- err
	}()

	msg := make([]byte, 3000)
	rand.New(rand.NewSource(5)).Read(msg)
	if _, err := rdt.SendData(a, msg, b.LocalAddr(), opt); err != nil {
		t.Fatalf("SendData: %v", err)
	}
	reply, _, err := rdt.RecvData(a, opt)
	if err != nil {
		t.Fatalf("RecvData: %v", err)
	}
	if string(reply) != "reply" {
		t.Errorf("reply %q", reply)
	}
	if err := <-errc; err != nil {
		t.Errorf("peer: %v", err)
	}
	if !lost {
		t.Error("final ACK was never dropped")
	}
}

func TestClosedChannel(t *testing.T) {
	a, b := channel.Pipe()
	a.Close()

	n, err := rdt.SendData(a, []byte("x"), b.LocalAddr())
	if !errors.Is(err, rdt.ErrChannel) {
		t.Errorf("SendData err %v, want ErrChannel", err)
	}
	if n != 0 {
		t.Errorf("SendData returned %d on failure", n)
	}
	if _, _, err := rdt.RecvData(b); !errors.Is(err, rdt.ErrChannel) {
		t.Errorf("RecvData err %v, want ErrChannel", err)
	}
}
