package channel

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
)

// GilbertElliott is a two-state loss model. Before every datagram the
// state flips with GoodToBad or BadToGood; the datagram is then lost with
// the loss probability of the new state.
type GilbertElliott struct {
	GoodToBad float64
	BadToGood float64
	LossGood  float64
	LossBad   float64
}

// Bernoulli is a memoryless model that loses every datagram with
// probability p.
func Bernoulli(p float64) GilbertElliott {
	return GilbertElliott{LossGood: p}
}

func (m GilbertElliott) Validate() error {
	for _, v := range []struct {
		name string
		p    float64
	}{
		{"good_to_bad", m.GoodToBad},
		{"bad_to_good", m.BadToGood},
		{"loss_good", m.LossGood},
		{"loss_bad", m.LossBad},
	} {
		if v.p < 0 || v.p > 1 {
			return fmt.Errorf("channel: %s probability %v outside [0, 1]", v.name, v.p)
		}
	}
	return nil
}

// LossStats counts outgoing datagrams of a Lossy channel.
type LossStats struct {
	Sent    int
	Dropped int
}

// Lossy drops outgoing datagrams of the wrapped channel. Dropped writes
// report success, like a datagram lost on the wire.
type Lossy struct {
	Datagram

	mu     sync.Mutex
	model  GilbertElliott
	rng    *rand.Rand
	bad    bool
	filter func([]byte) bool
	stats  LossStats
}

func NewLossy(d Datagram, model GilbertElliott, seed int64) *Lossy {
	return &Lossy{
		Datagram: d,
		model:    model,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// SetFilter restricts loss to datagrams for which f returns true. Other
// datagrams always pass and do not advance the model.
func (l *Lossy) SetFilter(f func(b []byte) bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter = f
}

func (l *Lossy) WriteTo(b []byte, addr net.Addr) (int, error) {
	if l.drop(b) {
		return len(b), nil
	}
	return l.Datagram.WriteTo(b, addr)
}

func (l *Lossy) drop(b []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.Sent++
	if l.filter != nil && !l.filter(b) {
		return false
	}
	if l.bad {
		if l.rng.Float64() < l.model.BadToGood {
			l.bad = false
		}
	} else if l.rng.Float64() < l.model.GoodToBad {
		l.bad = true
	}
	p := l.model.LossGood
	if l.bad {
		p = l.model.LossBad
	}
	if l.rng.Float64() < p {
		l.stats.Dropped++
		return true
	}
	return false
}

func (l *Lossy) Stats() LossStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Lossy) Close() error {
	return closeDatagram(l.Datagram)
}
