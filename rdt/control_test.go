package rdt

import (
	"math/rand"
	"testing"
	"time"
)

func TestControllerStaysInBounds(t *testing.T) {
	p := DefaultPolicy()
	rng := rand.New(rand.NewSource(1))
	c := newController(p)
	for i := 0; i < 100000; i++ {
		switch rng.Intn(4) {
		case 0:
			c.onTimeout()
		case 1:
			c.backoff()
		default:
			rtt := time.Duration(rng.Int63n(int64(5 * time.Second)))
			c.onAck(rtt, rng.Intn(2) == 0)
		}
		if c.window < 1 || c.window > p.MaxWindow {
			t.Fatalf("step %d: window %d", i, c.window)
		}
		if c.timeout < p.MinTimeout || c.timeout > p.MaxTimeout {
			t.Fatalf("step %d: timeout %v", i, c.timeout)
		}
	}
}

func TestControllerAdapts(t *testing.T) {
	p := DefaultPolicy()
	c := newController(p)
	if c.window != InitialWindow || c.timeout != DefaultTimeout {
		t.Fatalf("initial window %d timeout %v", c.window, c.timeout)
	}

	c.onAck(80*time.Millisecond, true)
	if c.window != 2*InitialWindow {
		t.Errorf("window %d after full ack, want %d", c.window, 2*InitialWindow)
	}
	if want := (DefaultTimeout + 80*time.Millisecond + TimeoutMargin) / 2; c.timeout != want {
		t.Errorf("timeout %v, want %v", c.timeout, want)
	}

	c.onAck(80*time.Millisecond, false)
	if c.window != 2*InitialWindow {
		t.Errorf("window grew on a partial window: %d", c.window)
	}

	before := c.timeout
	c.onTimeout()
	if c.window != InitialWindow {
		t.Errorf("window %d after timeout, want %d", c.window, InitialWindow)
	}
	if c.timeout != 2*before {
		t.Errorf("timeout %v after backoff, want %v", c.timeout, 2*before)
	}

	c.reset()
	if c.window != InitialWindow || c.timeout != DefaultTimeout {
		t.Errorf("reset to window %d timeout %v", c.window, c.timeout)
	}
}

func TestControllerGrowthLatency(t *testing.T) {
	p := DefaultPolicy()
	p.GrowthLatency = 50 * time.Millisecond
	c := newController(p)
	c.onAck(10*time.Millisecond, true)
	if c.window != InitialWindow {
		t.Errorf("window grew below growth latency: %d", c.window)
	}
	c.onAck(60*time.Millisecond, true)
	if c.window != 2*InitialWindow {
		t.Errorf("window %d above growth latency, want %d", c.window, 2*InitialWindow)
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy: %v", err)
	}
	for name, mutate := range map[string]func(*Policy){
		"retries":          func(p *Policy) { p.RetryCount = 0 },
		"min timeout":      func(p *Policy) { p.MinTimeout = 0 },
		"inverted bounds":  func(p *Policy) { p.MaxTimeout = p.MinTimeout / 2 },
		"default too high": func(p *Policy) { p.DefaultTimeout = p.MaxTimeout + 1 },
		"margin":           func(p *Policy) { p.Margin = -1 },
		"backoff":          func(p *Policy) { p.Backoff = 0.5 },
		"max window":       func(p *Policy) { p.MaxWindow = 0 },
		"initial window":   func(p *Policy) { p.InitialWindow = p.MaxWindow + 1 },
	} {
		p := DefaultPolicy()
		mutate(&p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: invalid policy accepted", name)
		}
	}
}
