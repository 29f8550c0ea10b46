package rdt

import (
	"fmt"
	"time"
)

// Defaults for Policy.
const (
	RetryCount     = 3
	DefaultTimeout = 1000 * time.Millisecond
	MinTimeout     = 10 * time.Millisecond
	MaxTimeout     = 2000 * time.Millisecond
	TimeoutMargin  = 20 * time.Millisecond
	Backoff        = 2.0
	InitialWindow  = 2
	MaxWindow      = 1024
)

// Policy holds the retry, timeout and window tunables of a transfer. Every
// call starts from these values; nothing learned in one call survives it.
type Policy struct {
	// RetryCount bounds attempts per handshake point, receive waits per
	// expected frame, and consecutive timed-out rounds in the data phase.
	RetryCount int

	DefaultTimeout time.Duration
	MinTimeout     time.Duration
	MaxTimeout     time.Duration
	// Margin is added to the measured round trip when the timeout is
	// rescaled after an acknowledgment.
	Margin time.Duration
	// Backoff multiplies the timeout after every timed-out round.
	Backoff float64

	InitialWindow int
	MaxWindow     int
	// GrowthLatency is the round trip a full window must exceed before the
	// window doubles.
	GrowthLatency time.Duration
}

// DefaultPolicy returns the package constants as a Policy.
func DefaultPolicy() Policy {
	return Policy{
		RetryCount:     RetryCount,
		DefaultTimeout: DefaultTimeout,
		MinTimeout:     MinTimeout,
		MaxTimeout:     MaxTimeout,
		Margin:         TimeoutMargin,
		Backoff:        Backoff,
		InitialWindow:  InitialWindow,
		MaxWindow:      MaxWindow,
	}
}

// Validate reports the first setting that makes p unusable.
func (p Policy) Validate() error {
	switch {
	case p.RetryCount < 1:
		return fmt.Errorf("rdt: retry count %d < 1", p.RetryCount)
	case p.MinTimeout <= 0:
		return fmt.Errorf("rdt: min timeout %v must be positive", p.MinTimeout)
	case p.MaxTimeout < p.MinTimeout:
		return fmt.Errorf("rdt: max timeout %v below min timeout %v", p.MaxTimeout, p.MinTimeout)
	case p.DefaultTimeout < p.MinTimeout || p.DefaultTimeout > p.MaxTimeout:
		return fmt.Errorf("rdt: default timeout %v outside [%v, %v]", p.DefaultTimeout, p.MinTimeout, p.MaxTimeout)
	case p.Margin < 0:
		return fmt.Errorf("rdt: negative timeout margin %v", p.Margin)
	case p.Backoff < 1:
		return fmt.Errorf("rdt: backoff %v < 1", p.Backoff)
	case p.MaxWindow < 1:
		return fmt.Errorf("rdt: max window %d < 1", p.MaxWindow)
	case p.InitialWindow < 1 || p.InitialWindow > p.MaxWindow:
		return fmt.Errorf("rdt: initial window %d outside [1, %d]", p.InitialWindow, p.MaxWindow)
	}
	return nil
}

func (p Policy) clampTimeout(d time.Duration) time.Duration {
	if d < p.MinTimeout {
		return p.MinTimeout
	}
	if d > p.MaxTimeout {
		return p.MaxTimeout
	}
	return d
}

func (p Policy) clampWindow(w int) int {
	if w < 1 {
		return 1
	}
	if w > p.MaxWindow {
		return p.MaxWindow
	}
	return w
}

// controller adapts the window and timeout of one transfer. window stays in
// [1, MaxWindow] and timeout in [MinTimeout, MaxTimeout] after every call.
type controller struct {
	policy  Policy
	window  int
	timeout time.Duration
}

func newController(p Policy) *controller {
	c := &controller{policy: p}
	c.reset()
	return c
}

func (c *controller) reset() {
	c.window = c.policy.clampWindow(c.policy.InitialWindow)
	c.timeout = c.policy.clampTimeout(c.policy.DefaultTimeout)
}

// backoff grows the timeout after an unanswered attempt.
func (c *controller) backoff() {
	c.timeout = c.policy.clampTimeout(time.Duration(float64(c.timeout) * c.policy.Backoff))
}

// onTimeout reacts to a timed-out data round: halve the window, back off.
func (c *controller) onTimeout() {
	c.window = c.policy.clampWindow(c.window / 2)
	c.backoff()
}

// onAck rescales the timeout halfway toward rtt+Margin and doubles a window
// that was fully used when the round trip exceeds GrowthLatency.
func (c *controller) onAck(rtt time.Duration, full bool) {
	if rtt < 0 {
		rtt = 0
	}
	c.timeout = c.policy.clampTimeout((c.timeout + rtt + c.policy.Margin) / 2)
	if full && rtt > c.policy.GrowthLatency {
		c.window = c.policy.clampWindow(c.window * 2)
	}
}
