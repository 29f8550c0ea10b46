package rdt

import (
	"io"
	"net"
	"time"

	"go.uber.org/zap"
)

// Option configures a single SendData or RecvData call.
type Option func(*options)

type options struct {
	policy   Policy
	clock    Clock
	logger   *zap.Logger
	trace    *tracer
	progress func(confirmed, total int)
}

// WithPolicy replaces DefaultPolicy. The policy is validated when the
// transfer starts.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithClock replaces the wall clock deadlines are computed from.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger for per-transfer debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTrace records every acknowledgment the sender accepts as a CSV row on
// w. The header row is written once per Option value.
func WithTrace(w io.Writer) Option {
	t := newTracer(w)
	return func(o *options) { o.trace = t }
}

// WithProgress registers fn to be called each time another tenth of the DATA
// frames of a message has been confirmed.
func WithProgress(fn func(confirmed, total int)) Option {
	return func(o *options) { o.progress = fn }
}

func buildOptions(opts []Option) (options, error) {
	o := options{
		policy: DefaultPolicy(),
		clock:  systemClock{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = systemClock{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o, o.policy.Validate()
}

// session is the state of one transfer. It is created by SendData or
// RecvData and dropped when the call returns.
type session struct {
	conn   timedIO
	ctl    *controller
	stats  *latencyStats
	log    *zap.Logger
	trace  *tracer
	notify func(confirmed, total int)

	// sender
	base    int32
	next    int32
	resets  int
	rewinds int
	sentAt  []time.Time
	decile  int

	// scratch datagram buffer
	buf []byte
}

func newSession(ch Channel, o options) *session {
	return &session{
		conn:   timedIO{ch: ch, clock: o.clock},
		ctl:    newController(o.policy),
		stats:  newLatencyStats(16),
		log:    o.logger,
		trace:  o.trace,
		notify: o.progress,
		buf:    make([]byte, MaxFrameSize),
	}
}

func (s *session) policy() Policy { return s.ctl.policy }

func (s *session) now() time.Time { return s.conn.clock.Now() }

func (s *session) sendFrame(f Frame, to net.Addr, timeout time.Duration) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	return s.conn.send(b, to, timeout)
}

// recvFrame waits up to timeout for one datagram and decodes it. Decode
// failures are returned together with the sender address.
func (s *session) recvFrame(timeout time.Duration) (Frame, net.Addr, error) {
	n, addr, err := s.conn.recv(s.buf, timeout)
	if err != nil {
		return Frame{}, nil, err
	}
	f, err := UnmarshalFrame(s.buf[:n])
	return f, addr, err
}

// progress reports every newly completed decile of confirmed DATA frames.
func (s *session) progress(confirmed, total int32) {
	if s.notify == nil || total == 0 {
		return
	}
	d := int(int64(confirmed) * 10 / int64(total))
	if d > s.decile {
		s.decile = d
		s.notify(int(confirmed), int(total))
	}
}
