package rdt

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var traceHeader = []string{"id", "sent_ns", "acked_ns", "rtt_ns", "window", "timeout_ns", "rewinds"}

type traceEntry struct {
	id      int32
	sent    time.Time
	acked   time.Time
	window  int
	timeout time.Duration
	rewinds int
}

// tracer writes one CSV row per accepted acknowledgment. A nil tracer
// discards everything.
type tracer struct {
	w       *csv.Writer
	started bool
	err     error
}

func newTracer(w io.Writer) *tracer {
	if w == nil {
		return nil
	}
	return &tracer{w: csv.NewWriter(w)}
}

func (t *tracer) add(e traceEntry) {
	if t == nil || t.err != nil {
		return
	}
	if !t.started {
		t.started = true
		if t.err = t.w.Write(traceHeader); t.err != nil {
			return
		}
	}
	t.err = t.w.Write([]string{
		strconv.FormatInt(int64(e.id), 10),
		strconv.FormatInt(e.sent.UnixNano(), 10),
		strconv.FormatInt(e.acked.UnixNano(), 10),
		strconv.FormatInt(int64(e.acked.Sub(e.sent)), 10),
		strconv.Itoa(e.window),
		strconv.FormatInt(int64(e.timeout), 10),
		strconv.Itoa(e.rewinds),
	})
}

// flush ends a transfer. Trace failures never fail the transfer itself.
func (t *tracer) flush() error {
	if t == nil {
		return nil
	}
	t.w.Flush()
	if t.err != nil {
		return t.err
	}
	return t.w.Error()
}
