package rdt

import "time"

// latencyStats keeps the last length round-trip samples of a transfer.
type latencyStats struct {
	samples []time.Duration
	length  int
	count   int
}

func newLatencyStats(length int) *latencyStats {
	return &latencyStats{
		samples: make([]time.Duration, 0, length),
		length:  length,
	}
}

func (s *latencyStats) Insert(d time.Duration) {
	s.count++
	if len(s.samples) < s.length {
		s.samples = append(s.samples, d)
	} else {
		s.samples = append(s.samples[1:], d)
	}
}

// Count is the number of samples ever inserted.
func (s *latencyStats) Count() int { return s.count }

func (s *latencyStats) Latest() time.Duration {
	if len(s.samples) == 0 {
		return 0
	}
	return s.samples[len(s.samples)-1]
}

func (s *latencyStats) Average() time.Duration {
	if len(s.samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range s.samples {
		sum += v
	}
	return sum / time.Duration(len(s.samples))
}

func (s *latencyStats) Max() time.Duration {
	var max time.Duration
	for _, v := range s.samples {
		if v > max {
			max = v
		}
	}
	return max
}
