package rdt

import (
	"testing"
	"time"
)

func TestLatencyStats(t *testing.T) {
	s := newLatencyStats(3)
	if s.Average() != 0 || s.Latest() != 0 || s.Max() != 0 {
		t.Fatal("empty stats not zero")
	}
	for _, ms := range []int{10, 40, 20, 30} {
		s.Insert(time.Duration(ms) * time.Millisecond)
	}
	if s.Count() != 4 {
		t.Errorf("count %d, want 4", s.Count())
	}
	if s.Latest() != 30*time.Millisecond {
		t.Errorf("latest %v", s.Latest())
	}
	if s.Average() != 30*time.Millisecond {
		t.Errorf("average %v over the last three, want 30ms", s.Average())
	}
	if s.Max() != 40*time.Millisecond {
		t.Errorf("max %v", s.Max())
	}
}
