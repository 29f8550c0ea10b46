package channel

import (
	"sync"

	"github.com/netsec-ethz/scion-apps/pkg/pan"
)

// PathSelector keeps using one path until it goes down. If Pinned is set,
// the path with that fingerprint is preferred whenever it is offered.
type PathSelector struct {
	Pinned pan.PathFingerprint

	mutex   sync.Mutex
	paths   []*pan.Path
	current int
}

func (s *PathSelector) Path() *pan.Path {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.paths) == 0 {
		return nil
	}
	return s.paths[s.current]
}

// SetPaths replaces the candidate paths, staying on the current path (or
// the pinned one) when it is still available.
func (s *PathSelector) SetPaths(remote pan.UDPAddr, paths []*pan.Path) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	want := s.Pinned
	if want == "" && len(s.paths) > 0 {
		want = s.paths[s.current].Fingerprint
	}
	s.paths = paths
	s.current = indexOf(paths, want)
}

// OnPathDown fails over to the next path when the down notification
// concerns the path in use.
func (s *PathSelector) OnPathDown(pf pan.PathFingerprint, pi pan.PathInterface) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.paths) < 2 {
		return
	}
	current := s.paths[s.current]
	if current.Fingerprint == pf || onPath(current, pi) {
		s.current = (s.current + 1) % len(s.paths)
	}
}

func (s *PathSelector) PathCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.paths)
}

func (s *PathSelector) Close() error {
	return nil
}

func indexOf(paths []*pan.Path, fp pan.PathFingerprint) int {
	if fp == "" {
		return 0
	}
	for i, p := range paths {
		if p.Fingerprint == fp {
			return i
		}
	}
	return 0
}

func onPath(p *pan.Path, pi pan.PathInterface) bool {
	if p.Metadata == nil {
		return false
	}
	for _, c := range p.Metadata.Interfaces {
		if c == pi {
			return true
		}
	}
	return false
}
