package channel

import (
	"fmt"
	"runtime"

	"github.com/vishvananda/netns"
)

// InNamespace runs fn with the calling OS thread switched into the named
// network namespace. Sockets opened by fn stay in that namespace after the
// thread is switched back. An empty name runs fn directly.
func InNamespace(name string, fn func() error) error {
	if name == "" {
		return fn()
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origin, err := netns.Get()
	if err != nil {
		return fmt.Errorf("channel: current netns: %w", err)
	}
	defer origin.Close()

	ns, err := netns.GetFromName(name)
	if err != nil {
		return fmt.Errorf("channel: netns %q: %w", name, err)
	}
	defer ns.Close()

	if err := netns.Set(ns); err != nil {
		return fmt.Errorf("channel: enter netns %q: %w", name, err)
	}
	defer netns.Set(origin)

	return fn()
}
