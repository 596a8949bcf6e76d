//go:build !linux

package ring

// eventfd is a Linux-only pollability primitive (spec §1's "readable file
// descriptor" transport capability). Off Linux, Pollfd() simply reports
// unavailable and callers fall back to the poll-loop receive path
// (internal/recv/poller_other.go) instead of epoll.

func eventfdCreate() int       { return -1 }
func eventfdBump(fd int)       {}
func eventfdDrain(fd int)      {}
func eventfdClose(fd int) error { return nil }
