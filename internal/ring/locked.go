package ring

import (
	"sync"

	"github.com/eapache/queue"
)

// LockedRing is a bounded FIFO usable from multiple producer and/or
// consumer goroutines. The lock-free Ring (this package's default) assumes a
// single reader and single writer; setting Config.MultiConsumer in the rmr
// package makes Init construct this variant instead, trading some
// throughput for safety under concurrent producers or consumers.
type LockedRing struct {
	mu   sync.Mutex
	q    *queue.Queue
	cap  int
	evfd int
}

// NewLocked allocates a mutex-guarded ring with the given capacity.
func NewLocked(capacity int) *LockedRing {
	if capacity < 1 {
		capacity = 1
	}
	r := &LockedRing{q: queue.New(), cap: capacity}
	r.evfd = eventfdCreate()
	return r
}

// Insert adds p to the ring; false if the ring is at capacity.
func (r *LockedRing) Insert(p any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.q.Length() >= r.cap {
		return false
	}
	r.q.Add(p)
	r.bumpLocked()
	return true
}

// Extract removes and returns the oldest value, or nil if empty.
func (r *LockedRing) Extract() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.q.Length() == 0 {
		return nil
	}
	v := r.q.Remove()
	r.drainLocked()
	return v
}

// Len returns the number of queued items.
func (r *LockedRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.q.Length()
}

// Cap returns the ring's fixed capacity.
func (r *LockedRing) Cap() int {
	return r.cap
}

// Pollfd returns the event-fd backing this ring, or -1 if unavailable.
func (r *LockedRing) Pollfd() int {
	return r.evfd
}

func (r *LockedRing) bumpLocked() { eventfdBump(r.evfd) }

func (r *LockedRing) drainLocked() { eventfdDrain(r.evfd) }

// Close releases the event-fd backing this ring.
func (r *LockedRing) Close() error {
	fd := r.evfd
	r.evfd = -1
	return eventfdClose(fd)
}
