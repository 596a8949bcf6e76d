// Package ring implements the bounded, single-producer/single-consumer FIFO
// of opaque pointers used to hand received messages from the receive thread
// to application callers (component C1 of the RMR design).
//
// The lock-free path is a sequence-numbered CAS ring in the style of
// Vyukov's MPMC queue; Insert/Extract are O(1) and never block. A readable
// event-fd backs the ring in "semaphore mode": each successful Insert bumps
// the counter by one, each successful Extract decrements it by one, so an
// external epoll loop can multiplex the ring alongside socket fds.
package ring

import (
	"sync/atomic"
)

const cachelinePad = 64

type cell struct {
	sequence atomic.Uint64
	data     any
}

// Ring is a fixed-capacity FIFO of opaque values with an event-fd that
// becomes readable exactly when the ring is non-empty.
type Ring struct {
	head uint64
	_    [cachelinePad]byte
	tail uint64
	_    [cachelinePad]byte

	mask  uint64
	cells []cell

	evfd int // -1 if event-fd creation failed/unsupported; ring still works, Pollfd() is just unusable
}

// New allocates a ring whose capacity is rounded up to the next power of two
// (minimum 2). The returned ring owns an eventfd in semaphore mode; callers
// must call Close when done with it.
func New(capacity int) *Ring {
	if capacity < 2 {
		capacity = 2
	}
	size := nextPow2(uint64(capacity))

	r := &Ring{
		mask:  size - 1,
		cells: make([]cell, size),
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}

	r.evfd = eventfdCreate()
	return r
}

func nextPow2(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}

// Insert adds p to the ring. Returns false when the ring is full. No empty
// slot is reserved: every one of Cap() slots can hold a value, and per-cell
// sequence numbers keep a writer from claiming a slot a reader has not yet
// released.
func (r *Ring) Insert(p any) bool {
	for {
		tail := atomic.LoadUint64(&r.tail)
		idx := tail & r.mask
		c := &r.cells[idx]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(tail)

		switch {
		case dif == 0:
			if atomic.CompareAndSwapUint64(&r.tail, tail, tail+1) {
				c.data = p
				c.sequence.Store(tail + 1)
				r.bump()
				return true
			}
		case dif < 0:
			return false // full
		default:
			// another writer raced ahead; retry
		}
	}
}

// Extract removes and returns the oldest value, or nil if the ring is empty.
func (r *Ring) Extract() any {
	for {
		head := atomic.LoadUint64(&r.head)
		idx := head & r.mask
		c := &r.cells[idx]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(head+1)

		switch {
		case dif == 0:
			if atomic.CompareAndSwapUint64(&r.head, head, head+1) {
				v := c.data
				c.data = nil
				c.sequence.Store(head + r.mask + 1)
				r.drain()
				return v
			}
		case dif < 0:
			return nil // empty
		default:
			// another reader raced ahead; retry
		}
	}
}

// Len returns the approximate number of queued items.
func (r *Ring) Len() int {
	return int(atomic.LoadUint64(&r.tail) - atomic.LoadUint64(&r.head))
}

// Cap returns the ring's fixed capacity.
func (r *Ring) Cap() int {
	return len(r.cells)
}

// Pollfd returns the event-fd backing this ring, or -1 if eventfd creation
// failed (e.g. non-Linux or sandboxed environment). The fd is readable
// exactly when Len() > 0, and is safe to register with epoll/select.
func (r *Ring) Pollfd() int {
	return r.evfd
}

func (r *Ring) bump() { eventfdBump(r.evfd) }

func (r *Ring) drain() { eventfdDrain(r.evfd) }

// Close releases the event-fd backing this ring.
func (r *Ring) Close() error {
	fd := r.evfd
	r.evfd = -1
	return eventfdClose(fd)
}
