// Package bufpool provides the byte-slice recycling pool backing mbuf
// allocation. It is adapted from the teacher's pool.BytePool/pool.BufferPool
// pair (pool/bytepool.go, pool/base_bufferpool.go): a size-classed set of
// sync.Pools keyed by power-of-two rounding, so repeated alloc/free of
// similarly sized frames doesn't churn the garbage collector.
package bufpool

import "sync"

// numClasses covers size classes from 64B up to 1MiB; anything larger
// allocates directly and is never pooled.
const (
	minClassShift = 6  // 64 bytes
	maxClassShift = 20 // 1 MiB
	numClasses    = maxClassShift - minClassShift + 1
)

// Pool is a size-classed byte-slice pool.
type Pool struct {
	classes [numClasses]sync.Pool
}

// New creates an empty Pool; classes are populated lazily.
func New() *Pool {
	p := &Pool{}
	for i := range p.classes {
		size := 1 << (minClassShift + i)
		p.classes[i].New = func() any {
			return make([]byte, size)
		}
	}
	return p
}

func classFor(n int) int {
	c := 0
	size := 1 << minClassShift
	for size < n && c < numClasses-1 {
		size <<= 1
		c++
	}
	return c
}

// Get returns a buffer of length n whose capacity may exceed n (rounded up
// to the pool's size class). Requests larger than the largest class bypass
// the pool entirely.
func (p *Pool) Get(n int) []byte {
	if n <= 0 {
		n = 1
	}
	c := classFor(n)
	classSize := 1 << (minClassShift + c)
	if n > classSize {
		return make([]byte, n) // larger than our biggest class
	}
	buf := p.classes[c].Get().([]byte)
	if cap(buf) < n {
		buf = make([]byte, classSize)
	}
	return buf[:n]
}

// Put returns buf to the pool for reuse. Buffers not originated from a
// class size (e.g. oversized allocations) are dropped.
func (p *Pool) Put(buf []byte) {
	c := cap(buf)
	shift := minClassShift
	for size := 1 << shift; size < c; size = 1 << shift {
		shift++
		if shift > maxClassShift {
			return // oversized, not pooled
		}
	}
	if 1<<shift != c {
		return // not one of our exact class sizes
	}
	idx := shift - minClassShift
	if idx < 0 || idx >= numClasses {
		return
	}
	p.classes[idx].Put(buf[:c])
}
