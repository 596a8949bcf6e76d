// Package wormhole implements component C7: application-opened sessions
// that bypass the route table entirely. A wormhole is just an endpoint name
// pinned to a small integer id so callers can hold a cheap handle instead
// of a string.
//
// Grounded on the teacher's internal/session/store.go shard-map-with-delete
// idiom, simplified to a single mutex-protected slice since wormhole
// cardinality is expected to stay small (a handful of direct peers, not the
// full endpoint population).
package wormhole

import (
	"errors"
	"sync"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/endpoint"
)

// State mirrors wh_state()'s three-value result.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateUnknown
)

var ErrBadID = errors.New("wormhole: invalid or closed id")

type slot struct {
	addr string
	ep   *endpoint.Endpoint
	open bool
}

// Table is the wormhole slot array, keyed by integer id returned from Open.
type Table struct {
	mu    sync.Mutex
	slots []slot
	byAddr map[string]int
	holes  []int

	registry *endpoint.Registry
}

// NewTable creates an empty wormhole table backed by the given endpoint
// registry (wormhole sends reuse the same demand-dial/connect-gate logic as
// routed sends).
func NewTable(registry *endpoint.Registry) *Table {
	return &Table{
		byAddr:   make(map[string]int),
		registry: registry,
	}
}

// Open returns the existing id for addr if already open, else allocates a
// new slot (reusing a hole left by Close) and demand-dials on first send.
func (t *Table) Open(addr string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.byAddr[addr]; ok {
		return id
	}

	ep := t.registry.Get(addr)
	var id int
	if n := len(t.holes); n > 0 {
		id = t.holes[n-1]
		t.holes = t.holes[:n-1]
		t.slots[id] = slot{addr: addr, ep: ep, open: true}
	} else {
		id = len(t.slots)
		t.slots = append(t.slots, slot{addr: addr, ep: ep, open: true})
	}
	t.byAddr[addr] = id
	return id
}

// Close marks id closed and returns its slot to the hole list for reuse by a
// future Open. The endpoint's connection, which belongs to the shared
// endpoint registry, is not closed.
func (t *Table) Close(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.slots) || !t.slots[id].open {
		return
	}
	delete(t.byAddr, t.slots[id].addr)
	t.slots[id] = slot{}
	t.holes = append(t.holes, id)
}

// State reports whether id currently names an open wormhole.
func (t *Table) State(id int) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.slots) {
		return StateUnknown
	}
	if t.slots[id].open {
		return StateOpen
	}
	return StateClosed
}

// Send writes frame to the endpoint behind id, the wh_send_msg operation.
// It is a plain send bypassing the route table entirely; only WhID-style
// failures are possible beyond the usual send failure taxonomy.
func (t *Table) Send(id int, frame []byte) (endpoint.Failure, error) {
	t.mu.Lock()
	if id < 0 || id >= len(t.slots) || !t.slots[id].open {
		t.mu.Unlock()
		return endpoint.FailNoEndpoint, ErrBadID
	}
	ep := t.slots[id].ep
	t.mu.Unlock()

	return ep.Send(frame, t.registry.DialTimeout), nil
}
